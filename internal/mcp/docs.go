package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aipms/client/internal/domain/session"
	"github.com/aipms/client/internal/navigation"
)

const serverInstructions = `aipms drives the AI-PMS academic project management client.

The client shows one screen at a time. Every tool returns the current path,
the rendered view (title, status, lines, structured data, available actions)
and the notifications raised since the previous call.

Default workflow:
1) session_status to see whether you are signed in and which role you have.
2) login{username,password} if needed. You land on the dashboard for the role.
3) menu lists the screens your role can open; navigate{path} opens one.
4) perform_action{action,args} runs an action listed in the view.
5) logout when done.

Notes:
- Guarded screens redirect to "/" (the login screen) when signed out.
- A view with status "loading" has not finished its request; call current_view again.
- Failures are reported as notifications or as the view error, not as tool errors.

Docs:
- aipms://docs/index
- aipms://docs/routes
- aipms://docs/screens
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "aipms://docs/index",
		Name:        "docs_index",
		Title:       "aipms docs index",
		Description: "Entry point: what the client does and where to read next.",
		Content: `# aipms: Agent Docs Index

The client talks to the AI-PMS backend on behalf of one signed-in user
(Student, Teacher or HOD/Admin).

## Quick start

1. ` + "`session_status`" + `
2. ` + "`login`" + ` with the user's credentials.
3. ` + "`menu`" + ` then ` + "`navigate`" + `.
4. ` + "`perform_action`" + ` with arguments named in ` + "`view.actions`" + `.

## Docs

- ` + "`aipms://docs/routes`" + ` lists every path and the roles that see it in the menu.
- ` + "`aipms://docs/screens`" + ` describes the actions of each screen.
`,
	},
	{
		URI:         "aipms://docs/routes",
		Name:        "docs_routes",
		Title:       "Routes and menu",
		Description: "Every route, whether it needs a session, and the menu entries per role.",
		Content:     routesDoc(),
	},
	{
		URI:         "aipms://docs/screens",
		Name:        "docs_screens",
		Title:       "Screens and actions",
		Description: "What each screen shows and which actions it accepts.",
		Content: `# Screens

- ` + "`/`" + ` Login: ` + "`login{username,password}`" + `. Success lands on the role dashboard.
- ` + "`/register`" + ` Register: ` + "`register{username,email,password}`" + `. New accounts are Students.
- ` + "`/student-dashboard`" + `: ` + "`progress{id,value}`" + ` (0-100, approved projects only), ` + "`viva{id}`" + `.
- ` + "`/teacher-dashboard`" + `: ` + "`tab{view}`" + ` (appointed|unappointed), ` + "`approve{id}`" + `, ` + "`reject{id}`" + `.
- ` + "`/submit`" + `: ` + "`submit{title,abstract[,abstract_file][,audio_file]}`" + `. Files are local paths.
  A submission too similar to an existing project is blocked; the view shows the similar project.
- ` + "`/ai-chat`" + `: ` + "`send{prompt}`" + `.
- ` + "`/ai-viva/{projectId}`" + `: ` + "`answer{text}`" + ` then ` + "`next`" + `. Scores come from the AI evaluator.
- ` + "`/archive`" + `: ` + "`complete{id}`" + ` (In Progress to Completed), ` + "`archive{id}`" + ` (Completed to Archived).
- ` + "`/analytics`" + `, ` + "`/admin`" + `, ` + "`/alumni`" + `, ` + "`/top-projects`" + `, ` + "`/teacher/approved-projects`" + `, ` + "`/leaderboard`" + `: read only.
`,
	},
}

func routesDoc() string {
	var b strings.Builder
	b.WriteString("# Routes\n\n| Path | Session required |\n|---|---|\n")
	for _, r := range navigation.Routes {
		fmt.Fprintf(&b, "| `%s` | %t |\n", r.Pattern, !r.Public)
	}
	b.WriteString("\n# Menu by role\n")
	for _, role := range session.Roles {
		fmt.Fprintf(&b, "\n## %s\n\n", role)
		for _, entry := range navigation.VisibleMenu(role, navigation.DefaultMenu) {
			fmt.Fprintf(&b, "- `%s` %s\n", entry.Path, entry.Label)
		}
	}
	return b.String()
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
