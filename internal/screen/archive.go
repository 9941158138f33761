package screen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

const archiveFetchFailed = "Failed to fetch projects. Make sure you have a Teacher or Admin account."

// ProjectArchiving moves projects through Completed and Archived.
type ProjectArchiving struct {
	lifecycle
	deps     Deps
	projects []project.Project
}

// NewProjectArchiving creates the archiving screen.
func NewProjectArchiving(d Deps) *ProjectArchiving {
	s := &ProjectArchiving{deps: d}
	s.init()
	return s
}

func (s *ProjectArchiving) Mount(ctx context.Context) {
	s.mount()
	load(ctx, &s.lifecycle, s.deps, "all projects", s.deps.API.AllProjects, archiveFetchFailed, s.apply)
}

func (s *ProjectArchiving) apply(projects []project.Project) {
	s.projects = projects
}

func (s *ProjectArchiving) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("Project Archiving")
	v.Actions = []ActionSpec{
		{Name: "complete", Args: []string{"id"}, Description: "Mark an In Progress project as Completed"},
		{Name: "archive", Args: []string{"id"}, Description: "Archive a Completed project"},
	}
	if s.status != StatusReady {
		return v
	}
	if len(s.projects) == 0 {
		v.Lines = []string{"No projects found."}
	}
	for _, p := range s.projects {
		line := fmt.Sprintf("#%d %s by %s [%s] %s, %d%%",
			p.ID, p.Title, orDash(p.Submission.Student.Username), p.Status, orDash(p.Category), p.ProgressPercentage)
		switch project.NextArchiveStatus(p.Status) {
		case project.StatusCompleted:
			line += "  (complete)"
		case project.StatusArchived:
			line += "  (archive)"
		}
		v.Lines = append(v.Lines, line)
	}
	v.Data = append([]project.Project(nil), s.projects...)
	return v
}

func (s *ProjectArchiving) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	var target project.Status
	switch name {
	case "complete":
		target = project.StatusCompleted
	case "archive":
		target = project.StatusArchived
	default:
		return Result{}, unknownAction(name)
	}
	id, err := idArg(args)
	if err != nil {
		return Result{}, err
	}

	if err := s.deps.API.ChangeProjectStatus(ctx, id, target); err != nil {
		if sessionGone(err) {
			return Result{Redirect: navigation.PathLogin}, nil
		}
		s.deps.logFailure(ctx, slog.LevelInfo, "status change rejected", err, "project_id", id, "target_status", target)
		s.deps.toast(notify.LevelError, "Update Failed",
			"Failed to update project status. Ensure status transition is valid (e.g., In Progress -> Completed).")
		return Result{}, nil
	}

	s.deps.toast(notify.LevelSuccess, "Status Updated", fmt.Sprintf("Project moved to %s.", target))
	refetch(ctx, &s.lifecycle, s.deps, "all projects", s.deps.API.AllProjects, archiveFetchFailed, s.apply)
	return Result{}, nil
}
