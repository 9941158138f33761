package screen

import (
	"context"
	"fmt"
	"strings"

	"github.com/aipms/client/internal/domain/project"
)

// report is a read-only screen that loads once and renders the payload.
type report[T any] struct {
	lifecycle
	deps    Deps
	title   string
	what    string
	failMsg string
	fetch   func(context.Context) (T, error)
	render  func(T) []string
	data    T
}

func newReport[T any](d Deps, title, what, failMsg string, fetch func(context.Context) (T, error), render func(T) []string) *report[T] {
	r := &report[T]{deps: d, title: title, what: what, failMsg: failMsg, fetch: fetch, render: render}
	r.init()
	return r
}

func (r *report[T]) Mount(ctx context.Context) {
	r.mount()
	load(ctx, &r.lifecycle, r.deps, r.what, r.fetch, r.failMsg, func(v T) { r.data = v })
}

func (r *report[T]) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.base(r.title)
	if r.status == StatusReady {
		v.Lines = r.render(r.data)
		v.Data = r.data
	}
	return v
}

func (r *report[T]) Action(_ context.Context, name string, _ map[string]string) (Result, error) {
	return Result{}, unknownAction(name)
}

// NewAnalyticsDashboard shows platform statistics.
func NewAnalyticsDashboard(d Deps) Screen {
	return newReport(d, "Analytics", "analytics", "Failed to fetch analytics. You may not have the required permissions.",
		d.API.Analytics, renderAnalytics)
}

func renderAnalytics(a project.Analytics) []string {
	lines := []string{"Projects by status:"}
	for _, c := range a.ProjectStatusCounts {
		lines = append(lines, fmt.Sprintf("  %s: %d", c.Status, c.Count))
	}
	lines = append(lines, "Projects by category:")
	for _, c := range a.ProjectCategoryCounts {
		lines = append(lines, fmt.Sprintf("  %s: %d", orDash(c.Category), c.Count))
	}
	lines = append(lines, "Top innovative projects:")
	for i, p := range a.TopInnovativeProjects {
		lines = append(lines, fmt.Sprintf("  %d. %s (%.1f)", i+1, p.Title, p.Score))
	}
	return lines
}

// NewAlumniPortal shows the student's finished projects.
func NewAlumniPortal(d Deps) Screen {
	return newReport(d, "Alumni Portal", "alumni projects", "Failed to fetch projects. Please log in again.",
		d.API.AlumniProjects, func(projects []project.AlumniProject) []string {
			if len(projects) == 0 {
				return []string{"No completed or archived projects yet."}
			}
			lines := make([]string, 0, len(projects)*2)
			for _, p := range projects {
				lines = append(lines,
					fmt.Sprintf("%s [%s] submitted %s", p.Title, p.Status, p.SubmittedAt.Format("2006-01-02")),
					"    "+p.AbstractText,
				)
			}
			return lines
		})
}

// NewAdminDashboard shows users and groups.
func NewAdminDashboard(d Deps) Screen {
	return newReport(d, "Admin Panel", "admin dashboard", "Failed to fetch data. Make sure you have an Admin account.",
		d.API.AdminDashboard, renderAdmin)
}

func renderAdmin(a project.AdminDashboard) []string {
	lines := []string{fmt.Sprintf("Users (%d):", len(a.Users))}
	for _, u := range a.Users {
		lines = append(lines, fmt.Sprintf("  #%d %s <%s> %s", u.ID, u.Username, u.Email, u.Role))
	}
	lines = append(lines, fmt.Sprintf("Groups (%d):", len(a.Groups)))
	for _, g := range a.Groups {
		lines = append(lines,
			fmt.Sprintf("  #%d %s: %s", g.ID, g.Name, orDash(g.Description)),
			"    Teachers: "+usernames(g.Teachers),
			"    Students: "+usernames(g.Students),
		)
	}
	return lines
}

func usernames(refs []project.UserRef) string {
	if len(refs) == 0 {
		return "None Assigned"
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Username)
	}
	return strings.Join(names, ", ")
}

// NewTopAlumniProjects shows the public showcase.
func NewTopAlumniProjects(d Deps) Screen {
	return newReport(d, "Top Alumni Projects", "top projects", "Failed to fetch top projects. The server may be offline.",
		d.API.TopAlumniProjects, func(projects []project.TopProject) []string {
			if len(projects) == 0 {
				return []string{"No projects to show yet."}
			}
			lines := make([]string, 0, len(projects)*2)
			for i, p := range projects {
				lines = append(lines,
					fmt.Sprintf("%d. %s by %s, innovation %.1f", i+1, p.Title, orDash(p.Student.Username), p.InnovationScore),
					"    "+p.AbstractText,
				)
			}
			return lines
		})
}

// NewTeacherApprovedProjects shows the projects a teacher monitors.
func NewTeacherApprovedProjects(d Deps) Screen {
	return newReport(d, "Approved Projects", "approved projects", "Failed to fetch approved projects.",
		d.API.ApprovedProjects, func(projects []project.ApprovedProject) []string {
			if len(projects) == 0 {
				return []string{"No approved projects yet."}
			}
			lines := make([]string, 0, len(projects))
			for _, p := range projects {
				lines = append(lines, fmt.Sprintf("#%d %s by %s [%s] %s, %d%%",
					p.SubmissionID, p.Title, orDash(p.StudentName), p.Status, orDash(p.Category), p.ProgressPercentage))
			}
			return lines
		})
}

// NewLeaderboard ranks users by the innovation of their completed projects.
func NewLeaderboard(d Deps) Screen {
	return newReport(d, "Leaderboard", "leaderboard", "Failed to fetch leaderboard.",
		d.API.Leaderboard, func(users []project.User) []string {
			if len(users) == 0 {
				return []string{"No completed projects yet."}
			}
			lines := make([]string, 0, len(users))
			for i, u := range users {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, u.Username))
			}
			return lines
		})
}
