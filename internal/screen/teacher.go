package screen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

// TeacherDashboard lists submissions to review.
type TeacherDashboard struct {
	lifecycle
	deps        Deps
	tab         api.TeacherView
	submissions []project.TeacherSubmission
}

// NewTeacherDashboard creates the review screen on the appointed tab.
func NewTeacherDashboard(d Deps) *TeacherDashboard {
	s := &TeacherDashboard{deps: d, tab: api.TeacherAppointed}
	s.init()
	return s
}

const teacherFetchFailed = "Failed to fetch submissions. Please try again."

func (s *TeacherDashboard) fetcher(tab api.TeacherView) func(context.Context) ([]project.TeacherSubmission, error) {
	return func(ctx context.Context) ([]project.TeacherSubmission, error) {
		return s.deps.API.TeacherSubmissions(ctx, tab)
	}
}

// applyFor ignores lists fetched for a tab that is no longer selected.
func (s *TeacherDashboard) applyFor(tab api.TeacherView) func([]project.TeacherSubmission) {
	return func(subs []project.TeacherSubmission) {
		if s.tab == tab {
			s.submissions = subs
		}
	}
}

func (s *TeacherDashboard) Mount(ctx context.Context) {
	s.mount()
	load(ctx, &s.lifecycle, s.deps, "teacher submissions", s.fetcher(api.TeacherAppointed), teacherFetchFailed,
		s.applyFor(api.TeacherAppointed))
}

func (s *TeacherDashboard) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("Review Submissions")
	v.Actions = []ActionSpec{
		{Name: "tab", Args: []string{"view"}, Description: "Switch between appointed and unappointed submissions"},
		{Name: "approve", Args: []string{"id"}, Description: "Approve a submission"},
		{Name: "reject", Args: []string{"id"}, Description: "Reject a submission"},
	}
	v.Lines = []string{"Tab: " + string(s.tab)}
	if s.status != StatusReady {
		return v
	}
	if len(s.submissions) == 0 {
		if s.tab == api.TeacherAppointed {
			v.Lines = append(v.Lines, "No projects awaiting your review.")
		} else {
			v.Lines = append(v.Lines, "No other unappointed projects found.")
		}
	}
	for _, sub := range s.submissions {
		v.Lines = append(v.Lines,
			fmt.Sprintf("#%d %s by %s (group %s)", sub.ID, sub.Title, orDash(sub.Student.Username), orDash(sub.GroupName)),
			fmt.Sprintf("    relevance %s  feasibility %s  innovation %s", score(sub.RelevanceScore), score(sub.FeasibilityScore), score(sub.InnovationScore)),
			"    "+sub.AbstractText,
		)
	}
	v.Data = map[string]any{
		"tab":         s.tab,
		"submissions": append([]project.TeacherSubmission(nil), s.submissions...),
	}
	return v
}

func score(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func (s *TeacherDashboard) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	switch name {
	case "tab":
		raw, err := arg(args, "view")
		if err != nil {
			return Result{}, err
		}
		tab, err := api.ParseTeacherView(raw)
		if err != nil {
			return Result{}, err
		}
		s.settle(func() {
			s.tab = tab
			s.submissions = nil
		})
		refetch(ctx, &s.lifecycle, s.deps, "teacher submissions", s.fetcher(tab), teacherFetchFailed, s.applyFor(tab))
		return Result{}, nil
	case "approve":
		return s.review(ctx, args, project.StatusApproved)
	case "reject":
		return s.review(ctx, args, project.StatusRejected)
	default:
		return Result{}, unknownAction(name)
	}
}

// review removes the submission from the list once the server accepted
// the decision.
func (s *TeacherDashboard) review(ctx context.Context, args map[string]string, decision project.Status) (Result, error) {
	id, err := idArg(args)
	if err != nil {
		return Result{}, err
	}

	if err := s.deps.API.ReviewSubmission(ctx, id, decision); err != nil {
		if sessionGone(err) {
			return Result{Redirect: navigation.PathLogin}, nil
		}
		s.deps.logFailure(ctx, slog.LevelInfo, "review rejected", err, "submission_id", id, "decision", decision)
		s.deps.toast(notify.LevelError, "Update Failed", "This project may have already been reviewed.")
		return Result{}, nil
	}

	s.settle(func() {
		kept := s.submissions[:0]
		for _, sub := range s.submissions {
			if sub.ID != id {
				kept = append(kept, sub)
			}
		}
		s.submissions = kept
	})
	s.deps.toast(notify.LevelSuccess, "Success", "Project status updated.")
	return Result{}, nil
}
