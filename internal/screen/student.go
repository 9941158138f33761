package screen

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

// StudentDashboard lists the student's submissions and their progress.
type StudentDashboard struct {
	lifecycle
	deps        Deps
	submissions []project.StudentSubmission
}

// NewStudentDashboard creates the student dashboard.
func NewStudentDashboard(d Deps) *StudentDashboard {
	s := &StudentDashboard{deps: d}
	s.init()
	return s
}

func (s *StudentDashboard) Mount(ctx context.Context) {
	s.mount()
	load(ctx, &s.lifecycle, s.deps, "student submissions", s.deps.API.StudentSubmissions,
		"Failed to fetch submissions.",
		func(subs []project.StudentSubmission) { s.submissions = subs })
}

func (s *StudentDashboard) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("My Projects")
	v.Actions = []ActionSpec{
		{Name: "progress", Args: []string{"id", "value"}, Description: "Set the progress percentage (0-100) of a submission"},
		{Name: "viva", Args: []string{"id"}, Description: "Start the AI viva for an approved submission"},
	}
	if s.status != StatusReady {
		return v
	}
	if len(s.submissions) == 0 {
		v.Lines = []string{"You have not submitted any projects yet."}
	}
	for _, sub := range s.submissions {
		progress := "-"
		if sub.Progress != nil {
			progress = strconv.Itoa(*sub.Progress) + "%"
		}
		v.Lines = append(v.Lines, fmt.Sprintf("#%d %s [%s] progress %s", sub.ID, sub.Title, sub.Status, progress))
	}
	v.Data = append([]project.StudentSubmission(nil), s.submissions...)
	return v
}

func (s *StudentDashboard) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	switch name {
	case "progress":
		return s.updateProgress(ctx, args)
	case "viva":
		return s.startViva(args)
	default:
		return Result{}, unknownAction(name)
	}
}

func (s *StudentDashboard) updateProgress(ctx context.Context, args map[string]string) (Result, error) {
	id, err := idArg(args)
	if err != nil {
		return Result{}, err
	}
	raw, err := arg(args, "value")
	if err != nil {
		return Result{}, err
	}
	update, err := project.ParseProgress(raw)
	if err != nil {
		s.deps.toast(notify.LevelWarning, "Invalid Input", "Please enter a number between 0 and 100.")
		return Result{}, nil
	}

	if err := s.deps.API.UpdateProgress(ctx, id, update); err != nil {
		if sessionGone(err) {
			return Result{Redirect: navigation.PathLogin}, nil
		}
		s.deps.logFailure(ctx, slog.LevelInfo, "progress update rejected", err, "submission_id", id)
		s.deps.toast(notify.LevelError, "Update Failed", "Could not update progress. The project may not be approved yet.")
		return Result{}, nil
	}

	s.settle(func() {
		for i := range s.submissions {
			if s.submissions[i].ID == id {
				p := update.Progress
				s.submissions[i].Progress = &p
			}
		}
	})
	s.deps.toast(notify.LevelSuccess, "Progress Updated", "")
	return Result{}, nil
}

func (s *StudentDashboard) startViva(args map[string]string) (Result, error) {
	id, err := idArg(args)
	if err != nil {
		return Result{}, err
	}

	var status project.Status
	found := false
	s.settle(func() {
		for _, sub := range s.submissions {
			if sub.ID == id {
				status, found = sub.Status, true
			}
		}
	})
	if !found || (status != project.StatusApproved && status != project.StatusInProgress) {
		s.deps.toast(notify.LevelWarning, "Viva Unavailable", "The AI viva opens once the project is approved.")
		return Result{}, nil
	}
	return Result{Redirect: navigation.Build(navigation.PathAIVivaProject, navigation.Params{"projectId": strconv.FormatInt(id, 10)})}, nil
}
