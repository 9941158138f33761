package screen

import (
	"context"
	"errors"

	"github.com/aipms/client/internal/api"
	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/navigation"
	"github.com/aipms/client/internal/notify"
)

const (
	submitRequired = "Project Title and Abstract Text are required."
	submitFailed   = "Submission failed. Please check your connection and try again."
	similarDefault = "High similarity detected with an existing project."
)

// Blocked is the panel shown when the server rejects a submission as too
// similar to an existing project.
type Blocked struct {
	Detail         string                  `json:"detail"`
	Suggestions    string                  `json:"suggestions,omitempty"`
	SimilarProject *project.SimilarProject `json:"similar_project,omitempty"`
}

// ProjectSubmission submits a new proposal.
type ProjectSubmission struct {
	lifecycle
	deps    Deps
	blocked *Blocked
}

// NewProjectSubmission creates the submission form.
func NewProjectSubmission(d Deps) *ProjectSubmission {
	s := &ProjectSubmission{deps: d}
	s.init()
	return s
}

func (s *ProjectSubmission) Mount(context.Context) { s.mountReady() }

func (s *ProjectSubmission) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.base("New Submission")
	v.Actions = []ActionSpec{{
		Name:        "submit",
		Args:        []string{"title", "abstract"},
		Optional:    []string{"abstract_file", "audio_file"},
		Description: "Submit a proposal; files are local paths to a PDF abstract and an audio pitch",
	}}
	if s.blocked != nil {
		b := *s.blocked
		v.Lines = []string{"Submission Blocked", b.Detail}
		if b.SimilarProject != nil {
			v.Lines = append(v.Lines,
				"Similar project: "+b.SimilarProject.Title,
				"Student: "+orDash(b.SimilarProject.Student),
				b.SimilarProject.AbstractText,
			)
		}
		if b.Suggestions != "" {
			v.Lines = append(v.Lines, "Suggestions:", b.Suggestions)
		}
		v.Data = map[string]any{"blocked": b}
	}
	return v
}

func (s *ProjectSubmission) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	if name != "submit" {
		return Result{}, unknownAction(name)
	}
	sub := project.NewSubmission{
		Title:        args["title"],
		AbstractText: args["abstract"],
		AbstractFile: args["abstract_file"],
		AudioFile:    args["audio_file"],
	}

	if err := project.Validate(sub); err != nil {
		msg := submitRequired
		var verr *project.ValidationError
		if errors.As(err, &verr) {
			_, title := verr.Fields["title"]
			_, abstract := verr.Fields["abstract_text"]
			if !title && !abstract {
				msg = verr.Error()
			}
		}
		s.show("", nil, msg)
		return Result{}, nil
	}

	s.show("", nil, "")
	err := s.deps.API.SubmitProject(ctx, sub)
	var conflict *api.SimilarityConflict
	switch {
	case err == nil:
		s.deps.toast(notify.LevelSuccess, "Submission Successful!", "Your project has been sent for review.")
		return Result{Redirect: navigation.PathStudentDashboard}, nil
	case errors.As(err, &conflict):
		detail := conflict.Detail
		if detail == "" {
			detail = similarDefault
		}
		s.show(detail, conflict, "")
		return Result{}, nil
	case sessionGone(err):
		return Result{Redirect: navigation.PathLogin}, nil
	default:
		s.deps.logger().Warn("submission failed", "error", err)
		s.show("", nil, submitFailed)
		return Result{}, nil
	}
}

func (s *ProjectSubmission) show(detail string, conflict *api.SimilarityConflict, errMsg string) {
	s.settle(func() {
		s.errMsg = errMsg
		s.blocked = nil
		if conflict != nil {
			s.blocked = &Blocked{Detail: detail, Suggestions: conflict.Suggestions, SimilarProject: conflict.SimilarProject}
		}
	})
}
