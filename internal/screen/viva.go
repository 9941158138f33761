package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aipms/client/internal/domain/project"
	"github.com/aipms/client/internal/domain/viva"
	"github.com/aipms/client/internal/notify"
)

// AIViva runs an oral exam simulation for one project.
type AIViva struct {
	lifecycle
	deps Deps
	sim  *viva.Simulation
}

// NewAIViva creates the simulation screen. rawID is the route parameter; an
// empty or malformed id fails the simulation.
func NewAIViva(d Deps, rawID string) *AIViva {
	var id int64
	if strings.TrimSpace(rawID) != "" {
		if parsed, err := project.ParseID(rawID); err == nil {
			id = parsed
		}
	}
	s := &AIViva{deps: d, sim: viva.NewSimulation(d.API, id, d.Logger)}
	s.init()
	return s
}

// Machine exposes the simulation state.
func (s *AIViva) Machine() *viva.Machine {
	return s.sim.Machine()
}

func (s *AIViva) Mount(ctx context.Context) {
	s.mount()
	go func() {
		defer s.markReady()

		err := s.sim.Start(ctx)
		s.settle(func() {
			s.status = StatusReady
			if failed, ok := s.sim.Machine().State().(viva.Failed); ok {
				s.status = StatusError
				s.errMsg = failed.Reason
				if err != nil {
					s.deps.toast(notify.LevelError, "Simulation Error", "Failed to generate questions. The project might not be approved yet.")
				}
			}
		})
	}()
}

func (s *AIViva) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.sim.Machine().Snapshot()
	v := s.base("AI Viva Simulation")
	v.Actions = []ActionSpec{
		{Name: "answer", Args: []string{"text"}, Description: "Submit an answer to the current question"},
		{Name: "next", Description: "Move to the next question after an evaluation"},
	}
	if snap.ProjectID > 0 {
		v.Lines = append(v.Lines, fmt.Sprintf("Project ID: %d", snap.ProjectID))
	}

	switch st := snap.State.(type) {
	case viva.LoadingQuestions:
		v.Lines = append(v.Lines, "Generating questions...")
	case viva.Failed:
		v.Lines = append(v.Lines, st.Reason)
	default:
		idx := 0
		switch st := st.(type) {
		case viva.Ready:
			idx = st.Index
		case viva.Evaluating:
			idx = st.Index
		case viva.Evaluated:
			idx = st.Index
		}
		v.Lines = append(v.Lines,
			fmt.Sprintf("Simulation based on %d%% project progress.", snap.Progress),
			fmt.Sprintf("Question %d of %d: %s", idx+1, snap.Total, snap.Question),
		)
		if snap.Answer != "" {
			v.Lines = append(v.Lines, "Your answer: "+snap.Answer)
		}
		if _, ok := st.(viva.Evaluating); ok {
			v.Lines = append(v.Lines, "Evaluating...")
		}
		if snap.Evaluation != nil {
			v.Lines = append(v.Lines,
				"Score: "+string(snap.Evaluation.Score),
				"Feedback: "+snap.Evaluation.Feedback,
			)
			if snap.IsLast {
				v.Lines = append(v.Lines, "This was the last question.")
			}
		}
	}

	v.Data = map[string]any{
		"state":      snap.State.Name(),
		"project_id": snap.ProjectID,
		"progress":   snap.Progress,
		"total":      snap.Total,
		"question":   snap.Question,
		"answer":     snap.Answer,
		"is_last":    snap.IsLast,
		"evaluation": snap.Evaluation,
	}
	return v
}

func (s *AIViva) Action(ctx context.Context, name string, args map[string]string) (Result, error) {
	switch name {
	case "answer":
		text, err := arg(args, "text")
		if err != nil {
			return Result{}, err
		}
		return s.answer(ctx, text)
	case "next":
		err := s.sim.Next()
		switch {
		case errors.Is(err, viva.ErrLastQuestion):
			s.deps.toast(notify.LevelInfo, "Viva Complete", "This was the last question.")
			return Result{}, nil
		case errors.Is(err, viva.ErrInvalidTransition):
			s.deps.toast(notify.LevelWarning, "Not Yet", "Answer the current question first.")
			return Result{}, nil
		}
		return Result{}, err
	default:
		return Result{}, unknownAction(name)
	}
}

func (s *AIViva) answer(ctx context.Context, text string) (Result, error) {
	if err := s.sim.Answer(text); err != nil {
		s.deps.toast(notify.LevelWarning, "Not Ready", "There is no question waiting for an answer.")
		return Result{}, nil
	}

	_, err := s.sim.Submit(ctx)
	switch {
	case err == nil:
		return Result{}, nil
	case errors.Is(err, viva.ErrEmptyAnswer):
		s.deps.toast(notify.LevelWarning, "Empty Answer", "Please write an answer first.")
		return Result{}, nil
	case errors.Is(err, viva.ErrInvalidTransition):
		return Result{}, nil
	}

	s.settle(func() {
		s.deps.toast(notify.LevelError, "Evaluation Failed", "The AI could not process your answer. Please try again.")
	})
	return Result{}, nil
}
