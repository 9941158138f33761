package viva

import (
	"context"
	"fmt"
	"log/slog"
)

// API is the backend surface a simulation needs.
type API interface {
	Progress(ctx context.Context, projectID int64) (int, error)
	VivaQuestions(ctx context.Context, projectID int64, progress int) ([]string, error)
	EvaluateAnswer(ctx context.Context, projectID int64, question, answer string) (Evaluation, error)
}

// Simulation drives a Machine against the backend.
type Simulation struct {
	api     API
	machine *Machine
	logger  *slog.Logger
}

// NewSimulation creates a simulation for projectID.
func NewSimulation(api API, projectID int64, logger *slog.Logger) *Simulation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulation{api: api, machine: NewMachine(projectID), logger: logger}
}

// Machine returns the underlying state machine.
func (s *Simulation) Machine() *Machine {
	return s.machine
}

// Start fetches the project progress and generates the question list.
// On failure the machine ends in Failed and the cause is returned.
func (s *Simulation) Start(ctx context.Context) error {
	if _, ok := s.machine.State().(LoadingQuestions); !ok {
		return nil
	}
	id := s.machine.ProjectID()

	progress, err := s.api.Progress(ctx, id)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("fetching progress: %w", err))
	}
	questions, err := s.api.VivaQuestions(ctx, id, progress)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("generating questions: %w", err))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Debug("viva questions generated", "project_id", id, "progress", progress, "count", len(questions))
	return s.machine.QuestionsLoaded(progress, questions)
}

// Answer records answer text for the current question.
func (s *Simulation) Answer(text string) error {
	return s.machine.SetAnswer(text)
}

// Submit sends the current answer for evaluation. A failed evaluation
// returns the machine to Ready for the same question.
func (s *Simulation) Submit(ctx context.Context) (Evaluation, error) {
	question, answer, err := s.machine.BeginEvaluation()
	if err != nil {
		return Evaluation{}, err
	}

	result, err := s.api.EvaluateAnswer(ctx, s.machine.ProjectID(), question, answer)
	if err != nil {
		if rerr := s.machine.EvaluationFailed(); rerr != nil {
			return Evaluation{}, rerr
		}
		return Evaluation{}, fmt.Errorf("evaluating answer: %w", err)
	}
	if err := s.machine.EvaluationSucceeded(result); err != nil {
		return Evaluation{}, err
	}
	return result, nil
}

// Next advances to the following question.
func (s *Simulation) Next() error {
	return s.machine.Next()
}

func (s *Simulation) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Warn("viva setup failed", "project_id", s.machine.ProjectID(), "error", err)
	if ferr := s.machine.LoadFailed(ReasonGenerateFailed); ferr != nil {
		return ferr
	}
	return err
}
