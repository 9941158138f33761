package viva

import (
	"fmt"
	"strings"
	"sync"
)

// Machine tracks one viva simulation for a single project. It is safe for
// concurrent use.
type Machine struct {
	mu        sync.Mutex
	projectID int64
	progress  int
	questions []string
	answer    string
	state     State
}

// Snapshot is a consistent copy of the machine for rendering.
type Snapshot struct {
	State      State
	ProjectID  int64
	Progress   int
	Total      int
	Question   string
	Answer     string
	IsLast     bool
	Evaluation *Evaluation
}

// NewMachine starts a simulation for projectID. A non-positive id fails
// immediately.
func NewMachine(projectID int64) *Machine {
	m := &Machine{projectID: projectID, state: LoadingQuestions{}}
	if projectID <= 0 {
		m.state = Failed{Reason: ReasonMissingProject}
	}
	return m
}

// ProjectID returns the project the simulation is about.
func (m *Machine) ProjectID() int64 {
	return m.projectID
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the machine.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:     m.state,
		ProjectID: m.projectID,
		Progress:  m.progress,
		Total:     len(m.questions),
		Answer:    m.answer,
	}
	idx := -1
	switch s := m.state.(type) {
	case Ready:
		idx = s.Index
	case Evaluating:
		idx = s.Index
	case Evaluated:
		idx = s.Index
		result := s.Result
		snap.Evaluation = &result
	}
	if idx >= 0 {
		snap.Question = m.questions[idx]
		snap.IsLast = idx == len(m.questions)-1
	}
	return snap
}

// QuestionsLoaded moves LoadingQuestions to Ready(0). An empty question list
// fails the simulation.
func (m *Machine) QuestionsLoaded(progress int, questions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(LoadingQuestions); !ok {
		return m.invalid("load questions")
	}
	m.progress = progress
	if len(questions) == 0 {
		m.state = Failed{Reason: ReasonNoQuestions}
		return nil
	}
	m.questions = append([]string(nil), questions...)
	m.answer = ""
	m.state = Ready{Index: 0}
	return nil
}

// LoadFailed moves LoadingQuestions to Failed.
func (m *Machine) LoadFailed(reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(LoadingQuestions); !ok {
		return m.invalid("fail loading")
	}
	m.state = Failed{Reason: reason}
	return nil
}

// SetAnswer records the answer text for the current question.
func (m *Machine) SetAnswer(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(Ready); !ok {
		return m.invalid("set answer")
	}
	m.answer = text
	return nil
}

// BeginEvaluation moves Ready(i) to Evaluating(i) and returns the question
// and answer to send.
func (m *Machine) BeginEvaluation() (question, answer string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ready, ok := m.state.(Ready)
	if !ok {
		return "", "", m.invalid("evaluate")
	}
	if strings.TrimSpace(m.answer) == "" {
		return "", "", ErrEmptyAnswer
	}
	m.state = Evaluating{Index: ready.Index}
	return m.questions[ready.Index], m.answer, nil
}

// EvaluationSucceeded moves Evaluating(i) to Evaluated(i).
func (m *Machine) EvaluationSucceeded(result Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evaluating, ok := m.state.(Evaluating)
	if !ok {
		return m.invalid("complete evaluation")
	}
	m.state = Evaluated{Index: evaluating.Index, Result: result}
	return nil
}

// EvaluationFailed moves Evaluating(i) back to Ready(i), keeping the answer.
func (m *Machine) EvaluationFailed() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evaluating, ok := m.state.(Evaluating)
	if !ok {
		return m.invalid("fail evaluation")
	}
	m.state = Ready{Index: evaluating.Index}
	return nil
}

// Next moves Evaluated(i) to Ready(i+1), clearing the answer.
func (m *Machine) Next() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	evaluated, ok := m.state.(Evaluated)
	if !ok {
		return m.invalid("advance")
	}
	if evaluated.Index+1 >= len(m.questions) {
		return ErrLastQuestion
	}
	m.answer = ""
	m.state = Ready{Index: evaluated.Index + 1}
	return nil
}

func (m *Machine) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, op, m.state.Name())
}
