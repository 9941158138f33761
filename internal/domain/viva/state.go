package viva

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// State is one step of a viva simulation. The concrete states are
// LoadingQuestions, Ready, Evaluating, Evaluated and Failed.
type State interface {
	Name() string
	isState()
}

// LoadingQuestions waits for the progress lookup and question generation.
type LoadingQuestions struct{}

// Ready accepts an answer for question Index.
type Ready struct {
	Index int
}

// Evaluating waits for the evaluation of the answer to question Index.
type Evaluating struct {
	Index int
}

// Evaluated holds the evaluation of the answer to question Index.
type Evaluated struct {
	Index  int
	Result Evaluation
}

// Failed is terminal for the simulation.
type Failed struct {
	Reason string
}

func (LoadingQuestions) Name() string { return "loading_questions" }
func (Ready) Name() string            { return "ready" }
func (Evaluating) Name() string       { return "evaluating" }
func (Evaluated) Name() string        { return "evaluated" }
func (Failed) Name() string           { return "failed" }

func (LoadingQuestions) isState() {}
func (Ready) isState()            {}
func (Evaluating) isState()       {}
func (Evaluated) isState()        {}
func (Failed) isState()           {}

// Evaluation is the AI verdict on one answer.
type Evaluation struct {
	Score    Score  `json:"score"`
	Feedback string `json:"feedback"`
}

// Score is the evaluation score as sent by the server, which may be a JSON
// number or a string such as "7/10".
type Score string

// UnmarshalJSON accepts a number, a string or null.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Score(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("score must be a number or string: %w", err)
	}
	*s = Score(n.String())
	return nil
}

// MarshalJSON emits numeric scores as numbers.
func (s Score) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(s), 64); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}
