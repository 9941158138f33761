package viva_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aipms/client/internal/domain/viva"
)

func loadedMachine(t *testing.T, questions ...string) *viva.Machine {
	t.Helper()
	m := viva.NewMachine(7)
	require.NoError(t, m.QuestionsLoaded(40, questions))
	return m
}

func TestMachine_MissingProjectFails(t *testing.T) {
	m := viva.NewMachine(0)
	require.Equal(t, viva.Failed{Reason: viva.ReasonMissingProject}, m.State())
	require.ErrorIs(t, m.QuestionsLoaded(10, []string{"q"}), viva.ErrInvalidTransition)
}

func TestMachine_EmptyQuestionListFails(t *testing.T) {
	m := viva.NewMachine(7)
	require.NoError(t, m.QuestionsLoaded(10, nil))
	require.Equal(t, viva.Failed{Reason: viva.ReasonNoQuestions}, m.State())
}

func TestMachine_FullWalkthrough(t *testing.T) {
	m := loadedMachine(t, "q1", "q2")
	require.Equal(t, viva.Ready{Index: 0}, m.State())

	snap := m.Snapshot()
	require.Equal(t, "q1", snap.Question)
	require.Equal(t, 40, snap.Progress)
	require.Equal(t, 2, snap.Total)
	require.False(t, snap.IsLast)

	require.NoError(t, m.SetAnswer("my answer"))
	q, a, err := m.BeginEvaluation()
	require.NoError(t, err)
	require.Equal(t, "q1", q)
	require.Equal(t, "my answer", a)
	require.Equal(t, viva.Evaluating{Index: 0}, m.State())

	result := viva.Evaluation{Score: "8", Feedback: "good"}
	require.NoError(t, m.EvaluationSucceeded(result))
	require.Equal(t, viva.Evaluated{Index: 0, Result: result}, m.State())
	require.Equal(t, &result, m.Snapshot().Evaluation)

	require.NoError(t, m.Next())
	require.Equal(t, viva.Ready{Index: 1}, m.State())
	snap = m.Snapshot()
	require.Empty(t, snap.Answer, "answer is cleared for the next question")
	require.Nil(t, snap.Evaluation)
	require.True(t, snap.IsLast)

	require.NoError(t, m.SetAnswer("second"))
	_, _, err = m.BeginEvaluation()
	require.NoError(t, err)
	require.NoError(t, m.EvaluationSucceeded(viva.Evaluation{Score: "5"}))
	require.ErrorIs(t, m.Next(), viva.ErrLastQuestion)
	require.Equal(t, viva.Evaluated{Index: 1, Result: viva.Evaluation{Score: "5"}}, m.State())
}

func TestMachine_CannotAdvanceWithoutEvaluation(t *testing.T) {
	m := loadedMachine(t, "q1", "q2")

	require.ErrorIs(t, m.Next(), viva.ErrInvalidTransition)

	require.NoError(t, m.SetAnswer("x"))
	_, _, err := m.BeginEvaluation()
	require.NoError(t, err)
	require.ErrorIs(t, m.Next(), viva.ErrInvalidTransition)

	require.NoError(t, m.EvaluationFailed())
	require.Equal(t, viva.Ready{Index: 0}, m.State())
	require.Equal(t, "x", m.Snapshot().Answer, "answer survives a failed evaluation")
	require.ErrorIs(t, m.Next(), viva.ErrInvalidTransition)
}

func TestMachine_EmptyAnswerRejected(t *testing.T) {
	m := loadedMachine(t, "q1")

	_, _, err := m.BeginEvaluation()
	require.ErrorIs(t, err, viva.ErrEmptyAnswer)

	require.NoError(t, m.SetAnswer("   \n"))
	_, _, err = m.BeginEvaluation()
	require.ErrorIs(t, err, viva.ErrEmptyAnswer)
	require.Equal(t, viva.Ready{Index: 0}, m.State())
}

func TestMachine_NoAnswerWhileEvaluating(t *testing.T) {
	m := loadedMachine(t, "q1")
	require.NoError(t, m.SetAnswer("a"))
	_, _, err := m.BeginEvaluation()
	require.NoError(t, err)

	require.ErrorIs(t, m.SetAnswer("b"), viva.ErrInvalidTransition)
	_, _, err = m.BeginEvaluation()
	require.ErrorIs(t, err, viva.ErrInvalidTransition)
}

func TestMachine_IndexNeverDecreases(t *testing.T) {
	m := loadedMachine(t, "q1", "q2", "q3")

	last := 0
	for i := 0; i < 6; i++ {
		_ = m.SetAnswer("a")
		if _, _, err := m.BeginEvaluation(); err == nil {
			if i%2 == 0 {
				_ = m.EvaluationFailed()
			} else {
				_ = m.EvaluationSucceeded(viva.Evaluation{Score: "1"})
				_ = m.Next()
			}
		}
		var idx int
		switch s := m.State().(type) {
		case viva.Ready:
			idx = s.Index
		case viva.Evaluated:
			idx = s.Index
		}
		require.GreaterOrEqual(t, idx, last)
		last = idx
	}
}

func TestScore_JSON(t *testing.T) {
	tests := []struct {
		raw  string
		want viva.Score
		out  string
	}{
		{raw: `{"score": 8, "feedback": "ok"}`, want: "8", out: `8`},
		{raw: `{"score": 7.5}`, want: "7.5", out: `7.5`},
		{raw: `{"score": "7/10"}`, want: "7/10", out: `"7/10"`},
		{raw: `{"score": null}`, want: "", out: `""`},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var e viva.Evaluation
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			require.Equal(t, tt.want, e.Score)

			out, err := json.Marshal(e.Score)
			require.NoError(t, err)
			require.JSONEq(t, tt.out, string(out))
		})
	}

	var e viva.Evaluation
	require.Error(t, json.Unmarshal([]byte(`{"score": true}`), &e))
}
