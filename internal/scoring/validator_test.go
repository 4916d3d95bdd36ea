package scoring

import (
	"encoding/json"
	"testing"

	"quizmaster/internal/domain"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func points(n int) *int { return &n }

func newValidator() (*Validator, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return NewValidator(logger), hook
}

func TestValidateBoolean(t *testing.T) {
	v, _ := newValidator()
	q := domain.Question{ID: "q1", Type: domain.TypeBoolean, Answer: domain.BooleanKey{Value: true}}

	verdict := v.Validate(q, domain.BoolResponse{Value: true})
	assert.True(t, verdict.IsCorrect)
	assert.Equal(t, domain.DefaultPoints, verdict.PointsEarned)

	verdict = v.Validate(q, domain.BoolResponse{Value: false})
	assert.False(t, verdict.IsCorrect)
	assert.Zero(t, verdict.PointsEarned)
}

func TestValidateSingleChoiceIgnoresCase(t *testing.T) {
	v, _ := newValidator()
	q := domain.Question{ID: "q1", Type: domain.TypeSingleChoice, Answer: domain.ChoiceKey{Value: "Paris"}, Points: points(4)}

	for _, answer := range []string{"Paris", "paris", "PARIS"} {
		verdict := v.Validate(q, domain.TextResponse{Value: answer})
		assert.True(t, verdict.IsCorrect, answer)
		assert.Equal(t, 4, verdict.PointsEarned, answer)
	}
	assert.False(t, v.Validate(q, domain.TextResponse{Value: "Lyon"}).IsCorrect)
}

func TestValidateFreeText(t *testing.T) {
	v, _ := newValidator()
	cases := []struct {
		name     string
		expected string
		answer   string
		correct  bool
	}{
		{"exact", "Photosynthesis", "Photosynthesis", true},
		{"trim and case", "Photosynthesis", "  photosynthesis ", true},
		{"one edit on seven chars", "Bastion", "Bastian", true},
		{"one deletion on seven chars", "Bastion", "Bastin", true},
		{"three edits on ten chars", "Abcdefghij", "Abcdefgxyz", false},
		{"unrelated", "Mitochondria", "Ribosome", false},
		{"empty expected accepts empty", "", "  ", true},
		{"empty expected rejects text", "", "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := domain.Question{ID: "q", Type: domain.TypeFreeText, Answer: domain.TextKey{Value: tc.expected}}
			verdict := v.Validate(q, domain.TextResponse{Value: tc.answer})
			assert.Equal(t, tc.correct, verdict.IsCorrect)
			if tc.correct {
				assert.Equal(t, domain.DefaultPoints, verdict.PointsEarned)
			} else {
				assert.Zero(t, verdict.PointsEarned)
			}
		})
	}
}

func TestValidateFreeTextAcceptsOwnAnswer(t *testing.T) {
	v, _ := newValidator()
	for _, expected := range []string{"a", "Rome", "The French Revolution", "1789", "Ça va"} {
		q := domain.Question{ID: "q", Type: domain.TypeFreeText, Answer: domain.TextKey{Value: expected}}
		assert.True(t, v.Validate(q, domain.TextResponse{Value: expected}).IsCorrect, expected)
	}
}

func TestValidateMultiSelect(t *testing.T) {
	v, _ := newValidator()

	t.Run("exact set earns full points", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{Values: []string{"A", "B", "C"}}, Points: points(10)}
		verdict := v.Validate(q, domain.SelectionResponse{Values: []string{"C", "A", "B"}})
		assert.True(t, verdict.IsCorrect)
		assert.Equal(t, 10, verdict.PointsEarned)
		assert.Equal(t, 3, verdict.CorrectSelected)
		assert.Zero(t, verdict.IncorrectSelected)
	})

	t.Run("half of four correct", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{Values: []string{"A", "B", "C", "D"}}, Points: points(10)}
		verdict := v.Validate(q, domain.SelectionResponse{Values: []string{"A", "B"}})
		assert.False(t, verdict.IsCorrect)
		assert.Equal(t, 5, verdict.PointsEarned)
	})

	t.Run("one wrong option cancels one right option", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{Values: []string{"A", "B", "C"}}, Points: points(30)}
		verdict := v.Validate(q, domain.SelectionResponse{Values: []string{"A", "B", "D"}})
		assert.False(t, verdict.IsCorrect)
		assert.Equal(t, 2, verdict.CorrectSelected)
		assert.Equal(t, 1, verdict.IncorrectSelected)
		assert.Equal(t, 10, verdict.PointsEarned)
	})

	t.Run("never negative", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{Values: []string{"A", "B"}}, Points: points(10)}
		verdict := v.Validate(q, domain.SelectionResponse{Values: []string{"X", "Y", "A"}})
		assert.False(t, verdict.IsCorrect)
		assert.Zero(t, verdict.PointsEarned)
	})

	t.Run("case sensitive", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{Values: []string{"A"}}}
		assert.False(t, v.Validate(q, domain.SelectionResponse{Values: []string{"a"}}).IsCorrect)
	})

	t.Run("empty correct set", func(t *testing.T) {
		q := domain.Question{ID: "q", Type: domain.TypeMultiChoice, Answer: domain.MultiChoiceKey{}, Points: points(6)}
		verdict := v.Validate(q, domain.SelectionResponse{})
		assert.True(t, verdict.IsCorrect)
		assert.Equal(t, 6, verdict.PointsEarned)
		assert.False(t, v.Validate(q, domain.SelectionResponse{Values: []string{"A"}}).IsCorrect)
	})
}

func TestValidateReorder(t *testing.T) {
	v, _ := newValidator()
	q := domain.Question{ID: "q", Type: domain.TypeReorder, Answer: domain.SequenceKey{Items: []string{"one", "two", "three"}}}

	assert.True(t, v.Validate(q, domain.OrderResponse{Items: []string{"one", "two", "three"}}).IsCorrect)
	assert.False(t, v.Validate(q, domain.OrderResponse{Items: []string{"two", "one", "three"}}).IsCorrect)
	assert.False(t, v.Validate(q, domain.OrderResponse{Items: []string{"One", "two", "three"}}).IsCorrect)
	assert.False(t, v.Validate(q, domain.OrderResponse{Items: []string{"one", "two"}}).IsCorrect)
}

func TestValidateMatchPairs(t *testing.T) {
	v, _ := newValidator()
	q := domain.Question{
		ID:     "q",
		Type:   domain.TypeMatchPairs,
		Answer: domain.PairingKey{Pairs: map[string]string{"France": "Paris", "Italy": "Rome"}},
	}

	verdict := v.Validate(q, domain.MatchResponse{Assignments: map[string]string{"Paris": "France", "Rome": "Italy"}})
	assert.True(t, verdict.IsCorrect)
	assert.Equal(t, domain.DefaultPoints, verdict.PointsEarned)

	swapped := v.Validate(q, domain.MatchResponse{Assignments: map[string]string{"Paris": "Italy", "Rome": "France"}})
	assert.False(t, swapped.IsCorrect)

	partial := v.Validate(q, domain.MatchResponse{Assignments: map[string]string{"Paris": "France"}})
	assert.False(t, partial.IsCorrect)
	assert.Zero(t, partial.PointsEarned)

	extra := v.Validate(q, domain.MatchResponse{Assignments: map[string]string{"Paris": "France", "Rome": "Italy", "Berlin": "Italy"}})
	assert.False(t, extra.IsCorrect)
}

func TestValidateUnknownTypeWarns(t *testing.T) {
	v, hook := newValidator()
	q := domain.Question{ID: "q9", Type: "hotspot", Answer: domain.UnknownKey{Raw: json.RawMessage(`{"x":1}`)}}

	verdict := v.Validate(q, domain.RawResponse{Raw: json.RawMessage(`1`)})
	assert.Equal(t, Verdict{}, verdict)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "q9", hook.LastEntry().Data["question_id"])
}

func TestValidateMismatchedResponseWarns(t *testing.T) {
	v, hook := newValidator()
	q := domain.Question{ID: "q1", Type: domain.TypeBoolean, Answer: domain.BooleanKey{Value: true}}

	verdict := v.Validate(q, domain.TextResponse{Value: "true"})
	assert.False(t, verdict.IsCorrect)
	assert.Len(t, hook.AllEntries(), 1)
}
