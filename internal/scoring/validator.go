// Package scoring decides whether a submitted answer is correct and how many
// points it earns.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"quizmaster/internal/domain"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"
)

// FreeTextTolerance is the highest accepted edit distance relative to the
// length of the expected free-text answer.
const FreeTextTolerance = 0.15

// Verdict is the result of validating one submission.
type Verdict struct {
	IsCorrect         bool
	PointsEarned      int
	CorrectSelected   int
	IncorrectSelected int
}

// Validator scores submissions. It never fails: malformed questions score zero
// and are reported as data integrity warnings.
type Validator struct {
	log logrus.FieldLogger
}

func NewValidator(log logrus.FieldLogger) *Validator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Validator{log: log}
}

// Validate scores resp against the correct answer of q.
func (v *Validator) Validate(q domain.Question, resp domain.Response) Verdict {
	points := q.PointValue()

	switch key := q.Answer.(type) {
	case domain.BooleanKey:
		r, ok := resp.(domain.BoolResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return allOrNothing(r.Value == key.Value, points)

	case domain.ChoiceKey:
		r, ok := resp.(domain.TextResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return allOrNothing(strings.EqualFold(r.Value, key.Value), points)

	case domain.TextKey:
		r, ok := resp.(domain.TextResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return allOrNothing(FuzzyMatch(r.Value, key.Value), points)

	case domain.MultiChoiceKey:
		r, ok := resp.(domain.SelectionResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return scoreSelection(key.Values, r.Values, points)

	case domain.SequenceKey:
		r, ok := resp.(domain.OrderResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return allOrNothing(sameSequence(r.Items, key.Items), points)

	case domain.PairingKey:
		r, ok := resp.(domain.MatchResponse)
		if !ok {
			return v.mismatch(q, resp)
		}
		return allOrNothing(samePairing(key.Pairs, r.Assignments), points)

	default:
		v.warn(q, fmt.Sprintf("unsupported question type %q", q.Type))
		return Verdict{}
	}
}

func (v *Validator) mismatch(q domain.Question, resp domain.Response) Verdict {
	v.warn(q, fmt.Sprintf("response %T does not match question type %q", resp, q.Type))
	return Verdict{}
}

func (v *Validator) warn(q domain.Question, detail string) {
	v.log.WithError(&domain.DataIntegrityWarning{Subject: "question " + q.ID, Detail: detail}).
		WithFields(logrus.Fields{
			"question_id":   q.ID,
			"question_type": q.Type,
		}).Warn("question scored as incorrect")
}

func allOrNothing(correct bool, points int) Verdict {
	if !correct {
		return Verdict{}
	}
	return Verdict{IsCorrect: true, PointsEarned: points}
}

// FuzzyMatch compares free-text answers case-insensitively and tolerates an
// edit distance of up to FreeTextTolerance of the expected length.
func FuzzyMatch(submitted, expected string) bool {
	user := strings.ToLower(strings.TrimSpace(submitted))
	target := strings.ToLower(strings.TrimSpace(expected))
	length := utf8.RuneCountInString(target)
	if length == 0 {
		return user == ""
	}
	ratio := float64(levenshtein.ComputeDistance(user, target)) / float64(length)
	return ratio <= FreeTextTolerance
}

// scoreSelection applies partial credit: each correct option is worth
// points/|C| and each wrong option costs the same amount.
func scoreSelection(correct, selected []string, points int) Verdict {
	want := toSet(correct)
	got := toSet(selected)

	verdict := Verdict{}
	for option := range got {
		if _, ok := want[option]; ok {
			verdict.CorrectSelected++
		} else {
			verdict.IncorrectSelected++
		}
	}

	if len(want) == 0 {
		if len(got) == 0 {
			return Verdict{IsCorrect: true, PointsEarned: points}
		}
		return verdict
	}

	if verdict.CorrectSelected == len(want) && verdict.IncorrectSelected == 0 {
		verdict.IsCorrect = true
		verdict.PointsEarned = points
		return verdict
	}

	perOption := float64(points) / float64(len(want))
	raw := float64(verdict.CorrectSelected)*perOption - float64(verdict.IncorrectSelected)*perOption
	verdict.PointsEarned = int(math.Round(math.Max(0, raw)))
	return verdict
}

func sameSequence(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// samePairing checks a right->left assignment against a left->right key.
func samePairing(key map[string]string, assignments map[string]string) bool {
	if len(assignments) != len(key) {
		return false
	}
	for left, right := range key {
		if assignments[right] != left {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
