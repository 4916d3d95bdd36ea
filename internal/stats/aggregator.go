// Package stats derives longitudinal statistics from attempt history.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"quizmaster/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	// MaxLevel caps the level computed from accumulated points.
	MaxLevel = 50
	// BaseLevelXP is the XP needed to leave level 1.
	BaseLevelXP = 100
	// LevelGrowth multiplies the XP threshold at every level.
	LevelGrowth = 1.2
)

// Aggregator recomputes Stats from the full history. It keeps no state between calls.
type Aggregator struct {
	log logrus.FieldLogger
}

func NewAggregator(log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{log: log}
}

// Recompute builds Stats from history. held is carried into the result
// unchanged apart from sorting and de-duplication.
func (a *Aggregator) Recompute(history []domain.Attempt, held []string) domain.Stats {
	out := domain.Stats{
		Quizzes: make(map[string]domain.QuizStats),
		Badges:  normalizeBadges(held),
	}

	ids := make(map[string]struct{}, len(history))
	for _, attempt := range history {
		if attempt.AttemptID != "" {
			ids[attempt.AttemptID] = struct{}{}
		}
	}
	out.TotalQuizzes = len(ids)
	if out.TotalQuizzes == 0 {
		out.TotalQuizzes = len(history)
	}

	for _, attempt := range history {
		if attempt.QuizID == "" {
			continue
		}
		correct, total := a.attemptScore(attempt)

		out.TotalAnswers += total
		out.CorrectAnswers += correct
		out.TotalPoints += attempt.Points
		if attempt.MaxStreak > out.LongestStreak {
			out.LongestStreak = attempt.MaxStreak
		}

		qs, ok := out.Quizzes[attempt.QuizID]
		if !ok {
			qs = domain.QuizStats{BestCorrect: -1, BestPoints: math.MinInt}
		}
		qs.Attempts++
		qs.TotalQuestions += total
		qs.CorrectAnswers += correct
		qs.TotalPoints += attempt.Points
		if correct > qs.BestCorrect {
			qs.BestCorrect = correct
			qs.BestTotal = total
			qs.BestPoints = attempt.Points
		} else if correct == qs.BestCorrect && attempt.Points > qs.BestPoints {
			qs.BestTotal = total
			qs.BestPoints = attempt.Points
		}
		out.Quizzes[attempt.QuizID] = qs
	}

	out.AvgAccuracy = percent(out.CorrectAnswers, out.TotalAnswers)
	for id, qs := range out.Quizzes {
		qs.AvgAccuracy = percent(qs.CorrectAnswers, qs.TotalQuestions)
		qs.BestScore = FormatScore(qs.BestCorrect, qs.BestTotal)
		out.Quizzes[id] = qs
	}

	out.Level, out.XP, out.XPNextLevel = Level(out.TotalPoints)
	return out
}

// attemptScore parses the "C/T" score of an attempt. Malformed values are
// logged and replaced by zero correct over the recorded question count.
func (a *Aggregator) attemptScore(attempt domain.Attempt) (int, int) {
	fallback := attempt.TotalQuestions
	if fallback == 0 {
		fallback = len(attempt.Answers)
	}
	correct, total, err := ParseScore(attempt.Score, fallback)
	if err != nil {
		a.log.WithError(&domain.DataIntegrityWarning{Subject: "attempt " + attempt.AttemptID, Detail: err.Error()}).
			WithFields(logrus.Fields{
				"attempt_id": attempt.AttemptID,
				"quiz_id":    attempt.QuizID,
				"score":      attempt.Score,
			}).Warn("malformed attempt score")
	}
	return correct, total
}

// ParseScore reads "C/T". A missing or non-positive denominator falls back to
// fallbackTotal, raised to C when C exceeds it. The returned counts are
// always usable, even when err is non-nil.
func ParseScore(score string, fallbackTotal int) (int, int, error) {
	parts := strings.Split(score, "/")
	if len(parts) != 2 {
		return 0, fallbackTotal, fmt.Errorf("score %q is not of the form C/T", score)
	}

	var parseErr error
	correct, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || correct < 0 {
		correct = 0
		parseErr = fmt.Errorf("score %q has an invalid numerator", score)
	}

	total, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err == nil && total > 0 {
		return correct, total, parseErr
	}
	if correct > fallbackTotal {
		return correct, correct, parseErr
	}
	return correct, fallbackTotal, parseErr
}

// FormatScore renders a score as "C/T", or "N/A" when no score exists.
func FormatScore(correct, total int) string {
	if correct < 0 {
		return "N/A"
	}
	return fmt.Sprintf("%d/%d", correct, total)
}

// Level converts accumulated points into a level, the XP carried into that
// level and the XP needed for the next one.
func Level(points int) (level, xp, next int) {
	level, xp, next = 1, points, BaseLevelXP
	for xp >= next && level < MaxLevel {
		xp -= next
		level++
		next = int(math.Floor(BaseLevelXP * math.Pow(LevelGrowth, float64(level-1))))
	}
	return level, xp, next
}

// RecentMistakes returns the distinct question IDs answered incorrectly in the
// n most recent attempts of quizID, in order of first appearance.
func RecentMistakes(history []domain.Attempt, quizID string, n int) []string {
	relevant := make([]domain.Attempt, 0, len(history))
	for _, attempt := range history {
		if attempt.QuizID == quizID {
			relevant = append(relevant, attempt)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Date.After(relevant[j].Date)
	})
	if n > 0 && len(relevant) > n {
		relevant = relevant[:n]
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, attempt := range relevant {
		for _, answer := range attempt.Answers {
			if answer.IsCorrect || answer.QuestionID == "" {
				continue
			}
			if _, ok := seen[answer.QuestionID]; ok {
				continue
			}
			seen[answer.QuestionID] = struct{}{}
			ids = append(ids, answer.QuestionID)
		}
	}
	return ids
}

// QuizAverage is the mean recorded accuracy over the attempts of quizID.
func QuizAverage(history []domain.Attempt, quizID string) (float64, bool) {
	sum, n := 0.0, 0
	for _, attempt := range history {
		if attempt.QuizID == quizID {
			sum += attempt.Accuracy
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func normalizeBadges(held []string) []string {
	set := make(map[string]struct{}, len(held))
	out := make([]string, 0, len(held))
	for _, id := range held {
		if id == "" {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
