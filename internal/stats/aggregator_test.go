package stats

import (
	"testing"
	"time"

	"quizmaster/internal/domain"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attempt(id, quizID, score string, points, streak int, at time.Time) domain.Attempt {
	return domain.Attempt{
		AttemptID: id,
		QuizID:    quizID,
		Score:     score,
		Points:    points,
		MaxStreak: streak,
		Date:      at,
	}
}

func TestRecomputeTotalsAndBreakdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	agg := NewAggregator(logger)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	history := []domain.Attempt{
		attempt("a1", "quiz-1", "3/5", 30, 2, base),
		attempt("a2", "quiz-1", "4/5", 35, 4, base.Add(time.Hour)),
		attempt("a3", "quiz-1", "4/5", 40, 3, base.Add(2*time.Hour)),
		attempt("a4", "quiz-2", "1/2", 10, 1, base.Add(3*time.Hour)),
	}

	stats := agg.Recompute(history, []string{"streak_5", "first_quiz", "streak_5"})

	assert.Equal(t, 4, stats.TotalQuizzes)
	assert.Equal(t, 17, stats.TotalAnswers)
	assert.Equal(t, 12, stats.CorrectAnswers)
	assert.Equal(t, 115, stats.TotalPoints)
	assert.Equal(t, 4, stats.LongestStreak)
	assert.InDelta(t, 12.0/17.0*100, stats.AvgAccuracy, 1e-9)
	assert.Equal(t, []string{"first_quiz", "streak_5"}, stats.Badges)

	q1 := stats.Quizzes["quiz-1"]
	assert.Equal(t, 3, q1.Attempts)
	assert.Equal(t, 15, q1.TotalQuestions)
	assert.Equal(t, 11, q1.CorrectAnswers)
	assert.Equal(t, "4/5", q1.BestScore)
	assert.Equal(t, 40, q1.BestPoints, "ties on correct answers are broken by points")
	assert.InDelta(t, 11.0/15.0*100, q1.AvgAccuracy, 1e-9)

	require.Contains(t, stats.Quizzes, "quiz-2")
	assert.Equal(t, "1/2", stats.Quizzes["quiz-2"].BestScore)
}

func TestRecomputeIsPureAndMonotonic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	agg := NewAggregator(logger)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []domain.Attempt{
		attempt("a1", "quiz-1", "2/3", 20, 2, base),
		attempt("a2", "quiz-2", "garbage", 5, 0, base.Add(time.Minute)),
	}
	held := []string{"first_quiz"}

	first := agg.Recompute(history, held)
	second := agg.Recompute(history, held)
	assert.Equal(t, first, second)

	grown := agg.Recompute(append(history, attempt("a3", "quiz-1", "0/3", 0, 0, base.Add(time.Hour))), held)
	assert.GreaterOrEqual(t, grown.TotalQuizzes, first.TotalQuizzes)
	assert.GreaterOrEqual(t, grown.TotalAnswers, first.TotalAnswers)
	assert.GreaterOrEqual(t, len(grown.Badges), len(first.Badges))
}

func TestRecomputeToleratesMalformedScores(t *testing.T) {
	logger, hook := test.NewNullLogger()
	agg := NewAggregator(logger)

	history := []domain.Attempt{
		{AttemptID: "a1", QuizID: "quiz-1", Score: "oops", TotalQuestions: 4, Points: 5},
		{AttemptID: "a2", QuizID: "quiz-1", Score: "3/0", TotalQuestions: 4},
		{AttemptID: "a3", QuizID: "quiz-1", Score: "6/", TotalQuestions: 4},
		{AttemptID: "a4", QuizID: "quiz-1", Score: "", Answers: []domain.AttemptAnswer{{QuestionID: "q1"}, {QuestionID: "q2"}}},
		{AttemptID: "a5", Score: "9/9"},
		{AttemptID: "a6", QuizID: "quiz-1", Score: "-2/4"},
	}

	stats := agg.Recompute(history, nil)
	assert.Equal(t, 6, stats.TotalQuizzes)
	assert.Equal(t, 4+4+6+2+4, stats.TotalAnswers)
	assert.Equal(t, 0+3+6+0+0, stats.CorrectAnswers)
	assert.Len(t, stats.Quizzes, 1)
	assert.NotEmpty(t, hook.AllEntries())
	assert.NotNil(t, stats.Badges)
}

func TestRecomputeCountsHistoryWithoutIDs(t *testing.T) {
	agg := NewAggregator(nil)
	stats := agg.Recompute([]domain.Attempt{{QuizID: "q", Score: "1/1"}, {QuizID: "q", Score: "1/1"}}, nil)
	assert.Equal(t, 2, stats.TotalQuizzes)
	assert.Equal(t, "1/1", stats.Quizzes["q"].BestScore)
}

func TestRecomputeEmptyHistory(t *testing.T) {
	stats := NewAggregator(nil).Recompute(nil, nil)
	assert.Zero(t, stats.TotalQuizzes)
	assert.Zero(t, stats.AvgAccuracy)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 100, stats.XPNextLevel)
	assert.Empty(t, stats.Quizzes)
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		score          string
		fallback       int
		correct, total int
		wantErr        bool
	}{
		{"7/10", 3, 7, 10, false},
		{" 7 / 10 ", 3, 7, 10, false},
		{"7/0", 10, 7, 10, false},
		{"12/0", 10, 12, 12, false},
		{"x/10", 10, 0, 10, true},
		{"-1/5", 10, 0, 5, true},
		{"", 5, 0, 5, true},
		{"1/2/3", 5, 0, 5, true},
	}
	for _, tc := range cases {
		correct, total, err := ParseScore(tc.score, tc.fallback)
		assert.Equal(t, tc.correct, correct, tc.score)
		assert.Equal(t, tc.total, total, tc.score)
		assert.Equal(t, tc.wantErr, err != nil, tc.score)
	}
}

func TestLevel(t *testing.T) {
	cases := []struct {
		points          int
		level, xp, next int
	}{
		{0, 1, 0, 100},
		{99, 1, 99, 100},
		{100, 2, 0, 120},
		{219, 2, 119, 120},
		{220, 3, 0, 144},
		{364, 4, 0, 172},
	}
	for _, tc := range cases {
		level, xp, next := Level(tc.points)
		assert.Equal(t, tc.level, level, "points=%d", tc.points)
		assert.Equal(t, tc.xp, xp, "points=%d", tc.points)
		assert.Equal(t, tc.next, next, "points=%d", tc.points)
	}

	level, _, _ := Level(1 << 40)
	assert.Equal(t, MaxLevel, level)
}

func TestRecentMistakes(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	history := []domain.Attempt{
		{QuizID: "quiz-1", Date: base, Answers: []domain.AttemptAnswer{{QuestionID: "old", IsCorrect: false}}},
		{QuizID: "quiz-1", Date: base.Add(2 * time.Hour), Answers: []domain.AttemptAnswer{
			{QuestionID: "q1", IsCorrect: false},
			{QuestionID: "q2", IsCorrect: true},
		}},
		{QuizID: "quiz-2", Date: base.Add(3 * time.Hour), Answers: []domain.AttemptAnswer{{QuestionID: "other", IsCorrect: false}}},
		{QuizID: "quiz-1", Date: base.Add(time.Hour), Answers: []domain.AttemptAnswer{
			{QuestionID: "q3", IsCorrect: false},
			{QuestionID: "q1", IsCorrect: false},
		}},
	}

	assert.Equal(t, []string{"q1"}, RecentMistakes(history, "quiz-1", 1))
	assert.Equal(t, []string{"q1", "q3"}, RecentMistakes(history, "quiz-1", 2))
	assert.Equal(t, []string{"q1", "q3", "old"}, RecentMistakes(history, "quiz-1", 10))
	assert.Empty(t, RecentMistakes(history, "quiz-3", 3))
}

func TestQuizAverage(t *testing.T) {
	history := []domain.Attempt{{QuizID: "a", Accuracy: 50}, {QuizID: "a", Accuracy: 100}, {QuizID: "b", Accuracy: 10}}
	avg, ok := QuizAverage(history, "a")
	assert.True(t, ok)
	assert.InDelta(t, 75.0, avg, 1e-9)
	_, ok = QuizAverage(history, "c")
	assert.False(t, ok)
}
