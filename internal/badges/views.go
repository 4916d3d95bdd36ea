package badges

import "quizmaster/internal/domain"

// View exposes named numeric metrics to badge conditions.
type View interface {
	Metric(name string) (float64, bool)
}

// SessionMetrics are the metric names of SessionOutcomeView.
var SessionMetrics = map[string]struct{}{
	"accuracy":           {},
	"maxStreak":          {},
	"timeElapsedSeconds": {},
	"numQuestions":       {},
}

// StatsMetrics are the metric names of StatsView.
var StatsMetrics = map[string]struct{}{
	"totalQuizzes":   {},
	"totalAnswers":   {},
	"correctAnswers": {},
	"totalPoints":    {},
	"avgAccuracy":    {},
	"longestStreak":  {},
	"uniqueQuizzes":  {},
	"level":          {},
}

// SessionOutcomeView is what session-scoped badges can see of a finished session.
type SessionOutcomeView struct {
	Accuracy           float64
	MaxStreak          int
	TimeElapsedSeconds int
	NumQuestions       int
}

func (v SessionOutcomeView) Metric(name string) (float64, bool) {
	switch name {
	case "accuracy":
		return v.Accuracy, true
	case "maxStreak":
		return float64(v.MaxStreak), true
	case "timeElapsedSeconds":
		return float64(v.TimeElapsedSeconds), true
	case "numQuestions":
		return float64(v.NumQuestions), true
	}
	return 0, false
}

// StatsView is what global badges can see of the aggregated stats.
type StatsView struct {
	TotalQuizzes   int
	TotalAnswers   int
	CorrectAnswers int
	TotalPoints    int
	AvgAccuracy    float64
	LongestStreak  int
	UniqueQuizzes  int
	Level          int
}

// NewStatsView projects Stats onto the fields global badges may use.
func NewStatsView(s domain.Stats) StatsView {
	return StatsView{
		TotalQuizzes:   s.TotalQuizzes,
		TotalAnswers:   s.TotalAnswers,
		CorrectAnswers: s.CorrectAnswers,
		TotalPoints:    s.TotalPoints,
		AvgAccuracy:    s.AvgAccuracy,
		LongestStreak:  s.LongestStreak,
		UniqueQuizzes:  len(s.Quizzes),
		Level:          s.Level,
	}
}

func (v StatsView) Metric(name string) (float64, bool) {
	switch name {
	case "totalQuizzes":
		return float64(v.TotalQuizzes), true
	case "totalAnswers":
		return float64(v.TotalAnswers), true
	case "correctAnswers":
		return float64(v.CorrectAnswers), true
	case "totalPoints":
		return float64(v.TotalPoints), true
	case "avgAccuracy":
		return v.AvgAccuracy, true
	case "longestStreak":
		return float64(v.LongestStreak), true
	case "uniqueQuizzes":
		return float64(v.UniqueQuizzes), true
	case "level":
		return float64(v.Level), true
	}
	return 0, false
}
