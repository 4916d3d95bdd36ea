package app

import (
	"fmt"
	"math/rand"

	"quizmaster/internal/domain"
	"quizmaster/internal/stats"
)

// ResolveQuestions picks the ordered question list of a session. The order is
// a fixed permutation drawn from rnd.
func ResolveQuestions(quiz domain.Quiz, cfg domain.SessionConfig, history []domain.Attempt, presets map[domain.Mode]int, rnd *rand.Rand) ([]domain.Question, error) {
	var pool []domain.Question
	limit := -1

	switch cfg.Mode {
	case domain.ModeAll, domain.ModeExam, "":
		pool = quiz.Questions
	case domain.ModePresetShort, domain.ModePresetMedium, domain.ModePresetLong:
		pool = quiz.Questions
		limit = presets[cfg.Mode]
	case domain.ModeCustom:
		pool = quiz.Questions
		limit = cfg.QuestionCount
	case domain.ModeErrors:
		mistakes := stats.RecentMistakes(history, quiz.ID, cfg.ErrorSessions)
		wanted := make(map[string]struct{}, len(mistakes))
		for _, id := range mistakes {
			wanted[id] = struct{}{}
		}
		for _, q := range quiz.Questions {
			if _, ok := wanted[q.ID]; ok {
				pool = append(pool, q)
			}
		}
		if len(pool) == 0 {
			return nil, &domain.ConfigurationError{
				Mode:   cfg.Mode,
				Reason: fmt.Sprintf("no errors found in the last %d session(s) of this quiz", cfg.ErrorSessions),
				Err:    domain.ErrNoErrorsFound,
			}
		}
	default:
		return nil, &domain.ConfigurationError{Mode: cfg.Mode, Err: domain.ErrUnknownMode}
	}

	questions := append([]domain.Question(nil), pool...)
	rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	if limit >= 0 && limit < len(questions) {
		questions = questions[:limit]
	}
	if len(questions) == 0 {
		return nil, &domain.ConfigurationError{
			Mode:   cfg.Mode,
			Reason: "no questions available for this mode",
			Err:    domain.ErrNoQuestions,
		}
	}
	return questions, nil
}

// HasErrors reports whether errors mode can start for quizID.
func HasErrors(quiz domain.Quiz, history []domain.Attempt, sessions int) bool {
	mistakes := stats.RecentMistakes(history, quiz.ID, sessions)
	if len(mistakes) == 0 {
		return false
	}
	known := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}
	for _, id := range mistakes {
		if _, ok := known[id]; ok {
			return true
		}
	}
	return false
}
