package postgres

import (
	"context"
	"fmt"
	"time"

	"quizmaster/internal/domain"

	"github.com/uptrace/bun"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	Seq                int64                  `bun:"seq,nullzero"`
	AttemptID          string                 `bun:"attempt_id,pk"`
	UserID             string                 `bun:"user_id"`
	QuizID             string                 `bun:"quiz_id"`
	QuizTitle          string                 `bun:"quiz_title"`
	Score              string                 `bun:"score"`
	Points             int                    `bun:"points"`
	Accuracy           float64                `bun:"accuracy"`
	TimeTaken          string                 `bun:"time_taken"`
	TimeElapsedSeconds int                    `bun:"time_elapsed_seconds"`
	Mode               string                 `bun:"mode"`
	Date               time.Time              `bun:"date"`
	TotalQuestions     int                    `bun:"total_questions"`
	MaxStreak          int                    `bun:"max_streak"`
	Achievements       []string               `bun:"achievements,type:jsonb"`
	Answers            []domain.AttemptAnswer `bun:"answers,type:jsonb"`
}

type badgeRow struct {
	bun.BaseModel `bun:"table:user_badges"`

	UserID   string    `bun:"user_id,pk"`
	BadgeID  string    `bun:"badge_id,pk"`
	EarnedAt time.Time `bun:"earned_at"`
}

// HistoryStore keeps attempts and badges in Postgres through bun.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (h *HistoryStore) Append(ctx context.Context, userID string, attempt domain.Attempt) error {
	row := toAttemptRow(userID, attempt)
	if _, err := h.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// List returns attempts in insertion order.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := h.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, len(rows))
	for i, row := range rows {
		out[i] = row.attempt()
	}
	return out, nil
}

func (h *HistoryStore) Badges(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := h.db.NewSelect().
		Model((*badgeRow)(nil)).
		Column("badge_id").
		Where("user_id = ?", userID).
		Order("badge_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return ids, nil
}

// AddBadges records ids for userID; badges already held are left untouched.
func (h *HistoryStore) AddBadges(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]badgeRow, len(ids))
	for i, id := range ids {
		rows[i] = badgeRow{UserID: userID, BadgeID: id, EarnedAt: now}
	}
	if _, err := h.db.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert badges: %w", err)
	}
	return nil
}

func toAttemptRow(userID string, a domain.Attempt) attemptRow {
	achievements := a.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	answers := a.Answers
	if answers == nil {
		answers = []domain.AttemptAnswer{}
	}
	return attemptRow{
		AttemptID:          a.AttemptID,
		UserID:             userID,
		QuizID:             a.QuizID,
		QuizTitle:          a.QuizTitle,
		Score:              a.Score,
		Points:             a.Points,
		Accuracy:           a.Accuracy,
		TimeTaken:          a.TimeTaken,
		TimeElapsedSeconds: a.TimeElapsedSeconds,
		Mode:               string(a.Mode),
		Date:               a.Date.UTC(),
		TotalQuestions:     a.TotalQuestions,
		MaxStreak:          a.MaxStreak,
		Achievements:       achievements,
		Answers:            answers,
	}
}

func (r attemptRow) attempt() domain.Attempt {
	return domain.Attempt{
		AttemptID:          r.AttemptID,
		QuizID:             r.QuizID,
		QuizTitle:          r.QuizTitle,
		Score:              r.Score,
		Points:             r.Points,
		Accuracy:           r.Accuracy,
		TimeTaken:          r.TimeTaken,
		TimeElapsedSeconds: r.TimeElapsedSeconds,
		Mode:               domain.Mode(r.Mode),
		Date:               r.Date,
		TotalQuestions:     r.TotalQuestions,
		MaxStreak:          r.MaxStreak,
		Achievements:       r.Achievements,
		Answers:            r.Answers,
	}
}
