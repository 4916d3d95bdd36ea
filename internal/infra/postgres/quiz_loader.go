package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quizmaster/internal/domain"
	"quizmaster/internal/importer"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz JSONB from Postgres. Stored documents are checked
// again on load so a row edited by hand cannot reach a session unvalidated.
type QuizLoader struct {
	pool     *pgxpool.Pool
	importer *importer.Importer
}

func NewQuizLoader(pool *pgxpool.Pool, im *importer.Importer) *QuizLoader {
	return &QuizLoader{pool: pool, importer: im}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if l.importer != nil {
		if err := l.importer.Check(quiz); err != nil {
			return domain.Quiz{}, fmt.Errorf("stored quiz %q: %w", quizID, err)
		}
	}
	return quiz, nil
}

// QuizSummary is a row of the quiz catalogue.
type QuizSummary struct {
	ID    string `json:"quizId"`
	Title string `json:"quizTitle"`
}

// ListQuizzes returns the catalogue ordered by id.
func (l *QuizLoader) ListQuizzes(ctx context.Context) ([]QuizSummary, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, title FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []QuizSummary
	for rows.Next() {
		var s QuizSummary
		if err := rows.Scan(&s.ID, &s.Title); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
