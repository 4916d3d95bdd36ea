package postgres

import (
	"testing"
	"time"

	"quizmaster/internal/domain"
)

func TestAttemptRowRoundTrip(t *testing.T) {
	date := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	attempt := domain.Attempt{
		AttemptID:          "a1",
		QuizID:             "quiz-1",
		QuizTitle:          "Capitals",
		Score:              "3/4",
		Points:             30,
		Accuracy:           75,
		TimeTaken:          "01:05",
		TimeElapsedSeconds: 65,
		Mode:               domain.ModeCustom,
		Date:               date,
		TotalQuestions:     4,
		MaxStreak:          2,
		Achievements:       []string{"streak_5"},
		Answers:            []domain.AttemptAnswer{{QuestionID: "q1", IsCorrect: true, Marked: true}},
	}

	row := toAttemptRow("u1", attempt)
	if row.UserID != "u1" || row.Mode != "custom" || row.Date.Location() != time.UTC {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Seq != 0 {
		t.Fatalf("sequence must be left to the database")
	}

	got := row.attempt()
	if !got.Date.Equal(date) || got.Score != "3/4" || got.Mode != domain.ModeCustom || got.MaxStreak != 2 {
		t.Fatalf("attempt did not survive conversion: %+v", got)
	}
	if len(got.Answers) != 1 || !got.Answers[0].Marked || got.Achievements[0] != "streak_5" {
		t.Fatalf("nested fields lost: %+v", got)
	}
}

func TestAttemptRowDefaultsEmptyCollections(t *testing.T) {
	row := toAttemptRow("u1", domain.Attempt{AttemptID: "a2"})
	if row.Achievements == nil || row.Answers == nil {
		t.Fatalf("expected empty json arrays instead of null, got %+v", row)
	}
}
