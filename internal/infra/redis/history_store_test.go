package redis

import (
	"context"
	"testing"
	"time"

	"quizmaster/internal/domain"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestHistoryStoreAppendAndList(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	logger, _ := test.NewNullLogger()
	store := NewHistoryStore(newClient(mr), logger)
	ctx := context.Background()

	date := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	for _, id := range []string{"a1", "a2"} {
		err := store.Append(ctx, "u1", domain.Attempt{
			AttemptID: id,
			QuizID:    "quiz-1",
			Score:     "1/2",
			Date:      date,
			Answers:   []domain.AttemptAnswer{{QuestionID: "q1", IsCorrect: true}, {QuestionID: "q2"}},
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	attempts, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 2 || attempts[0].AttemptID != "a1" || attempts[1].AttemptID != "a2" {
		t.Fatalf("expected attempts in insertion order, got %+v", attempts)
	}
	if !attempts[0].Date.Equal(date) || len(attempts[0].Answers) != 2 || !attempts[0].Answers[0].IsCorrect {
		t.Fatalf("attempt did not round trip: %+v", attempts[0])
	}

	if others, _ := store.List(ctx, "u2"); len(others) != 0 {
		t.Fatalf("expected empty history for another user, got %d", len(others))
	}
}

func TestHistoryStoreSkipsCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	logger, hook := test.NewNullLogger()
	store := NewHistoryStore(newClient(mr), logger)
	ctx := context.Background()

	_ = store.Append(ctx, "u1", domain.Attempt{AttemptID: "a1", QuizID: "quiz-1"})
	if _, err := mr.Push("history:u1", "not json"); err != nil {
		t.Fatalf("push: %v", err)
	}

	attempts, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected corrupt entry to be skipped, got %d", len(attempts))
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning for the corrupt entry")
	}
}

func TestHistoryStoreBadgesAreASet(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	logger, _ := test.NewNullLogger()
	store := NewHistoryStore(newClient(mr), logger)
	ctx := context.Background()

	if err := store.AddBadges(ctx, "u1", []string{"streak_5", "first_quiz"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = store.AddBadges(ctx, "u1", []string{"first_quiz"})
	_ = store.AddBadges(ctx, "u1", nil)

	ids, err := store.Badges(ctx, "u1")
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(ids) != 2 || ids[0] != "first_quiz" || ids[1] != "streak_5" {
		t.Fatalf("expected sorted unique badges, got %v", ids)
	}
}
