package redis

import (
	"context"
	"testing"
	"time"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"
	"quizmaster/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession("s-1", "u1", sampleQuiz(), domain.SessionConfig{Mode: domain.ModeAll}, nil, app.SessionOptions{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Put(session)
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected local session")
	}

	snap, err := store.Marker(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if snap.QuizID != "quiz-1" || snap.Status != domain.StatusActive || snap.Total != 1 {
		t.Fatalf("unexpected marker %+v", snap)
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := store.Marker(context.Background(), "s-1"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionMarkerExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	session, _ := app.NewSession("s-2", "u1", sampleQuiz(), domain.SessionConfig{Mode: domain.ModeAll}, nil, app.SessionOptions{})
	store.Put(session)

	mr.FastForward(2 * time.Minute)
	if mr.Exists("quiz:session:s-2") {
		t.Fatalf("expected marker to expire")
	}
	if _, ok := store.Get("s-2"); !ok {
		t.Fatalf("local session must survive marker expiry")
	}
}

func TestServiceRefreshesSessionMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger, _ := test.NewNullLogger()
	settings := app.DefaultSettings()
	settings.AutoAdvance = false
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	newService := func() *app.QuizService {
		return app.NewQuizService(NewSessionStore(client, time.Minute), quizzes, memory.NewHistoryStore(),
			app.WithLogger(logger), app.WithSettings(settings))
	}

	ctx := context.Background()
	service := newService()
	session, err := service.Start(ctx, "u1", "quiz-1", domain.SessionConfig{Mode: domain.ModeAll})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	key := "quiz:session:" + session.ID()

	mr.FastForward(50 * time.Second)
	if _, err := service.Mark(ctx, session.ID(), 0); err != nil {
		t.Fatalf("mark: %v", err)
	}
	mr.FastForward(50 * time.Second)
	if !mr.Exists(key) {
		t.Fatalf("expected marker to be refreshed by the transition")
	}

	other := newService()
	snap, err := other.Progress(ctx, session.ID())
	if err != nil {
		t.Fatalf("progress from another instance: %v", err)
	}
	if len(snap.Marked) != 1 || snap.Marked[0] != 0 || snap.Status != domain.StatusActive {
		t.Fatalf("unexpected marker %+v", snap)
	}
	if _, err := other.Progress(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
