package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizmaster/internal/domain"
	"quizmaster/internal/importer"
)

func writeQuizFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirQuizLoader(t *testing.T) {
	dir := t.TempDir()
	writeQuizFile(t, dir, "geo.json", `{"quizId": "geo", "quizTitle": "Geography", "questions": [
		{"id": "g1", "type": "qcm", "text": "Capital of France?", "correctAnswer": "Paris", "explanation": ""}]}`)
	writeQuizFile(t, dir, "renamed.json", `{"quizId": "history", "questions": [
		{"type": "vrai_faux", "text": "1789?", "correctAnswer": true, "explanation": ""}]}`)
	writeQuizFile(t, dir, "broken.json", `{"quizId": "broken", "questions": []}`)

	loader := NewDirQuizLoader(dir, importer.New(nil), nil)
	ctx := context.Background()

	quiz, err := loader.LoadQuiz(ctx, "geo")
	if err != nil {
		t.Fatalf("load geo: %v", err)
	}
	if quiz.Questions[0].Answer != (domain.ChoiceKey{Value: "Paris"}) {
		t.Fatalf("unexpected answer %#v", quiz.Questions[0].Answer)
	}

	quiz, err = loader.LoadQuiz(ctx, "history")
	if err != nil {
		t.Fatalf("load history by scan: %v", err)
	}
	if quiz.Questions[0].ID != "q_history_0" || quiz.Title != "history" {
		t.Fatalf("unexpected defaults %q %q", quiz.Questions[0].ID, quiz.Title)
	}

	if _, err := loader.LoadQuiz(ctx, "broken"); err == nil {
		t.Fatalf("expected invalid quiz to fail")
	}
	if _, err := loader.LoadQuiz(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	all, err := loader.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "geo" || all[1].ID != "history" {
		t.Fatalf("unexpected quizzes %+v", all)
	}
}
