package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"quizmaster/internal/domain"
	"quizmaster/internal/importer"

	"github.com/sirupsen/logrus"
)

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// DirQuizLoader reads quiz JSON documents from a directory. A quiz is looked
// up as <dir>/<quizId>.json first, then by scanning every document.
type DirQuizLoader struct {
	dir      string
	importer *importer.Importer
	log      logrus.FieldLogger
}

func NewDirQuizLoader(dir string, im *importer.Importer, log logrus.FieldLogger) *DirQuizLoader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DirQuizLoader{dir: dir, importer: im, log: log}
}

func (l *DirQuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	direct := filepath.Join(l.dir, quizID+".json")
	if filepath.Dir(direct) == filepath.Clean(l.dir) {
		quiz, err := l.importer.DecodeFile(direct)
		switch {
		case err == nil && quiz.ID == quizID:
			return quiz, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, err)
		}
	}

	quizzes, err := l.LoadAll(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	for _, quiz := range quizzes {
		if quiz.ID == quizID {
			return quiz, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// LoadAll decodes every valid document of the directory, sorted by quiz id.
// Invalid documents are logged and skipped.
func (l *DirQuizLoader) LoadAll(ctx context.Context) ([]domain.Quiz, error) {
	paths, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	var quizzes []domain.Quiz
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quiz, err := l.importer.DecodeFile(path)
		if err != nil {
			l.log.WithError(err).WithField("path", path).Warn("skipping invalid quiz file")
			continue
		}
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}
