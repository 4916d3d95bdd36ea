package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizmaster/internal/badges"
	"quizmaster/internal/clock"
	"quizmaster/internal/domain"
	"quizmaster/internal/events"
	"quizmaster/internal/scoring"
	"quizmaster/internal/stats"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// SessionTracker is implemented by session stores that publish progress
// outside the process. The service refreshes it after every transition.
type SessionTracker interface {
	Touch(ctx context.Context, session *Session) error
	Marker(ctx context.Context, sessionID string) (domain.SessionSnapshot, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// HistoryRepository stores the append-only attempt history and the badge set of each user.
type HistoryRepository interface {
	Append(ctx context.Context, userID string, attempt domain.Attempt) error
	List(ctx context.Context, userID string) ([]domain.Attempt, error)
	Badges(ctx context.Context, userID string) ([]string, error)
	AddBadges(ctx context.Context, userID string, ids []string) error
}

// Settings tunes session pacing and mode sizes.
type Settings struct {
	AutoAdvance   bool
	FeedbackDelay time.Duration
	AdvanceDelay  time.Duration
	ErrorSessions int
	Presets       map[domain.Mode]int
}

func DefaultSettings() Settings {
	return Settings{
		AutoAdvance:   true,
		FeedbackDelay: 1200 * time.Millisecond,
		AdvanceDelay:  350 * time.Millisecond,
		ErrorSessions: 3,
		Presets:       DefaultPresets(),
	}
}

type Option func(*QuizService)

func WithClock(c clock.Clock) Option { return func(s *QuizService) { s.clock = c } }

func WithLogger(log logrus.FieldLogger) Option { return func(s *QuizService) { s.log = log } }

func WithSettings(settings Settings) Option { return func(s *QuizService) { s.settings = settings } }

func WithBadges(engine *badges.Engine) Option { return func(s *QuizService) { s.badges = engine } }

func WithPublisher(p events.Publisher) Option { return func(s *QuizService) { s.publisher = p } }

// WithSeed makes question order and option shuffles reproducible.
func WithSeed(seed int64) Option {
	return func(s *QuizService) { s.rnd = rand.New(rand.NewSource(seed)) }
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	history   HistoryRepository
	clock     clock.Clock
	log       logrus.FieldLogger
	settings  Settings
	validator *scoring.Validator
	stats     *stats.Aggregator
	badges    *badges.Engine
	publisher events.Publisher

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, history HistoryRepository, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: store,
		quizzes:  quizzes,
		history:  history,
		clock:    clock.Real(),
		log:      logrus.StandardLogger(),
		settings: DefaultSettings(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings.Presets == nil {
		s.settings.Presets = DefaultPresets()
	}
	if s.badges == nil {
		s.badges = badges.NewEngine(badges.Default(), s.log)
	}
	if s.publisher == nil {
		s.publisher = events.NewMockPublisher()
	}
	s.validator = scoring.NewValidator(s.log)
	s.stats = stats.NewAggregator(s.log)
	return s
}

// Start creates a session for userID on quizID. It fails with a
// *domain.ConfigurationError when the mode resolves no question.
func (s *QuizService) Start(ctx context.Context, userID, quizID string, cfg domain.SessionConfig) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if cfg.ErrorSessions <= 0 {
		cfg.ErrorSessions = s.settings.ErrorSessions
	}

	var history []domain.Attempt
	if cfg.Mode == domain.ModeErrors {
		if history, err = s.history.List(ctx, userID); err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	id := uuid.NewString()
	session, err := NewSession(id, userID, quiz, cfg, history, SessionOptions{
		Clock:         s.clock,
		Validator:     s.validator,
		Rand:          s.sessionRand(),
		Log:           s.log.WithField("user_id", userID),
		Presets:       s.settings.Presets,
		AutoAdvance:   s.settings.AutoAdvance,
		FeedbackDelay: s.settings.FeedbackDelay,
		AdvanceDelay:  s.settings.AdvanceDelay,
		OnTerminal:    s.complete,
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"quiz_id": quizID, "mode": cfg.Mode}).Warn("session not started")
		return nil, err
	}
	s.sessions.Put(session)
	s.log.WithFields(logrus.Fields{
		"session_id": id,
		"quiz_id":    quizID,
		"user_id":    userID,
		"mode":       cfg.Mode,
		"questions":  len(session.questions),
	}).Info("session started")
	return session, nil
}

// sessionRand derives an independent source so sessions never share a *rand.Rand.
func (s *QuizService) sessionRand() *rand.Rand {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return rand.New(rand.NewSource(s.rnd.Int63()))
}

func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) Display(ctx context.Context, sessionID string, index int) (domain.QuestionView, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	view, err := session.Display(index)
	s.track(ctx, session, err)
	return view, err
}

// Submit decodes value for the type of question index and scores it.
func (s *QuizService) Submit(ctx context.Context, sessionID string, index int, value json.RawMessage) (domain.Outcome, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.Outcome{}, err
	}
	q, err := session.Question(index)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, err)
	}
	resp, err := domain.DecodeResponse(q.Type, value)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, err)
	}
	outcome, err := session.Submit(index, resp)
	s.track(ctx, session, err)
	return outcome, err
}

func (s *QuizService) Advance(ctx context.Context, sessionID string) (domain.AdvanceResult, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	result, err := session.Advance()
	s.track(ctx, session, err)
	return result, err
}

func (s *QuizService) Mark(ctx context.Context, sessionID string, index int) (bool, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return false, err
	}
	marked, err := session.Mark(index)
	s.track(ctx, session, err)
	return marked, err
}

func (s *QuizService) Pause(ctx context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	err = session.Pause()
	s.track(ctx, session, err)
	return err
}

func (s *QuizService) Resume(ctx context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	err = session.Resume()
	s.track(ctx, session, err)
	return err
}

// track refreshes the published progress of session after a successful transition.
func (s *QuizService) track(ctx context.Context, session *Session, opErr error) {
	tracker, ok := s.sessions.(SessionTracker)
	if !ok || opErr != nil {
		return
	}
	if err := tracker.Touch(ctx, session); err != nil {
		s.log.WithError(err).WithField("session_id", session.ID()).Warn("refresh session marker failed")
	}
}

// Progress returns the latest snapshot of a session. Sessions owned by
// another instance are read from the tracker when the store has one.
func (s *QuizService) Progress(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	if session, ok := s.sessions.Get(sessionID); ok {
		return session.Snapshot(), nil
	}
	if tracker, ok := s.sessions.(SessionTracker); ok {
		return tracker.Marker(ctx, sessionID)
	}
	return domain.SessionSnapshot{}, domain.ErrSessionNotFound
}

func (s *QuizService) Cancel(_ context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return session.Cancel()
}

// Subscribe returns a channel that receives snapshots of a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionSnapshot, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Release drops a session, cancelling it first if it is still active.
func (s *QuizService) Release(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if !session.Status().Terminal() {
		_ = session.Cancel()
	}
	s.sessions.Delete(sessionID)
}

// Stats recomputes the stats of userID from the full history.
func (s *QuizService) Stats(ctx context.Context, userID string) (domain.Stats, error) {
	history, err := s.history.List(ctx, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	held, err := s.history.Badges(ctx, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	return s.stats.Recompute(history, held), nil
}

// History returns every attempt of userID.
func (s *QuizService) History(ctx context.Context, userID string) ([]domain.Attempt, error) {
	return s.history.List(ctx, userID)
}

// HasErrors reports whether errors mode can start for userID on quizID.
func (s *QuizService) HasErrors(ctx context.Context, userID, quizID string) (bool, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	history, err := s.history.List(ctx, userID)
	if err != nil {
		return false, err
	}
	return HasErrors(quiz, history, s.settings.ErrorSessions), nil
}

// BadgeInfo resolves display information for badge ids.
func (s *QuizService) BadgeInfo(ids []string) []domain.Badge {
	return s.badges.Infos(ids)
}

// complete records the attempt of a finished or timed out session, then
// evaluates session badges, recomputes stats and evaluates global badges.
// Cancelled sessions record nothing.
func (s *QuizService) complete(session *Session) {
	status := session.Status()
	if status == domain.StatusCancelled {
		session.recordCompletion(nil)
		return
	}

	ctx := context.Background()
	userID := session.UserID()
	log := s.log.WithFields(logrus.Fields{"session_id": session.ID(), "user_id": userID, "quiz_id": session.Quiz().ID})

	previous, err := s.history.List(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load history failed")
	}
	held, err := s.history.Badges(ctx, userID)
	if err != nil {
		log.WithError(err).Error("load badges failed")
	}

	now := s.clock.Now()
	attempt := session.Attempt(uuid.NewString(), now)
	sessionBadges := s.badges.EvaluateSession(held, badges.SessionOutcomeView{
		Accuracy:           attempt.Accuracy,
		MaxStreak:          attempt.MaxStreak,
		TimeElapsedSeconds: attempt.TimeElapsedSeconds,
		NumQuestions:       attempt.TotalQuestions,
	})
	attempt.Achievements = sessionBadges

	if err := s.history.Append(ctx, userID, attempt); err != nil {
		log.WithError(err).Error("append attempt failed")
	}
	history := append(append([]domain.Attempt(nil), previous...), attempt)
	held = append(held, sessionBadges...)

	current := s.stats.Recompute(history, held)
	globalBadges := s.badges.EvaluateGlobal(current.Badges, badges.NewStatsView(current))
	if len(globalBadges) > 0 {
		current = s.stats.Recompute(history, append(held, globalBadges...))
	}
	earned := append(append([]string{}, sessionBadges...), globalBadges...)
	if len(earned) > 0 {
		if err := s.history.AddBadges(ctx, userID, earned); err != nil {
			log.WithError(err).Error("store badges failed")
		}
	}

	completion := &domain.Completion{
		Attempt:       attempt,
		SessionBadges: s.badges.Infos(sessionBadges),
		GlobalBadges:  s.badges.Infos(globalBadges),
		Stats:         current,
	}
	if avg, ok := stats.QuizAverage(previous, attempt.QuizID); ok {
		completion.PreviousAvgAccuracy = &avg
	}

	if err := s.publisher.Publish(ctx, events.NewAttemptRecorded(userID, attempt, current, now)); err != nil {
		log.WithError(err).Warn("publish attempt failed")
	}
	if len(earned) > 0 {
		unlocked := append(append([]domain.Badge{}, completion.SessionBadges...), completion.GlobalBadges...)
		if err := s.publisher.Publish(ctx, events.NewBadgesUnlocked(userID, unlocked, now)); err != nil {
			log.WithError(err).Warn("publish badges failed")
		}
	}

	log.WithFields(logrus.Fields{
		"status": status,
		"score":  attempt.Score,
		"points": attempt.Points,
		"badges": earned,
	}).Info("attempt recorded")
	session.recordCompletion(completion)
}
