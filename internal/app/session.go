package app

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"quizmaster/internal/clock"
	"quizmaster/internal/distractor"
	"quizmaster/internal/domain"
	"quizmaster/internal/scoring"

	"github.com/sirupsen/logrus"
)

// SessionOptions carries the collaborators of a session.
type SessionOptions struct {
	Clock     clock.Clock
	Validator *scoring.Validator
	Rand      *rand.Rand
	Log       logrus.FieldLogger
	Presets   map[domain.Mode]int

	// AutoAdvance schedules Advance after an accepted submission, waiting
	// FeedbackDelay with instant feedback and AdvanceDelay otherwise.
	AutoAdvance   bool
	FeedbackDelay time.Duration
	AdvanceDelay  time.Duration

	// OnTerminal runs once, outside the session lock, when the session ends.
	OnTerminal func(*Session)
}

// Session is one user's attempt at a quiz. All transitions happen under mu;
// terminal states are never left.
type Session struct {
	id     string
	userID string
	quiz   domain.Quiz
	cfg    domain.SessionConfig
	opts   SessionOptions
	log    logrus.FieldLogger

	mu          sync.Mutex
	questions   []domain.Question
	answers     []domain.Answer
	displayedAt []time.Time
	index       int
	status      domain.SessionStatus

	score     int
	points    int
	streak    int
	maxStreak int
	inFlight  bool

	startedAt   time.Time
	endedAt     time.Time
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration
	remaining   int

	ticker      clock.Timer
	advancer    clock.Timer
	subscribers map[chan domain.SessionSnapshot]struct{}

	completion *domain.Completion
	done       chan struct{}
}

// NewSession resolves the question list for cfg and starts the countdown when
// a time limit is set. history is only read by errors mode.
func NewSession(id, userID string, quiz domain.Quiz, cfg domain.SessionConfig, history []domain.Attempt, opts SessionOptions) (*Session, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Validator == nil {
		opts.Validator = scoring.NewValidator(opts.Log)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Presets == nil {
		opts.Presets = DefaultPresets()
	}
	cfg = cfg.Normalize()

	questions, err := ResolveQuestions(quiz, cfg, history, opts.Presets, opts.Rand)
	if err != nil {
		return nil, err
	}

	now := opts.Clock.Now()
	s := &Session{
		id:          id,
		userID:      userID,
		quiz:        quiz,
		cfg:         cfg,
		opts:        opts,
		log:         opts.Log.WithFields(logrus.Fields{"session_id": id, "quiz_id": quiz.ID}),
		questions:   questions,
		answers:     make([]domain.Answer, len(questions)),
		displayedAt: make([]time.Time, len(questions)),
		status:      domain.StatusActive,
		startedAt:   now,
		subscribers: make(map[chan domain.SessionSnapshot]struct{}),
		done:        make(chan struct{}),
	}
	for i, q := range questions {
		s.answers[i].QuestionID = q.ID
	}
	if cfg.TimeLimit > 0 {
		s.remaining = int(math.Ceil(cfg.TimeLimit.Seconds()))
		s.ticker = opts.Clock.Every(time.Second, s.tick)
	}
	return s, nil
}

// DefaultPresets are the question counts of the preset modes.
func DefaultPresets() map[domain.Mode]int {
	return map[domain.Mode]int{
		domain.ModePresetShort:  10,
		domain.ModePresetMedium: 20,
		domain.ModePresetLong:   40,
	}
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) UserID() string               { return s.userID }
func (s *Session) Quiz() domain.Quiz            { return s.quiz }
func (s *Session) Config() domain.SessionConfig { return s.cfg }
func (s *Session) Done() <-chan struct{}        { return s.done }

func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// QuestionIDs returns the resolved question order.
func (s *Session) QuestionIDs() []string {
	ids := make([]string, len(s.questions))
	for i, q := range s.questions {
		ids[i] = q.ID
	}
	return ids
}

// Question returns the question at index i of the resolved order.
func (s *Session) Question(i int) (domain.Question, error) {
	if i < 0 || i >= len(s.questions) {
		return domain.Question{}, fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, i)
	}
	return s.questions[i], nil
}

// Display makes question i current. Choice options are built on the first
// display and reused afterwards.
func (s *Session) Display(i int) (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkActiveLocked(); err != nil {
		return domain.QuestionView{}, err
	}
	if i < 0 || i >= len(s.questions) {
		return domain.QuestionView{}, fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, i)
	}
	if i != s.index && !s.cfg.AllowBack {
		return domain.QuestionView{}, domain.ErrNavigationNotAllowed
	}

	s.index = i
	if s.answers[i].DisplayedOptions == nil {
		s.answers[i].DisplayedOptions = s.materializeLocked(s.questions[i])
	}
	s.displayedAt[i] = s.opts.Clock.Now()
	s.broadcastLocked()
	return s.viewLocked(i), nil
}

func (s *Session) materializeLocked(q domain.Question) []string {
	rnd := s.opts.Rand
	var options []string
	switch key := q.Answer.(type) {
	case domain.BooleanKey:
		options = []string{"true", "false"}
	case domain.ChoiceKey:
		wrong := distractor.Generate(q, s.quiz.Questions, s.quiz.DummyAnswers, nil)
		options = append([]string{key.Value}, wrong...)
	case domain.MultiChoiceKey:
		wrong := distractor.Generate(q, s.quiz.Questions, s.quiz.DummyAnswers, key.Values)
		options = append(append([]string{}, key.Values...), wrong...)
		if len(options) > 6 {
			options = options[:6]
		}
	case domain.SequenceKey:
		options = append([]string{}, q.Items...)
	case domain.PairingKey:
		options = append([]string{}, q.ItemsLeft...)
	default:
		return []string{}
	}
	rnd.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })
	return options
}

func (s *Session) viewLocked(i int) domain.QuestionView {
	q := s.questions[i]
	a := s.answers[i]
	view := domain.QuestionView{
		Index:      i,
		Total:      len(s.questions),
		QuestionID: q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Category:   q.Category,
		Points:     q.PointValue(),
		Marked:     a.Marked,
		Answered:   a.Answered,
		Previous:   a.Value,
	}
	if q.Type == domain.TypeMatchPairs {
		view.ItemsLeft = a.DisplayedOptions
		view.ItemsRight = q.ItemsRight
	} else if len(a.DisplayedOptions) > 0 {
		view.Options = a.DisplayedOptions
	}
	return view
}

// Submit scores value against question i. Rejected submissions leave the
// session untouched and return an error wrapping domain.ErrSubmissionRejected.
func (s *Session) Submit(i int, value domain.Response) (domain.Outcome, error) {
	s.mu.Lock()
	if err := s.admitLocked(i); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("index", i).Info("submission rejected")
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, err)
	}
	s.inFlight = true
	q := s.questions[i]
	s.mu.Unlock()

	verdict := s.opts.Validator.Validate(q, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.status.Terminal() {
		// the timer may have ended the session while scoring
		return domain.Outcome{}, fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, domain.ErrSessionNotActive)
	}

	now := s.opts.Clock.Now()
	slot := &s.answers[i]
	slot.Answered = true
	slot.Value = value
	slot.IsCorrect = verdict.IsCorrect
	slot.PointsEarned = verdict.PointsEarned
	if !s.displayedAt[i].IsZero() {
		slot.TimeTakenSeconds = int(now.Sub(s.displayedAt[i]).Seconds())
	}
	s.recomputeLocked()

	outcome := domain.Outcome{
		Index:             i,
		QuestionID:        q.ID,
		IsCorrect:         verdict.IsCorrect,
		PointsEarned:      verdict.PointsEarned,
		CorrectSelected:   verdict.CorrectSelected,
		IncorrectSelected: verdict.IncorrectSelected,
		Score:             s.score,
		Points:            s.points,
		Streak:            s.streak,
		MaxStreak:         s.maxStreak,
	}
	if s.cfg.ShowExplanation && !verdict.IsCorrect {
		outcome.Explanation = q.Explanation
		outcome.CorrectAnswer = domain.FormatAnswerKey(q.Answer)
	}

	s.scheduleAdvanceLocked(i)
	s.broadcastLocked()
	return outcome, nil
}

func (s *Session) admitLocked(i int) error {
	if err := s.checkActiveLocked(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, i)
	}
	if i != s.index && !s.cfg.AllowBack {
		return domain.ErrNavigationNotAllowed
	}
	if s.inFlight {
		return domain.ErrSubmissionInFlight
	}
	if s.finalizedLocked(i) {
		return domain.ErrQuestionFinalized
	}
	return nil
}

// finalizedLocked reports whether question i can no longer be answered.
// Answers stay editable only while back navigation is allowed.
func (s *Session) finalizedLocked(i int) bool {
	return s.answers[i].Answered && !s.cfg.AllowBack
}

// recomputeLocked rescans every slot in order. The streak resets on any
// unanswered or incorrect slot.
func (s *Session) recomputeLocked() {
	score, points, streak, maxStreak := 0, 0, 0, 0
	for _, a := range s.answers {
		points += a.PointsEarned
		if a.Answered && a.IsCorrect {
			score++
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
			continue
		}
		streak = 0
	}
	s.score, s.points, s.streak, s.maxStreak = score, points, streak, maxStreak
}

func (s *Session) scheduleAdvanceLocked(from int) {
	if !s.opts.AutoAdvance {
		return
	}
	delay := s.opts.AdvanceDelay
	if s.cfg.InstantFeedback {
		delay = s.opts.FeedbackDelay
	}
	if s.advancer != nil {
		s.advancer.Stop()
	}
	s.advancer = s.opts.Clock.AfterFunc(delay, func() {
		if _, err := s.advance(from); err != nil {
			s.log.WithError(err).Debug("auto advance skipped")
		}
	})
}

// Advance moves to the next question, or finishes when the last question is
// reached and every slot is answered. Reaching the end with gaps keeps the
// session active and reports the pending indexes.
func (s *Session) Advance() (domain.AdvanceResult, error) {
	return s.advance(-1)
}

// advance only acts when from is -1 or still the current index, so a stale
// auto-advance cannot skip a question the user navigated to.
func (s *Session) advance(from int) (domain.AdvanceResult, error) {
	s.mu.Lock()
	result, ended, err := s.advanceLocked(from)
	s.mu.Unlock()
	if ended {
		s.terminated()
	}
	return result, err
}

func (s *Session) advanceLocked(from int) (domain.AdvanceResult, bool, error) {
	if err := s.checkActiveLocked(); err != nil {
		return domain.AdvanceResult{}, false, err
	}
	if from >= 0 && from != s.index {
		return domain.AdvanceResult{Index: s.index}, false, nil
	}
	if s.advancer != nil {
		s.advancer.Stop()
		s.advancer = nil
	}
	if !s.cfg.AllowBack && !s.answers[s.index].Answered {
		return domain.AdvanceResult{Index: s.index}, false, domain.ErrQuestionUnanswered
	}

	if s.index+1 < len(s.questions) {
		s.index++
		s.broadcastLocked()
		return domain.AdvanceResult{Index: s.index}, false, nil
	}

	pending := s.pendingLocked()
	if len(pending) > 0 {
		s.broadcastLocked()
		return domain.AdvanceResult{Index: s.index, Incomplete: true, Pending: pending}, false, nil
	}
	s.endLocked(domain.StatusFinished)
	return domain.AdvanceResult{Index: s.index, Finished: true}, true, nil
}

func (s *Session) pendingLocked() []int {
	var pending []int
	for i, a := range s.answers {
		if !a.Answered {
			pending = append(pending, i)
		}
	}
	return pending
}

// Mark toggles the review flag of question i and returns the new value.
func (s *Session) Mark(i int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false, domain.ErrSessionNotActive
	}
	if i < 0 || i >= len(s.answers) {
		return false, fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, i)
	}
	s.answers[i].Marked = !s.answers[i].Marked
	s.broadcastLocked()
	return s.answers[i].Marked, nil
}

// Pause stops the countdown. Submissions and navigation wait for Resume.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkActiveLocked(); err != nil {
		return err
	}
	s.paused = true
	s.pausedAt = s.opts.Clock.Now()
	s.stopTickerLocked()
	if s.advancer != nil {
		s.advancer.Stop()
		s.advancer = nil
	}
	s.broadcastLocked()
	return nil
}

// Resume restarts the countdown where it stopped.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return domain.ErrSessionNotActive
	}
	if !s.paused {
		return nil
	}
	s.pausedTotal += s.opts.Clock.Now().Sub(s.pausedAt)
	s.paused = false
	if s.cfg.TimeLimit > 0 {
		s.ticker = s.opts.Clock.Every(time.Second, s.tick)
	}
	s.broadcastLocked()
	return nil
}

// Cancel abandons the session. No attempt is recorded for it.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return domain.ErrSessionNotActive
	}
	s.endLocked(domain.StatusCancelled)
	s.mu.Unlock()
	s.terminated()
	return nil
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.status.Terminal() || s.paused {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return
	}
	s.remaining = 0
	for i := range s.answers {
		if !s.answers[i].Answered {
			s.answers[i].IsCorrect = false
			s.answers[i].PointsEarned = 0
		}
	}
	s.recomputeLocked()
	s.endLocked(domain.StatusTimedOut)
	s.mu.Unlock()
	s.log.Info("session timed out")
	s.terminated()
}

// endLocked moves to a terminal status and tears down every timer.
func (s *Session) endLocked(status domain.SessionStatus) {
	s.status = status
	s.endedAt = s.opts.Clock.Now()
	if s.paused {
		s.pausedTotal += s.endedAt.Sub(s.pausedAt)
		s.paused = false
	}
	s.stopTickerLocked()
	if s.advancer != nil {
		s.advancer.Stop()
		s.advancer = nil
	}
	s.broadcastLocked()
}

func (s *Session) stopTickerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) terminated() {
	s.log.WithField("status", s.Status()).Info("session ended")
	if s.opts.OnTerminal != nil {
		s.opts.OnTerminal(s)
		return
	}
	s.recordCompletion(nil)
}

func (s *Session) checkActiveLocked() error {
	if s.status.Terminal() {
		return domain.ErrSessionNotActive
	}
	if s.paused {
		return domain.ErrSessionPaused
	}
	return nil
}

// Elapsed is the time spent in the session, excluding pauses.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) elapsedLocked() time.Duration {
	end := s.endedAt
	if end.IsZero() {
		end = s.opts.Clock.Now()
	}
	paused := s.pausedTotal
	if s.paused {
		paused += end.Sub(s.pausedAt)
	}
	elapsed := end.Sub(s.startedAt) - paused
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Attempt builds the history record of a finished or timed out session.
func (s *Session) Attempt(attemptID string, date time.Time) domain.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.questions)
	elapsed := int(s.elapsedLocked().Seconds())
	answers := make([]domain.AttemptAnswer, len(s.answers))
	for i, a := range s.answers {
		answers[i] = domain.AttemptAnswer{QuestionID: a.QuestionID, IsCorrect: a.Answered && a.IsCorrect, Marked: a.Marked}
	}
	accuracy := 0.0
	if total > 0 {
		accuracy = math.Round(float64(s.score)/float64(total)*1000) / 10
	}
	return domain.Attempt{
		AttemptID:          attemptID,
		QuizID:             s.quiz.ID,
		QuizTitle:          s.quiz.Title,
		Score:              fmt.Sprintf("%d/%d", s.score, total),
		Points:             s.points,
		Accuracy:           accuracy,
		TimeTaken:          fmt.Sprintf("%02d:%02d", elapsed/60, elapsed%60),
		TimeElapsedSeconds: elapsed,
		Mode:               s.cfg.Mode,
		Date:               date,
		TotalQuestions:     total,
		MaxStreak:          s.maxStreak,
		Achievements:       []string{},
		Answers:            answers,
	}
}

func (s *Session) recordCompletion(c *domain.Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	s.completion = c
	close(s.done)
}

// Completion returns the result recorded when the session ended. It is nil
// for cancelled sessions and before the session ends.
func (s *Session) Completion() *domain.Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

// Snapshot returns the current progress of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) subscribe() (<-chan domain.SessionSnapshot, func()) {
	ch := make(chan domain.SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.SessionSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest update so a slow reader never blocks transitions
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	answered := 0
	marked := []int{}
	for i, a := range s.answers {
		if a.Answered {
			answered++
		}
		if a.Marked {
			marked = append(marked, i)
		}
	}
	snap := domain.SessionSnapshot{
		SessionID:        s.id,
		QuizID:           s.quiz.ID,
		Status:           s.status,
		Index:            s.index,
		Total:            len(s.questions),
		Answered:         answered,
		Score:            s.score,
		Points:           s.points,
		Streak:           s.streak,
		MaxStreak:        s.maxStreak,
		ElapsedSeconds:   int(s.elapsedLocked().Seconds()),
		RemainingSeconds: s.remaining,
		Timed:            s.cfg.TimeLimit > 0,
		Paused:           s.paused,
		Marked:           marked,
		UpdatedAt:        s.opts.Clock.Now(),
	}
	if s.index == len(s.questions)-1 && answered < len(s.questions) {
		snap.Pending = s.pendingLocked()
	}
	return snap
}
