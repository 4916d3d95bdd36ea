package domain

import "time"

// Quiz is a collection of questions plus an optional distractor pool keyed by category.
type Quiz struct {
	ID           string              `json:"quizId"`
	Title        string              `json:"quizTitle"`
	Questions    []Question          `json:"questions"`
	DummyAnswers map[string][]string `json:"dummyAnswers,omitempty"`
}

// Mode selects how the question list of a session is resolved.
type Mode string

const (
	ModeAll          Mode = "all"
	ModeExam         Mode = "exam"
	ModePresetShort  Mode = "preset-short"
	ModePresetMedium Mode = "preset-medium"
	ModePresetLong   Mode = "preset-long"
	ModeCustom       Mode = "custom"
	ModeErrors       Mode = "errors"
)

// SessionConfig is fixed once a session starts.
type SessionConfig struct {
	Mode            Mode          `json:"mode"`
	QuestionCount   int           `json:"questionCount,omitempty"`
	TimeLimit       time.Duration `json:"timeLimit,omitempty"`
	InstantFeedback bool          `json:"instantFeedback"`
	AllowBack       bool          `json:"allowBack"`
	ShowExplanation bool          `json:"showExplanation"`
	ErrorSessions   int           `json:"errorSessions,omitempty"`
}

// Normalize applies the coupling rules between flags: back navigation turns
// feedback off, and explanations need instant feedback.
func (c SessionConfig) Normalize() SessionConfig {
	if c.AllowBack {
		c.InstantFeedback = false
	}
	if !c.InstantFeedback {
		c.ShowExplanation = false
	}
	if c.ErrorSessions <= 0 {
		c.ErrorSessions = 1
	}
	if c.TimeLimit < 0 {
		c.TimeLimit = 0
	}
	return c
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusFinished  SessionStatus = "finished"
	StatusCancelled SessionStatus = "cancelled"
	StatusTimedOut  SessionStatus = "timedOut"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled || s == StatusTimedOut
}

// Answer is the per-question slot of a session.
type Answer struct {
	QuestionID       string   `json:"questionId"`
	Answered         bool     `json:"answered"`
	Value            Response `json:"submittedValue,omitempty"`
	IsCorrect        bool     `json:"isCorrect"`
	PointsEarned     int      `json:"pointsEarned"`
	TimeTakenSeconds int      `json:"timeTakenSeconds"`
	Marked           bool     `json:"marked"`
	DisplayedOptions []string `json:"displayedOptions,omitempty"`
}

// QuestionView is what a client needs to render one question.
type QuestionView struct {
	Index      int          `json:"index"`
	Total      int          `json:"total"`
	QuestionID string       `json:"questionId"`
	Type       QuestionType `json:"type"`
	Text       string       `json:"text"`
	Category   string       `json:"category,omitempty"`
	Points     int          `json:"points"`
	Options    []string     `json:"options,omitempty"`
	ItemsLeft  []string     `json:"itemsLeft,omitempty"`
	ItemsRight []string     `json:"itemsRight,omitempty"`
	Marked     bool         `json:"marked"`
	Answered   bool         `json:"answered"`
	Previous   Response     `json:"previous,omitempty"`
}

// Outcome is returned by an accepted submission.
type Outcome struct {
	Index             int    `json:"index"`
	QuestionID        string `json:"questionId"`
	IsCorrect         bool   `json:"isCorrect"`
	PointsEarned      int    `json:"pointsEarned"`
	CorrectSelected   int    `json:"correctSelected,omitempty"`
	IncorrectSelected int    `json:"incorrectSelected,omitempty"`
	Score             int    `json:"score"`
	Points            int    `json:"points"`
	Streak            int    `json:"streak"`
	MaxStreak         int    `json:"maxStreak"`
	Explanation       string `json:"explanation,omitempty"`
	CorrectAnswer     string `json:"correctAnswer,omitempty"`
}

// AdvanceResult describes where advance() left the session. Pending lists the
// unanswered indexes when the end was reached with gaps.
type AdvanceResult struct {
	Index      int   `json:"index"`
	Finished   bool  `json:"finished"`
	Incomplete bool  `json:"incomplete"`
	Pending    []int `json:"pending,omitempty"`
}

// SessionSnapshot is broadcast to subscribers after every transition.
type SessionSnapshot struct {
	SessionID        string        `json:"sessionId"`
	QuizID           string        `json:"quizId"`
	Status           SessionStatus `json:"status"`
	Index            int           `json:"index"`
	Total            int           `json:"total"`
	Answered         int           `json:"answered"`
	Score            int           `json:"score"`
	Points           int           `json:"points"`
	Streak           int           `json:"streak"`
	MaxStreak        int           `json:"maxStreak"`
	ElapsedSeconds   int           `json:"elapsedSeconds"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Timed            bool          `json:"timed"`
	Paused           bool          `json:"paused"`
	Marked           []int         `json:"marked"`
	Pending          []int         `json:"pending,omitempty"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Attempt is the immutable history record of a finished session.
type Attempt struct {
	AttemptID          string          `json:"attemptId"`
	QuizID             string          `json:"quizId"`
	QuizTitle          string          `json:"quizTitle"`
	Score              string          `json:"score"`
	Points             int             `json:"points"`
	Accuracy           float64         `json:"accuracy"`
	TimeTaken          string          `json:"timeTaken"`
	TimeElapsedSeconds int             `json:"timeElapsedSeconds"`
	Mode               Mode            `json:"mode"`
	Date               time.Time       `json:"date"`
	TotalQuestions     int             `json:"totalQuestions"`
	MaxStreak          int             `json:"maxStreak"`
	Achievements       []string        `json:"achievements"`
	Answers            []AttemptAnswer `json:"answers"`
}

// AttemptAnswer summarizes one question of an attempt.
type AttemptAnswer struct {
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
	Marked     bool   `json:"marked"`
}

// Stats is derived wholesale from attempt history.
type Stats struct {
	TotalQuizzes   int                  `json:"totalQuizzes"`
	TotalAnswers   int                  `json:"totalAnswers"`
	CorrectAnswers int                  `json:"correctAnswers"`
	TotalPoints    int                  `json:"totalPoints"`
	AvgAccuracy    float64              `json:"avgAccuracy"`
	LongestStreak  int                  `json:"longestStreak"`
	Quizzes        map[string]QuizStats `json:"quizStats"`
	Level          int                  `json:"level"`
	XP             int                  `json:"xp"`
	XPNextLevel    int                  `json:"xpNextLevel"`
	Badges         []string             `json:"badges"`
}

// QuizStats is the per-quiz breakdown of Stats.
type QuizStats struct {
	Attempts       int     `json:"attempts"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	TotalPoints    int     `json:"totalPoints"`
	AvgAccuracy    float64 `json:"avgAccuracy"`
	BestCorrect    int     `json:"bestCorrect"`
	BestTotal      int     `json:"bestTotal"`
	BestPoints     int     `json:"bestPoints"`
	BestScore      string  `json:"bestScore"`
}

// Badge is the display information of a badge.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"iconUrl,omitempty"`
}

// Completion is produced once when a session ends with an attempt.
type Completion struct {
	Attempt             Attempt  `json:"attempt"`
	SessionBadges       []Badge  `json:"sessionBadges"`
	GlobalBadges        []Badge  `json:"globalBadges"`
	Stats               Stats    `json:"stats"`
	PreviousAvgAccuracy *float64 `json:"previousAvgAccuracy,omitempty"`
}
