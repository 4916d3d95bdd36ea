// Package events publishes quiz lifecycle events through watermill.
package events

import (
	"time"

	"quizmaster/internal/domain"

	"github.com/google/uuid"
)

type EventType string

const (
	AttemptRecorded EventType = "quiz.attempt_recorded"
	BadgesUnlocked  EventType = "quiz.badges_unlocked"
)

const (
	eventSource  = "quizmaster"
	eventVersion = "1.0"
)

// Event is the envelope of every published message.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"userId"`
	Attempt   *domain.Attempt `json:"attempt,omitempty"`
	Badges    []domain.Badge  `json:"badges,omitempty"`
	Stats     *domain.Stats   `json:"stats,omitempty"`
}

func newEvent(t EventType, userID string, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: at.UTC(),
		UserID:    userID,
	}
}

// NewAttemptRecorded describes a finished session that was written to history.
func NewAttemptRecorded(userID string, attempt domain.Attempt, stats domain.Stats, at time.Time) *Event {
	e := newEvent(AttemptRecorded, userID, at)
	e.Attempt = &attempt
	e.Stats = &stats
	return e
}

// NewBadgesUnlocked lists badges a user earned at the end of a session.
func NewBadgesUnlocked(userID string, badges []domain.Badge, at time.Time) *Event {
	e := newEvent(BadgesUnlocked, userID, at)
	e.Badges = badges
	return e
}
