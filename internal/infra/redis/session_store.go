package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"quizmaster/internal/app"
	"quizmaster/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own timers and subscribers, so the live objects stay in a local
// map; Redis holds a liveness marker with the latest snapshot so other
// instances and operators can see which sessions exist.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.Touch(context.Background(), session)
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Touch refreshes the marker of session with its current snapshot.
func (s *SessionStore) Touch(ctx context.Context, session *app.Session) error {
	data, err := json.Marshal(session.Snapshot())
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID()), data, s.ttl).Err()
}

// Marker reads the snapshot last written for sessionID, from any instance.
func (s *SessionStore) Marker(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	var snap domain.SessionSnapshot
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return snap, domain.ErrSessionNotFound
	}
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
