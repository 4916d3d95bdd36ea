package memory

import (
	"context"
	"sort"
	"sync"

	"quizmaster/internal/domain"
)

// HistoryStore keeps attempts and badge sets per user in memory.
type HistoryStore struct {
	mu       sync.RWMutex
	attempts map[string][]domain.Attempt
	badges   map[string]map[string]struct{}
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		attempts: make(map[string][]domain.Attempt),
		badges:   make(map[string]map[string]struct{}),
	}
}

func (h *HistoryStore) Append(_ context.Context, userID string, attempt domain.Attempt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts[userID] = append(h.attempts[userID], attempt)
	return nil
}

func (h *HistoryStore) List(_ context.Context, userID string) ([]domain.Attempt, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.Attempt(nil), h.attempts[userID]...), nil
}

func (h *HistoryStore) Badges(_ context.Context, userID string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.badges[userID]))
	for id := range h.badges[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// AddBadges merges ids into the user's set; badges are never removed.
func (h *HistoryStore) AddBadges(_ context.Context, userID string, ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.badges[userID]
	if !ok {
		set = make(map[string]struct{}, len(ids))
		h.badges[userID] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return nil
}
