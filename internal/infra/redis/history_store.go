package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"quizmaster/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HistoryStore keeps each user's attempts in a list and badges in a set:
//
//	RPUSH history:{userID} {attempt}
//	SADD  badges:{userID}  {badgeID}
type HistoryStore struct {
	client *redis.Client
	log    logrus.FieldLogger
}

func NewHistoryStore(client *redis.Client, log logrus.FieldLogger) *HistoryStore {
	return &HistoryStore{client: client, log: log}
}

func (h *HistoryStore) Append(ctx context.Context, userID string, attempt domain.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	return h.client.RPush(ctx, historyKey(userID), data).Err()
}

// List returns the attempts of userID oldest first. Entries that no longer
// decode are skipped with a warning.
func (h *HistoryStore) List(ctx context.Context, userID string) ([]domain.Attempt, error) {
	raw, err := h.client.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	attempts := make([]domain.Attempt, 0, len(raw))
	for i, item := range raw {
		var attempt domain.Attempt
		if err := json.Unmarshal([]byte(item), &attempt); err != nil {
			warning := &domain.DataIntegrityWarning{
				Subject: fmt.Sprintf("%s[%d]", historyKey(userID), i),
				Detail:  err.Error(),
			}
			h.log.WithError(warning).Warn("skipping unreadable attempt")
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

func (h *HistoryStore) Badges(ctx context.Context, userID string) ([]string, error) {
	ids, err := h.client.SMembers(ctx, badgesKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (h *HistoryStore) AddBadges(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return h.client.SAdd(ctx, badgesKey(userID), members...).Err()
}

func historyKey(userID string) string { return "history:" + userID }
func badgesKey(userID string) string  { return "badges:" + userID }
