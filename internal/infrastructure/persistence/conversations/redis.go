// Package conversations provides the durable, shared conversation store.
package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hutfut/joshbot-go/internal/domain/entities/chat"
	"github.com/hutfut/joshbot-go/internal/infrastructure/caching/interfaces"
	"github.com/hutfut/joshbot-go/internal/infrastructure/observability/logging"
	"github.com/hutfut/joshbot-go/internal/infrastructure/security"
)

const keyPrefix = "joshbot"

// RedisStore keeps conversations in a shared store with JSON values and
// TTL-based expiry, plus a per-visitor index set for quota enforcement.
// Expiry is enforced twice: key TTLs make expired records unreadable, and
// the conversation's own activity timestamp is checked on load so a clock
// or TTL mismatch can never resurrect a stale transcript.
type RedisStore struct {
	client *redis.Client
	limits interfaces.ConversationLimits
	logger *logging.ChanneledLogger
	now    func() time.Time
}

// NewRedisStore creates a durable conversation store.
func NewRedisStore(client *redis.Client, limits interfaces.ConversationLimits, logger *logging.ChanneledLogger) *RedisStore {
	if logger != nil {
		logger.Cache().Info("Initializing durable conversation store",
			"ttl", limits.TTL, "visitorQuota", limits.MaxConversationsPerVisitor)
	}
	return &RedisStore{
		client: client,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

func (s *RedisStore) conversationKey(id string) string {
	return fmt.Sprintf("%s:conversation:%s", keyPrefix, id)
}

func (s *RedisStore) visitorIndexKey(visitorKey string) string {
	return fmt.Sprintf("%s:visitor:%s:conversations", keyPrefix, visitorKey)
}

// Create starts a conversation after pruning the visitor's index of ids
// whose records have expired out from under it.
func (s *RedisStore) Create(ctx context.Context, visitorKey, voiceID, personaID string) (*chat.Conversation, error) {
	live, err := s.pruneVisitorIndex(ctx, visitorKey)
	if err != nil {
		return nil, err
	}
	if live >= s.limits.MaxConversationsPerVisitor {
		return nil, chat.ErrVisitorQuotaExceeded
	}

	conv := chat.NewConversation(security.GenerateULID(), visitorKey, voiceID, personaID)
	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Cache().Debug("Conversation created", "conversationId", logging.MaskID(conv.ID),
			"visitorKey", logging.MaskID(visitorKey), "voiceId", voiceID, "backend", "redis")
	}
	return conv, nil
}

// Get loads the visitor's conversation.
func (s *RedisStore) Get(ctx context.Context, conversationID, visitorKey string) (*chat.Conversation, error) {
	return s.load(ctx, conversationID, visitorKey)
}

// AppendVisitorTurn records a visitor turn. The mutation runs under an
// optimistic transaction so two concurrent turns for one conversation can
// never lose a turn or carry the count past the terminal cap.
func (s *RedisStore) AppendVisitorTurn(ctx context.Context, conversationID, visitorKey, text string) (*chat.Conversation, error) {
	return s.mutate(ctx, conversationID, visitorKey, func(conv *chat.Conversation) error {
		if conv.Capped {
			return chat.ErrConversationCapped
		}
		conv.Append(chat.RoleVisitor, text, s.limits.MaxStoredTurns)
		conv.VisitorTurnCount++
		if conv.VisitorTurnCount >= s.limits.VisitorTurnLimit {
			conv.Capped = true
			if s.logger != nil {
				s.logger.Cache().Info("Conversation reached visitor-turn ceiling",
					"conversationId", logging.MaskID(conversationID), "turns", conv.VisitorTurnCount)
			}
		}
		return nil
	})
}

// AppendAssistantTurn records the assistant's reply.
func (s *RedisStore) AppendAssistantTurn(ctx context.Context, conversationID, visitorKey, text string) error {
	_, err := s.mutate(ctx, conversationID, visitorKey, func(conv *chat.Conversation) error {
		conv.Append(chat.RoleAssistant, text, s.limits.MaxStoredTurns)
		return nil
	})
	return err
}

// SweepExpired prunes visitor index sets. The conversation records
// themselves expire via key TTL, so the sweep only repairs the indexes.
func (s *RedisStore) SweepExpired(ctx context.Context, _ time.Time) (int, error) {
	pruned := 0
	pattern := fmt.Sprintf("%s:visitor:*", keyPrefix)
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := s.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("conversation index read: %w", err)
		}
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, s.conversationKey(id)).Result()
			if err != nil {
				return pruned, fmt.Errorf("conversation existence check: %w", err)
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
					return pruned, fmt.Errorf("conversation index prune: %w", err)
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, fmt.Errorf("conversation index scan: %w", err)
	}
	return pruned, nil
}

// Summary reports store occupancy by scanning conversation keys.
func (s *RedisStore) Summary(ctx context.Context) (interfaces.StoreSummary, error) {
	summary := interfaces.StoreSummary{Backend: "redis"}

	iter := s.client.Scan(ctx, 0, s.conversationKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		summary.Conversations++
	}
	if err := iter.Err(); err != nil {
		return summary, fmt.Errorf("conversation scan: %w", err)
	}

	iter = s.client.Scan(ctx, 0, fmt.Sprintf("%s:visitor:*", keyPrefix), 0).Iterator()
	for iter.Next(ctx) {
		summary.Visitors++
	}
	if err := iter.Err(); err != nil {
		return summary, fmt.Errorf("visitor index scan: %w", err)
	}
	return summary, nil
}

func (s *RedisStore) load(ctx context.Context, conversationID, visitorKey string) (*chat.Conversation, error) {
	data, err := s.client.Get(ctx, s.conversationKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, fmt.Errorf("conversation load: %w", err)
	}

	var conv chat.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("conversation decode: %w", err)
	}
	if conv.VisitorKey != visitorKey || conv.Expired(s.now(), s.limits.TTL) {
		return nil, chat.ErrConversationNotFound
	}
	return &conv, nil
}

// mutateRetries bounds optimistic-transaction retries under write contention.
const mutateRetries = 5

// mutate applies fn to the conversation inside a WATCH transaction on its
// key, so the read-modify-write is atomic with respect to other writers.
// A concurrent write aborts the transaction and the mutation retries from a
// fresh load.
func (s *RedisStore) mutate(ctx context.Context, conversationID, visitorKey string, fn func(*chat.Conversation) error) (*chat.Conversation, error) {
	key := s.conversationKey(conversationID)
	var result *chat.Conversation

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return chat.ErrConversationNotFound
			}
			return fmt.Errorf("conversation load: %w", err)
		}

		var conv chat.Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return fmt.Errorf("conversation decode: %w", err)
		}
		if conv.VisitorKey != visitorKey || conv.Expired(s.now(), s.limits.TTL) {
			return chat.ErrConversationNotFound
		}

		if err := fn(&conv); err != nil {
			return err
		}

		encoded, err := json.Marshal(&conv)
		if err != nil {
			return fmt.Errorf("conversation encode: %w", err)
		}

		indexKey := s.visitorIndexKey(conv.VisitorKey)
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.limits.TTL)
			pipe.Expire(ctx, indexKey, s.limits.TTL)
			return nil
		}); err != nil {
			return err
		}
		result = &conv
		return nil
	}

	for attempt := 0; attempt < mutateRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("conversation update contention: %w", redis.TxFailedErr)
}

// save writes a fresh conversation and registers it in the visitor index,
// refreshing both TTLs in one pipeline round-trip.
func (s *RedisStore) save(ctx context.Context, conv *chat.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("conversation encode: %w", err)
	}

	indexKey := s.visitorIndexKey(conv.VisitorKey)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.conversationKey(conv.ID), data, s.limits.TTL)
	pipe.SAdd(ctx, indexKey, conv.ID)
	pipe.Expire(ctx, indexKey, s.limits.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation save: %w", err)
	}
	return nil
}

// pruneVisitorIndex removes index entries whose records expired and returns
// the number of live conversations left.
func (s *RedisStore) pruneVisitorIndex(ctx context.Context, visitorKey string) (int, error) {
	indexKey := s.visitorIndexKey(visitorKey)
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("visitor index read: %w", err)
	}

	live := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.conversationKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("conversation existence check: %w", err)
		}
		if exists == 0 {
			if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
				return 0, fmt.Errorf("visitor index prune: %w", err)
			}
			continue
		}
		live++
	}
	return live, nil
}
