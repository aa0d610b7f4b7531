package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/redisStore"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
)

// RedisMessageStore keeps one list per chat holding at most historyLength turns.
// A separate key marks the chat as created so a chat with no turns still validates.
type RedisMessageStore struct {
	store         *redisStore.Store
	historyLength int
	logger        *logger_i.Logger
}

// GetRedisMessageStore returns nil when redis is unreachable.
func GetRedisMessageStore(ctx context.Context, cfg config.RedisConfig, historyLength int) *RedisMessageStore {
	s := redisStore.GetRedisStore(ctx, cfg, config.RedisMessageStore)
	if s == nil {
		return nil
	}
	return NewRedisMessageStore(s, historyLength)
}

func NewRedisMessageStore(s *redisStore.Store, historyLength int) *RedisMessageStore {
	return &RedisMessageStore{
		store:         s,
		historyLength: historyLength,
		logger:        logger_i.NewLogger("message_store"),
	}
}

func chatKey(id string) string     { return "chat:" + id }
func messagesKey(id string) string { return "chat:" + id + ":messages" }

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	isFound, err := s.store.Exists(ctx, chatKey(chatId))
	if err != nil {
		s.logger.FromContext(ctx).Error("Failed to check if chatId exists", "chatId", chatId, "error", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	s.logger.FromContext(ctx).Debug("Initializing new chat", "chatId", id)
	if err := s.store.Del(ctx, messagesKey(id)); err != nil {
		return err
	}
	return s.store.Set(ctx, chatKey(id), time.Now().Unix(), config.RedisMessageStoreTTL)
}

func (s *RedisMessageStore) AppendMessages(ctx context.Context, chatId string, messages ...examModel.Message) error {
	log := s.logger.FromContext(ctx).With("chatId", chatId)
	if !s.ValidateChatId(ctx, chatId) {
		return fmt.Errorf("%w: %s", ErrUnknownChat, chatId)
	}

	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		if m.Role == examModel.RoleSystem {
			continue
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	if err := s.store.ListAppendBounded(ctx, messagesKey(chatId), int64(s.historyLength), config.RedisMessageStoreTTL, values...); err != nil {
		log.Error("Error saving chat", "error", err)
		return err
	}
	if err := s.store.Expire(ctx, chatKey(chatId), config.RedisMessageStoreTTL); err != nil {
		log.Warn("Failed to refresh chat expiry", "error", err)
	}
	log.Debug("Saved chat messages", "count", len(values))
	return nil
}

func (s *RedisMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]examModel.Message, error) {
	res, err := s.store.ListGetAll(ctx, messagesKey(chatId))
	if err != nil {
		s.logger.FromContext(ctx).Error("Error getting history", "chatId", chatId, "error", err)
		return nil, err
	}
	out := make([]examModel.Message, 0, len(res))
	for _, raw := range res {
		var m examModel.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("decoding message in chat %s: %w", chatId, err)
		}
		out = append(out, m)
	}
	return out, nil
}
