package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/ExamAPI/internal/domain/examModel"
)

var ErrUnknownChat = errors.New("unknown chat id")

type InMemoryMessageStore struct {
	chatLock      *sync.RWMutex
	chatMap       map[string][]examModel.Message
	historyLength int
}

func InitMessageStore(historyLength int) *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock:      new(sync.RWMutex),
		chatMap:       make(map[string][]examModel.Message),
		historyLength: historyLength,
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]examModel.Message, 0)
	return nil
}

func (store *InMemoryMessageStore) AppendMessages(ctx context.Context, chatId string, messages ...examModel.Message) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	turns, ok := store.chatMap[chatId]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChat, chatId)
	}
	for _, m := range messages {
		if m.Role != examModel.RoleSystem {
			turns = append(turns, m)
		}
	}
	if store.historyLength > 0 && len(turns) > store.historyLength {
		turns = append([]examModel.Message(nil), turns[len(turns)-store.historyLength:]...)
	}
	store.chatMap[chatId] = turns
	return nil
}

func (store *InMemoryMessageStore) GetMessageHistory(ctx context.Context, chatId string) ([]examModel.Message, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	turns := store.chatMap[chatId]
	out := make([]examModel.Message, len(turns))
	copy(out, turns)
	return out, nil
}
