package store_test

import (
	"fmt"
	"testing"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/store"
	"github.com/akolanti/ExamAPI/internal/domain/examModel"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStores_BoundedHistory(t *testing.T) {
	_, rs := newRedis(t)
	stores := map[string]jobModel.MessageStore{
		"redis":    store.NewRedisMessageStore(rs, 4),
		"inmemory": store.InitMessageStore(4),
	}

	for name, messageStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := traceCtx()
			chatId := "chat-" + name

			assert.False(t, messageStore.ValidateChatId(ctx, chatId))
			err := messageStore.AppendMessages(ctx, chatId, examModel.UserMessage("hi"))
			require.ErrorIs(t, err, store.ErrUnknownChat)

			require.NoError(t, messageStore.InitNewChat(ctx, chatId))
			assert.True(t, messageStore.ValidateChatId(ctx, chatId), "a chat with no turns is still valid")

			history, err := messageStore.GetMessageHistory(ctx, chatId)
			require.NoError(t, err)
			assert.Empty(t, history)

			for i := 0; i < 3; i++ {
				require.NoError(t, messageStore.AppendMessages(ctx, chatId,
					examModel.SystemMessage("never stored"),
					examModel.UserMessage(fmt.Sprintf("request %d", i)),
					examModel.AssistantMessage(fmt.Sprintf("exam %d", i)),
				))
			}

			history, err = messageStore.GetMessageHistory(ctx, chatId)
			require.NoError(t, err)
			assert.Equal(t, []examModel.Message{
				examModel.UserMessage("request 1"),
				examModel.AssistantMessage("exam 1"),
				examModel.UserMessage("request 2"),
				examModel.AssistantMessage("exam 2"),
			}, history)
		})
	}
}

func TestRedisMessageStore_ExpiryRefreshed(t *testing.T) {
	mr, rs := newRedis(t)
	messageStore := store.NewRedisMessageStore(rs, 10)
	ctx := traceCtx()

	require.NoError(t, messageStore.InitNewChat(ctx, "c1"))
	require.NoError(t, messageStore.AppendMessages(ctx, "c1", examModel.UserMessage("hello")))

	assert.Equal(t, config.RedisMessageStoreTTL, mr.TTL("chat:c1"))
	assert.Equal(t, config.RedisMessageStoreTTL, mr.TTL("chat:c1:messages"))
}

func TestRedisMessageStore_InitResetsHistory(t *testing.T) {
	_, rs := newRedis(t)
	messageStore := store.NewRedisMessageStore(rs, 10)
	ctx := traceCtx()

	require.NoError(t, messageStore.InitNewChat(ctx, "c2"))
	require.NoError(t, messageStore.AppendMessages(ctx, "c2", examModel.UserMessage("old")))
	require.NoError(t, messageStore.InitNewChat(ctx, "c2"))

	history, err := messageStore.GetMessageHistory(ctx, "c2")
	require.NoError(t, err)
	assert.Empty(t, history)
}
