package job

import (
	"testing"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/redisStore"
	"github.com/akolanti/ExamAPI/internal/data/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	redisJobs := store.NewRedisJobStore(redisStore.NewTestStore(client))
	redisMessages := store.NewRedisMessageStore(redisStore.NewTestStore(client), 10)

	t.Run("both online", func(t *testing.T) {
		jobs, messages, err := SelectStores(redisJobs, redisMessages, config.RedisConfig{}, 10)
		require.NoError(t, err)
		assert.Same(t, redisJobs, jobs)
		assert.Same(t, redisMessages, messages)
	})

	t.Run("one offline falls back for both", func(t *testing.T) {
		jobs, messages, err := SelectStores(redisJobs, nil, config.RedisConfig{Fallback: true}, 10)
		require.NoError(t, err)
		assert.IsType(t, &store.InMemoryJobStore{}, jobs)
		assert.IsType(t, &store.InMemoryMessageStore{}, messages)
	})

	t.Run("offline without fallback", func(t *testing.T) {
		_, _, err := SelectStores(nil, nil, config.RedisConfig{}, 10)
		assert.ErrorIs(t, err, ErrStoresOffline)
	})
}
