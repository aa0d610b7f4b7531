package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/data/redisStore"
	"github.com/akolanti/ExamAPI/internal/data/store"
	"github.com/akolanti/ExamAPI/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewTestStore(client)
}

func traceCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestJobStores_Lifecycle(t *testing.T) {
	_, rs := newRedis(t)
	stores := map[string]jobModel.JobStore{
		"redis":    store.NewRedisJobStore(rs),
		"inmemory": store.InitInMemoryJobStore(),
	}

	for name, jobStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := traceCtx()
			testJob := jobModel.Job{
				Id:      "job_abc_123",
				JobType: jobModel.JobTypeExam,
				Status:  jobModel.JobStatusRunning,
				JobPayload: jobModel.JobPayload{
					Question: "physics exam for grade 12",
				},
			}

			require.NoError(t, jobStore.SaveJob(ctx, testJob))

			got, found := jobStore.GetJob(ctx, testJob.Id)
			require.True(t, found)
			assert.Equal(t, testJob.JobPayload.Question, got.JobPayload.Question)
			assert.Equal(t, jobModel.JobTypeExam, got.JobType)

			_, found = jobStore.GetJob(ctx, "ghost-id")
			assert.False(t, found)

			jobStore.DeleteJob(ctx, testJob.Id)
			_, found = jobStore.GetJob(ctx, testJob.Id)
			assert.False(t, found)
		})
	}
}

func TestRedisJobStore_TTL(t *testing.T) {
	mr, rs := newRedis(t)
	jobStore := store.NewRedisJobStore(rs)

	require.NoError(t, jobStore.SaveJob(traceCtx(), jobModel.Job{Id: "ttl-job"}))
	assert.Equal(t, config.RedisJobStoreTTL, mr.TTL("job:ttl-job"))
}

func TestRedisJobStore_Race(t *testing.T) {
	_, rs := newRedis(t)
	jobStore := store.NewRedisJobStore(rs)
	ctx := traceCtx()
	job := jobModel.Job{Id: "race-job"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	_, found := jobStore.GetJob(ctx, "race-job")
	assert.True(t, found)
}
