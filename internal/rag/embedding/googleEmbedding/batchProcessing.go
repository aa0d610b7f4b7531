package googleEmbedding

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const batchPollInterval = 30 * time.Second

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func doRetry(err error, log *logger_i.Logger) bool {
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted {
			log.Error("Rate limit hit! ", "error", err)
			return true
		}
	}
	return false
}

func (c *client) getInlinedBatchRequests(chunks []string) *genai.EmbedContentBatch {
	return &genai.EmbedContentBatch{
		Config:   &genai.EmbedContentConfig{OutputDimensionality: &c.dimension, TaskType: taskType},
		Contents: getContent(chunks),
	}
}

func (c *client) pollForAnswer(ctx context.Context, batchJobName string, log *logger_i.Logger) (*genai.BatchJob, error) {
	ticker := time.NewTicker(batchPollInterval)
	defer ticker.Stop()
	log.Debug("pollForAnswer")
	for {
		select {
		case <-ctx.Done():
			log.Error("pollForAnswer cancelled", "error", ctx.Err())
			return nil, ctx.Err()

		case <-ticker.C:
			bJob, err := c.genAi.Batches.Get(ctx, batchJobName, nil)
			if err != nil || bJob == nil {
				log.Error("Error getting batch job:", "error", err)
				continue
			}

			//https://pkg.go.dev/google.golang.org/genai@v1.41.1#JobState
			switch bJob.State {
			case genai.JobStateSucceeded:
				log.Debug("batch job succeeded")
				return bJob, nil
			case genai.JobStateFailed:
				msg := "unknown"
				if bJob.Error != nil {
					msg = bJob.Error.Message
				}
				log.Error("batch job failed", "reason", msg)
				return nil, errors.New("embedding batch job failed: " + msg)
			case genai.JobStateCancelled, genai.JobStateExpired, genai.JobStatePartiallySucceeded:
				log.Error("batch job ended early", "state", bJob.State)
				return nil, errors.New("embedding batch job ended in state " + string(bJob.State))
			}
			//all other states we wait for the context to expire or the job to end
		}
	}
}

// downloadAnswerFromClient keeps the input order; a failed item is an error for the whole batch
// since callers index vectors by position.
func downloadAnswerFromClient(answer *genai.BatchJob, expected int, logger *logger_i.Logger) ([][]float32, error) {
	if answer.Dest == nil || len(answer.Dest.InlinedEmbedContentResponses) != expected {
		return nil, errors.New("embedding batch job returned an incomplete result set")
	}

	results := make([][]float32, 0, expected)
	for i, r := range answer.Dest.InlinedEmbedContentResponses {
		if r == nil || r.Error != nil || r.Response == nil || r.Response.Embedding == nil {
			logger.Error("Error with a particular result in batch embedding", "index", i)
			return nil, errors.New("embedding batch job returned a failed item")
		}
		results = append(results, r.Response.Embedding.Values)
	}
	return results, nil
}
