package embeddingtest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
)

// HashEmbedder is a deterministic bag-of-words embedder: each lower-cased word
// bumps one of Dim buckets. Texts sharing words end up close under cosine.
type HashEmbedder struct {
	Dim   int
	calls atomic.Int64
}

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dim: 64}
}

func (e *HashEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.vector(text), nil
}

func (e *HashEmbedder) BatchEmbedding(_ context.Context, texts []string, _ bool) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *HashEmbedder) ModelName() string { return "hash-embedder" }

func (e *HashEmbedder) Dimension() int { return e.Dim }

// Calls counts embedding requests, batch or single.
func (e *HashEmbedder) Calls() int { return int(e.calls.Load()) }

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.Dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?|\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[int(h.Sum32())%e.Dim]++
	}
	return v
}
