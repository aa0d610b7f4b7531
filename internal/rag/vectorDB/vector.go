package vectorDB

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrCollectionNotFound = errors.New("collection not found")

type Point struct {
	Id      string
	Vector  []float32
	Payload map[string]any
}

type Hit struct {
	Id      string
	Score   float32
	Payload map[string]any
}

// String reads a payload value as text; missing keys give "".
func (h Hit) String(key string) string {
	v, ok := h.Payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Filter keeps points whose Key payload holds any of AnyOf.
// The payload value may be a list or a single string.
type Filter struct {
	Key   string
	AnyOf []string
}

func (f Filter) IsEmpty() bool {
	return f.Key == "" || len(f.AnyOf) == 0
}

// Matches is the reference semantics for backends that filter in process.
func (f Filter) Matches(payload map[string]any) bool {
	if f.IsEmpty() {
		return true
	}
	var values []string
	switch v := payload[f.Key].(type) {
	case string:
		values = strings.Split(v, "|")
	case []string:
		values = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	}
	for _, have := range values {
		for _, want := range f.AnyOf {
			if strings.TrimSpace(have) == want {
				return true
			}
		}
	}
	return false
}

type DataProcessor interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, collectionName string, dimension int) error
	UpsertBatch(ctx context.Context, collectionName string, points []Point) error
	// Search returns ErrCollectionNotFound when the collection was never created.
	Search(ctx context.Context, collectionName string, vector []float32, k int, filter Filter) ([]Hit, error)
	Count(ctx context.Context, collectionName string) (int, error)
}
