package qdrantDB

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/ExamAPI/internal/config"
	"github.com/akolanti/ExamAPI/internal/rag/vectorDB"
	"github.com/akolanti/ExamAPI/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ClientHolder struct {
	QObj   *qdrant.Client
	logger *logger_i.Logger
}

func NewQdrantClient(ctx context.Context, cfg config.VectorStoreConfig) (*ClientHolder, error) {
	logger := logger_i.NewLogger("Qdrant")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.QdrantHost,
		Port:     cfg.QdrantPort,
		UseTLS:   cfg.QdrantUseTLS,
		PoolSize: uint(cfg.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error", err)
		return nil, fmt.Errorf("qdrant client: %w", err)
	}

	holder := &ClientHolder{QObj: client, logger: logger}
	go closeQdrant(ctx, holder)
	return holder, nil
}

func closeQdrant(ctx context.Context, db *ClientHolder) {
	<-ctx.Done()
	db.logger.Info("Shutting down Qdrant")
	if err := db.QObj.Close(); err != nil {
		db.logger.Error("could not close Qdrant: ", "error", err)
	}
	db.logger.Info("Closed Qdrant")
}

func (db *ClientHolder) CollectionExists(ctx context.Context, collectionName string) (bool, error) {
	return db.QObj.CollectionExists(ctx, collectionName)
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string, dimension int) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	db.logger.FromContext(ctx).Info("Creating collection", "collection", collectionName, "dimension", dimension)
	return db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, collectionName string, points []vectorDB.Point) error {
	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.Id),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(toQdrantPayload(p.Payload)),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (db *ClientHolder) Search(ctx context.Context, collectionName string, vector []float32, k int, filter vectorDB.Filter) ([]vectorDB.Hit, error) {
	log := db.logger.FromContext(ctx)

	query := &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if !filter.IsEmpty() {
		query.Filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatchKeywords(filter.Key, filter.AnyOf...)},
		}
	}

	result, err := db.QObj.Query(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return nil, vectorDB.ErrCollectionNotFound
		}
		log.Error("Error querying Qdrant: ", "error", err)
		return nil, err
	}

	hits := make([]vectorDB.Hit, 0, len(result))
	for _, point := range result {
		hits = append(hits, vectorDB.Hit{
			Id:      pointId(point.GetId()),
			Score:   point.GetScore(),
			Payload: fromQdrantPayload(point.GetPayload()),
		})
	}
	log.Debug("Found matches", "collection", collectionName, "count", len(hits))
	return hits, nil
}

func (db *ClientHolder) Count(ctx context.Context, collectionName string) (int, error) {
	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: collectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, vectorDB.ErrCollectionNotFound
		}
		return 0, err
	}
	return int(n), nil
}

func isNotFound(err error) bool {
	s, ok := status.FromError(err)
	return ok && s.Code() == codes.NotFound
}

func pointId(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprint(id.GetNum())
}

// the value map only understands []any for lists
func toQdrantPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch typed := v.(type) {
		case []string:
			list := make([]any, len(typed))
			for i, s := range typed {
				list[i] = s
			}
			out[k] = list
		case int:
			out[k] = int64(typed)
		default:
			out[k] = v
		}
	}
	return out
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = fromQdrantValue(v)
	}
	return out
}

func fromQdrantValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = fromQdrantValue(item)
		}
		return list
	}
	return nil
}
