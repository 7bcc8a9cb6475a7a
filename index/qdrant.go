package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig locates a Qdrant server (gRPC port)
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	// Dimensions sizes the collection when it is created; zero uses the first vector's length
	Dimensions int
}

// QdrantIndex stores chunks as points in a Qdrant collection
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions int
	logger     hclog.Logger

	mu    sync.Mutex
	ready bool
}

func NewQdrantIndex(cfg QdrantConfig, logger hclog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}, nil
}

// pointID maps a chunk key onto the UUID space Qdrant requires
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, size int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ready {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		if q.dimensions > 0 {
			size = q.dimensions
		}
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(size),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create collection: %w", err)
		}
		q.logger.Info("created collection", "collection", q.collection, "size", size)
	}
	q.ready = true
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := q.ensureCollection(ctx, len(chunks[0].Vector)); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", ch.ID)
		}
		payload, err := chunkPayload(ch)
		if err != nil {
			return err
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(ch.ID)),
			Vectors: qdrant.NewVectors(ch.Vector...),
			Payload: payload,
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	q.logger.Debug("upserted chunks", "count", len(points))
	return nil
}

func chunkPayload(ch Chunk) (map[string]*qdrant.Value, error) {
	fields := map[string]any{
		FieldID:       ch.ID,
		FieldContent:  ch.Content,
		FieldFileName: ch.FileName,
		FieldFileID:   ch.FileID,
		FieldChunkNo:  int64(ch.ChunkNo),
	}
	payload := make(map[string]*qdrant.Value, len(fields))
	for key, value := range fields {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return nil, fmt.Errorf("convert payload value for key %s: %w", key, err)
		}
		payload[key] = val
	}
	return payload, nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	resp, err := q.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	out := make([]Result, 0, len(resp.Result))
	for _, point := range resp.Result {
		p := point.Payload
		out = append(out, Result{
			Chunk: Chunk{
				ID:       p[FieldID].GetStringValue(),
				Content:  p[FieldContent].GetStringValue(),
				FileName: p[FieldFileName].GetStringValue(),
				FileID:   p[FieldFileID].GetStringValue(),
				ChunkNo:  int(p[FieldChunkNo].GetIntegerValue()),
			},
			Score: point.Score,
		})
	}
	return out, nil
}

func (q *QdrantIndex) HasFile(ctx context.Context, fileName string) (bool, error) {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil || !exists {
		return false, err
	}

	exact := true
	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: FieldFileName,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: fileName},
						},
					},
				},
			}},
		},
		Exact: &exact,
	})
	if err != nil {
		return false, fmt.Errorf("count points: %w", err)
	}
	return count > 0, nil
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
