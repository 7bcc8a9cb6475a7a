package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/philippgille/chromem-go"
)

// ChromemIndex keeps vectors in an embedded chromem-go database, persisted
// to a directory when a path is configured
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	files      *chromem.Collection // one marker document per ingested file name
	mu         sync.RWMutex
	logger     hclog.Logger
}

// fileMarkerSuffix names the collection that records ingested files
const fileMarkerSuffix = "_files"

// NewChromemIndex opens (or creates) the named collection. An empty path keeps
// everything in memory.
func NewChromemIndex(path, collection string, compress bool, logger hclog.Logger) (*ChromemIndex, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
		logger.Debug("created in-memory vector database")
	} else {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(path, compress)
		if err != nil {
			return nil, fmt.Errorf("open vector database %s: %w", path, err)
		}
		logger.Debug("opened vector database", "path", path)
	}

	// Vectors are always computed by the caller
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("chromem index requires precomputed embeddings")
	}

	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", collection, err)
	}

	files, err := db.GetOrCreateCollection(collection+fileMarkerSuffix, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", collection+fileMarkerSuffix, err)
	}

	return &ChromemIndex{db: db, collection: col, files: files, logger: logger}, nil
}

func (c *ChromemIndex) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	var markers []chromem.Document
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if len(ch.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector", ch.ID)
		}
		docs = append(docs, chromem.Document{
			ID:      ch.ID,
			Content: ch.Content,
			Metadata: map[string]string{
				FieldFileName: ch.FileName,
				FieldFileID:   ch.FileID,
				FieldChunkNo:  strconv.Itoa(ch.ChunkNo),
			},
			Embedding: ch.Vector,
		})
		if ch.FileName != "" && !seen[ch.FileName] {
			seen[ch.FileName] = true
			markers = append(markers, chromem.Document{
				ID:        DocumentID(ch.FileName),
				Content:   ch.FileName,
				Embedding: []float32{1},
			})
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	if len(markers) > 0 {
		if err := c.files.AddDocuments(ctx, markers, 1); err != nil {
			return fmt.Errorf("record files: %w", err)
		}
	}
	c.logger.Debug("upserted chunks", "count", len(docs))
	return nil
}

func (c *ChromemIndex) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// chromem rejects nResults larger than the collection
	n := topK
	if count := c.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	matches, err := c.collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		chunkNo, _ := strconv.Atoi(m.Metadata[FieldChunkNo])
		out = append(out, Result{
			Chunk: Chunk{
				ID:       m.ID,
				Content:  m.Content,
				FileName: m.Metadata[FieldFileName],
				FileID:   m.Metadata[FieldFileID],
				ChunkNo:  chunkNo,
			},
			Score: m.Similarity,
		})
	}
	return out, nil
}

// HasFile reports whether any chunk of the file has been upserted
func (c *ChromemIndex) HasFile(ctx context.Context, fileName string) (bool, error) {
	if fileName == "" {
		return false, errors.New("file name is empty")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// GetByID only fails for unknown ids once the id is non-empty
	if _, err := c.files.GetByID(ctx, DocumentID(fileName)); err != nil {
		return false, nil
	}
	return true, nil
}

// Count returns the number of indexed chunks
func (c *ChromemIndex) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.Count()
}

// Close is a no-op: persistent databases write through on every upsert
func (c *ChromemIndex) Close() error {
	return nil
}
