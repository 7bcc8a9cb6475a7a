package index

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Payload field names shared by every backend
const (
	FieldID       = "id"
	FieldContent  = "content"
	FieldFileName = "file_name"
	FieldFileID   = "file_id"
	FieldChunkNo  = "chunk_no"
)

// Chunk is one retrievable piece of an ingested document
type Chunk struct {
	ID       string
	Content  string
	FileName string
	FileID   string
	ChunkNo  int
	Vector   []float32
}

// Result is a chunk matched by a search, most similar first
type Result struct {
	Chunk
	Score float32
}

// Index stores chunks and answers vector similarity queries
type Index interface {
	// Upsert adds or replaces chunks by ID; every chunk must carry a vector
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns up to topK chunks closest to vector
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)
	// HasFile reports whether any chunk of the named file is indexed
	HasFile(ctx context.Context, fileName string) (bool, error)
	Close() error
}

// DocumentID derives the stable document key from a file name
func DocumentID(fileName string) string {
	return base64.URLEncoding.EncodeToString([]byte(fileName))
}

// ChunkID derives the key of the n-th chunk of a document
func ChunkID(documentID string, n int) string {
	return fmt.Sprintf("%s_%d", documentID, n)
}
