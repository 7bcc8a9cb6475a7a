package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deepresearch/index"
	"deepresearch/llm"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// SupportedExtensions lists the file types the analyzer accepts
var SupportedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".tiff", ".docx", ".xlsx", ".pptx", ".html"}

const DefaultConcurrency = 4

// FileStatus is the outcome of ingesting one file
type FileStatus string

const (
	FileIndexed FileStatus = "indexed"
	FileSkipped FileStatus = "skipped"
	FileEmpty   FileStatus = "empty"
	FileFailed  FileStatus = "failed"
)

// FileResult reports what happened to one file
type FileResult struct {
	Path   string
	Status FileStatus
	Chunks int
	Err    error
}

// Summary totals a pipeline run
type Summary struct {
	Files    []FileResult
	Chunks   int
	Embedded int
}

type Options struct {
	// Concurrency bounds parallel embedding requests (default 4)
	Concurrency int
	// OnFile is called as each file finishes analysis
	OnFile func(FileResult)
	Logger hclog.Logger
}

// Pipeline analyzes documents, chunks them by markdown headers, embeds the
// chunks and upserts them into an index
type Pipeline struct {
	analyzer    Analyzer
	embedder    llm.Embedder
	index       index.Index
	concurrency int
	onFile      func(FileResult)
	logger      hclog.Logger
}

func NewPipeline(analyzer Analyzer, embedder llm.Embedder, idx index.Index, opts Options) (*Pipeline, error) {
	if analyzer == nil || embedder == nil || idx == nil {
		return nil, fmt.Errorf("pipeline requires an analyzer, an embedder and an index")
	}
	p := &Pipeline{
		analyzer:    analyzer,
		embedder:    embedder,
		index:       idx,
		concurrency: opts.Concurrency,
		onFile:      opts.OnFile,
		logger:      opts.Logger,
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	return p, nil
}

// FindFiles lists files directly inside dir with a supported extension,
// sorted by name
func FindFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// IngestDir ingests every supported file in dir
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Summary, error) {
	files, err := FindFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	return p.Ingest(ctx, files)
}

// Ingest analyzes and indexes the given files. Files already present in the
// index, or whose analysis fails, are reported and skipped. Chunks that fail
// to embed are dropped. A failed index lookup is logged and the file is
// processed. Only upsert and context errors abort the run.
func (p *Pipeline) Ingest(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{}
	var chunks []index.Chunk

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		result, fileChunks, err := p.analyze(ctx, path)
		if err != nil {
			return summary, err
		}
		summary.Files = append(summary.Files, result)
		chunks = append(chunks, fileChunks...)
		if p.onFile != nil {
			p.onFile(result)
		}
	}

	summary.Chunks = len(chunks)
	if len(chunks) == 0 {
		return summary, nil
	}

	embedded, err := p.embed(ctx, chunks)
	if err != nil {
		return summary, err
	}
	summary.Embedded = len(embedded)
	if len(embedded) == 0 {
		p.logger.Warn("no chunks could be embedded")
		return summary, nil
	}

	if err := p.index.Upsert(ctx, embedded); err != nil {
		return summary, fmt.Errorf("upserting chunks: %w", err)
	}
	p.logger.Info("ingestion complete", "files", len(summary.Files), "chunks", summary.Embedded)
	return summary, nil
}

// analyze returns an error only when the context is cancelled
func (p *Pipeline) analyze(ctx context.Context, path string) (FileResult, []index.Chunk, error) {
	fileName := filepath.Base(path)
	result := FileResult{Path: path}
	logger := p.logger.With("file", fileName)

	exists, err := p.index.HasFile(ctx, fileName)
	if err != nil {
		if ctx.Err() != nil {
			return result, nil, ctx.Err()
		}
		logger.Warn("index lookup failed, processing anyway", "error", err)
		exists = false
	}
	if exists {
		logger.Info("already indexed, skipping")
		result.Status = FileSkipped
		return result, nil, nil
	}

	markdown, err := p.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return result, nil, ctx.Err()
		}
		logger.Error("analysis failed", "error", err)
		result.Status = FileFailed
		result.Err = err
		return result, nil, nil
	}

	sections := ChunkMarkdownByHeaders(markdown)
	if len(sections) == 0 {
		logger.Warn("analysis returned no content")
		result.Status = FileEmpty
		return result, nil, nil
	}

	docID := index.DocumentID(fileName)
	chunks := make([]index.Chunk, len(sections))
	for i, section := range sections {
		chunks[i] = index.Chunk{
			ID:       index.ChunkID(docID, i),
			Content:  section,
			FileName: fileName,
			FileID:   docID,
			ChunkNo:  i,
		}
	}
	logger.Debug("chunked document", "chunks", len(chunks))

	result.Status = FileIndexed
	result.Chunks = len(chunks)
	return result, chunks, nil
}

// embed fills in vectors with bounded parallelism, keeping chunk order
func (p *Pipeline) embed(ctx context.Context, chunks []index.Chunk) ([]index.Chunk, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, chunks[i].Content)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("embedding failed", "chunk", chunks[i].ID, "error", err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	embedded := make([]index.Chunk, 0, len(chunks))
	for i, c := range chunks {
		if vectors[i] == nil {
			continue
		}
		c.Vector = vectors[i]
		embedded = append(embedded, c)
	}
	return embedded, nil
}
