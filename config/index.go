package config

import "fmt"

const (
	IndexBackendChromem = "chromem"
	IndexBackendQdrant  = "qdrant"
)

// Index configures the retrieval index and the embedding model that feeds it
type Index struct {
	Backend    string `hcl:"backend,optional"`    // "chromem" or "qdrant"
	Collection string `hcl:"collection,optional"` // default: "documents"

	// chromem
	Path     string `hcl:"path,optional"` // empty keeps vectors in memory only
	Compress bool   `hcl:"compress,optional"`

	// qdrant
	Host   string `hcl:"host,optional"`
	Port   int    `hcl:"port,optional"`
	APIKey string `hcl:"api_key,optional"`
	UseTLS bool   `hcl:"use_tls,optional"`

	// embeddings (OpenAI-compatible endpoint)
	EmbeddingModel   string `hcl:"embedding_model,optional"`
	Dimensions       int    `hcl:"dimensions,optional"`
	EmbeddingAPIKey  string `hcl:"embedding_api_key,optional"`
	EmbeddingBaseURL string `hcl:"embedding_base_url,optional"`
}

// Defaults fills in default values for unset fields
func (i *Index) Defaults() {
	if i.Backend == "" {
		i.Backend = IndexBackendChromem
	}
	if i.Collection == "" {
		i.Collection = "documents"
	}
	if i.Backend == IndexBackendQdrant {
		if i.Host == "" {
			i.Host = "localhost"
		}
		if i.Port == 0 {
			i.Port = 6334
		}
	}
	if i.EmbeddingModel == "" {
		i.EmbeddingModel = "text-embedding-3-large"
	}
}

func (i *Index) Validate() error {
	switch i.Backend {
	case IndexBackendChromem, IndexBackendQdrant:
	default:
		return Invalid("index.backend: unknown backend '%s' (expected 'chromem' or 'qdrant')", i.Backend)
	}
	if i.EmbeddingAPIKey == "" {
		return Missing("index.embedding_api_key")
	}
	if i.Dimensions < 0 {
		return fmt.Errorf("index.dimensions must not be negative")
	}
	return nil
}
