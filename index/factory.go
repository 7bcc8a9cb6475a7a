package index

import (
	"fmt"

	"deepresearch/config"

	"github.com/hashicorp/go-hclog"
)

// New opens the index described by the index block
func New(cfg *config.Index, logger hclog.Logger) (Index, error) {
	switch cfg.Backend {
	case config.IndexBackendChromem, "":
		return NewChromemIndex(cfg.Path, cfg.Collection, cfg.Compress, logger)
	case config.IndexBackendQdrant:
		return NewQdrantIndex(QdrantConfig{
			Host:       cfg.Host,
			Port:       cfg.Port,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
			Collection: cfg.Collection,
			Dimensions: cfg.Dimensions,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown index backend: %s", cfg.Backend)
	}
}
