package config

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// StorageConfig defines the storage backend for research runs
type StorageConfig struct {
	Backend string `hcl:"backend,optional"` // "memory", "sqlite" or "postgres"
	Path    string `hcl:"path,optional"`    // SQLite file path (default: ".deepresearch/store.db")
	DSN     string `hcl:"dsn,optional"`     // Postgres connection string
}

// Defaults fills in default values for unset fields
func (s *StorageConfig) Defaults() {
	if s.Backend == "" {
		s.Backend = StorageMemory
	}
	if s.Path == "" {
		s.Path = ".deepresearch/store.db"
	}
}

func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case StorageMemory, StorageSQLite:
		return nil
	case StoragePostgres:
		if s.DSN == "" {
			return Missing("storage.dsn")
		}
		return nil
	default:
		return Invalid("storage.backend: unknown backend '%s' (expected 'memory', 'sqlite' or 'postgres')", s.Backend)
	}
}
