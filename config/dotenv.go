package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files.
//
// Explicit paths are tried first, then .env in the current directory.
// Variables already present in the environment are never overwritten,
// so the first file to define a key wins.
func LoadDotEnv(paths ...string) error {
	for _, path := range append(paths, ".env") {
		if path == "" {
			continue
		}
		if err := loadIfExists(path); err != nil {
			return err
		}
	}
	return nil
}

// LoadDotEnvForConfig loads .env from the config path's directory, then the working directory
func LoadDotEnvForConfig(configPath string) error {
	if configPath == "" {
		return LoadDotEnv()
	}

	dir := configPath
	if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(configPath)
	}
	return LoadDotEnv(filepath.Join(dir, ".env"))
}

func loadIfExists(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}
