// Package config holds the repository's flat configuration struct,
// a flat struct of primitive fields, a DefaultConfig constructor with
// home-directory-relative defaults, a LoadConfig seam for a future
// file-based config, and a Validate method archivectl calls before
// acting on a loaded Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sambhavthakkar/archivevault/internal/chunk"
	"github.com/sambhavthakkar/archivevault/internal/chunker"
	"github.com/sambhavthakkar/archivevault/internal/segment"
	"github.com/sambhavthakkar/archivevault/internal/validation"
)

// Config holds repository-wide configuration.
type Config struct {
	RepositoryPath string
	KeyFile        string

	DefaultChunkSettings chunk.Settings
	ChunkerSettings      chunker.Settings

	PipelineWorkerCount int
	PipelineQueueDepth  int
	SegmentMaxSize      uint64
}

// DefaultConfig returns default configuration rooted under the user's home
// directory.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	repoDir := filepath.Join(homeDir, ".local", "share", "archivevault", "repo")

	return &Config{
		RepositoryPath:       repoDir,
		KeyFile:              filepath.Join(repoDir, "key"),
		DefaultChunkSettings: chunk.DefaultSettings(),
		ChunkerSettings:      chunker.DefaultSettings(),
		PipelineWorkerCount:  0, // 0 => runtime.NumCPU()
		PipelineQueueDepth:   50,
		SegmentMaxSize:       segment.DefaultMaxSize,
	}
}

// LoadConfig loads configuration from a file. Simplified: parsing is a
// seam for a future file format; today it returns the default.
func LoadConfig(configPath string) (*Config, error) {
	return DefaultConfig(), nil
}

// Validate checks c's fields are usable before archivectl opens a
// repository with them: a non-empty repository path, and worker/queue
// counts in a sane range (0 is allowed for PipelineWorkerCount, meaning
// "use runtime.NumCPU()").
func (c *Config) Validate() error {
	if err := validation.ValidateStringNonEmpty(c.RepositoryPath); err != nil {
		return fmt.Errorf("config: repository path: %w", err)
	}
	if err := validation.ValidateRangeInt(c.PipelineWorkerCount, 0, 4*runtime.NumCPU()); err != nil {
		return fmt.Errorf("config: pipeline worker count: %w", err)
	}
	if err := validation.ValidateRangeInt(c.PipelineQueueDepth, 1, 10000); err != nil {
		return fmt.Errorf("config: pipeline queue depth: %w", err)
	}
	return nil
}
