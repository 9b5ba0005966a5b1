package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsEmptyRepositoryPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RepositoryPath = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangePipelineSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PipelineWorkerCount = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PipelineQueueDepth = 0
	require.Error(t, cfg.Validate())
}

func TestLoadConfigReturnsValidatableDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
