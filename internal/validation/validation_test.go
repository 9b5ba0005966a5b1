package validation

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	require.Error(t, ValidateFilePath("", false))

	dir := t.TempDir()
	require.NoError(t, ValidateFilePath(dir, true))

	missing := filepath.Join(dir, "nope")
	require.ErrorIs(t, ValidateFilePath(missing, true), ErrPathNotExists)
}

func TestValidateStringNonEmpty(t *testing.T) {
	require.NoError(t, ValidateStringNonEmpty("archive-name"))
	require.ErrorIs(t, ValidateStringNonEmpty(""), ErrEmptyString)
}

func TestValidateRangeInt(t *testing.T) {
	require.NoError(t, ValidateRangeInt(4, 1, 16))
	require.Error(t, ValidateRangeInt(0, 1, 16))
	require.Error(t, ValidateRangeInt(17, 1, 16))
}
