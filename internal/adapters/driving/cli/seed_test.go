package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCmd_WritesSamples(t *testing.T) {
	cleanup := setupTestServices(nil)
	defer cleanup()
	dir := filepath.Join(t.TempDir(), "docs")

	out, err := execute(t, "seed", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Created 6 sample documents in "+dir)
	assert.Contains(t, out, "- machine_learning.txt")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestSeedCmd_KeepsExistingFiles(t *testing.T) {
	cleanup := setupTestServices(nil)
	defer cleanup()
	dir := t.TempDir()
	existing := filepath.Join(dir, "machine_learning.txt")
	require.NoError(t, os.WriteFile(existing, []byte("mine"), 0644))

	out, err := execute(t, "seed", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Created 5 sample documents")
	assert.Contains(t, out, "Kept 1 existing files")
	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))

	out, err = execute(t, "seed", dir, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Created 6 sample documents")
	data, err = os.ReadFile(existing)
	require.NoError(t, err)
	assert.NotEqual(t, "mine", string(data))
}

func TestSeedCmd_DefaultsToDocumentsDir(t *testing.T) {
	cleanup := setupTestServices(nil)
	defer cleanup()
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "corpus")
	t.Setenv("DOCUMENTS_DIR", dir)

	out, err := execute(t, "seed", "--config", filepath.Join(t.TempDir(), "config.toml"))

	require.NoError(t, err)
	assert.Contains(t, out, "Created 6 sample documents in "+dir)
	assert.FileExists(t, filepath.Join(dir, "transformers.txt"))
}
