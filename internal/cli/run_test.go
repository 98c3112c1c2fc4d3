package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	files, err := inputFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestInputFiles_DirectoryListsSortedJSONOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "notes.txt", "c.JSON"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	files, err := inputFiles(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.json"),
		filepath.Join(dir, "c.JSON"),
	}, files)
}

func TestInputFiles_MissingPath(t *testing.T) {
	_, err := inputFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestReadRecords_Array(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"address": "123 Main St"},
		{"address": "456 Oak Ave"}
	]`), 0o644))

	records, err := readRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "123 Main St", records[0]["address"])
	assert.Equal(t, "456 Oak Ave", records[1]["address"])
}

func TestReadRecords_SingleObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"address": "123 Main St", "bedrooms": 3}`), 0o644))

	records, err := readRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "123 Main St", records[0]["address"])
	assert.Equal(t, float64(3), records[0]["bedrooms"])
}

func TestReadRecords_RejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`"just a string"`), 0o644))

	_, err := readRecords(path)
	assert.Error(t, err)
}
