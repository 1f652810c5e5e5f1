package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"bases":[{"base":"users","items":[{"key":"1","name":"alex"}]}]}`), 0o600))

	yamlPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("bases:\n  - base: users\n    items:\n      - key: \"1\"\n        name: alex\n"), 0o600))

	for _, path := range []string{jsonPath, yamlPath} {
		seeds, err := Load(path)
		require.NoError(t, err, path)
		require.Len(t, seeds, 1)
		assert.Equal(t, "users", seeds[0].Base)
		require.Len(t, seeds[0].Items, 1)
		assert.Equal(t, "1", seeds[0].Items[0]["key"])
		assert.Equal(t, "alex", seeds[0].Items[0]["name"])
	}
}

func TestParseRejectsMissingBase(t *testing.T) {
	_, err := ParseJSON([]byte(`{"bases":[{"items":[]}]}`))
	assert.Error(t, err)

	_, err = ParseYAML([]byte("bases:\n  - items: []\n"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := ParseJSON([]byte(`{"tables":[]}`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
