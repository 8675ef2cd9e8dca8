package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin(t *testing.T) {
	lib := Builtin()

	assert.True(t, lib.Has("celebrities"))
	assert.True(t, lib.Has("fictional"))
	assert.False(t, lib.Has("nonexistent"))

	items, ok := lib.Items("animals")
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(items), 16, "pools must cover a full room")

	names := lib.Categories()
	assert.Contains(t, names, "professions")
	assert.IsIncreasing(t, names)
}

func TestLoadFile_MergesOverBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	content := `
categories:
  animals:
    - Dog
    - Cat
  memes:
    - Doge
    - Grumpy Cat
    - Nyan Cat
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lib, err := LoadFile(path)
	require.NoError(t, err)

	// File category replaces the builtin pool of the same name.
	items, ok := lib.Items("animals")
	require.True(t, ok)
	assert.Equal(t, []string{"Dog", "Cat"}, items)

	// New categories are added, builtins are kept.
	assert.True(t, lib.Has("memes"))
	assert.True(t, lib.Has("celebrities"))
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty-category.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  hollow: []\n"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
