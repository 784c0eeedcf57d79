package widget

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewFileTokenStore(dir)

	_, ok, err := store.Load("org_1")
	require.NoError(t, err)
	assert.False(t, ok)

	first, second := uuid.New(), uuid.New()
	require.NoError(t, store.Save("org_1", first))
	require.NoError(t, store.Save("org_2", second))

	id, ok, err := store.Load("org_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first, id)

	id, ok, err = store.Load("org_2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, second, id)

	require.NoError(t, store.Delete("org_1"))
	require.NoError(t, store.Delete("org_1"))

	_, ok, err = store.Load("org_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileTokenStore_PathIsScopedToDir(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(dir)

	require.NoError(t, store.Save("../escape", uuid.New()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "..%2Fescape.json", entries[0].Name())
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "org_1.json"), []byte("{"), 0o600))

	_, _, err := NewFileTokenStore(dir).Load("org_1")
	assert.Error(t, err)
}
