package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	base := filepath.Join(t.TempDir(), "exports")
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	path, err := store.Save("schedule_03-04-2024.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "schedule_03-04-2024.csv"), path)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	abs := filepath.Join(t.TempDir(), "nested", "week.pdf")
	path, err = store.Save(abs, []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestLocalStoragePrune(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	oldPath, err := store.Save("old.csv", []byte("x"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))
	_, err = store.Save("new.csv", []byte("y"))
	require.NoError(t, err)

	removed, err := store.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, removed)
	_, err = os.Stat(store.Path("new.csv"))
	assert.NoError(t, err)
}
