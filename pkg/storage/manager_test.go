package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerWriteFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "output")
	m := NewManager(base)

	_, err := os.Stat(base)
	assert.True(t, os.IsNotExist(err), "base directory is created lazily")

	path, err := m.WriteFile("alice_comments.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "alice_comments.json"), path)
	assert.True(t, m.Exists("alice_comments.json"))
	assert.EqualValues(t, 1, m.Written())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestManagerSaveNested(t *testing.T) {
	m := NewManager(t.TempDir())

	path, err := m.Save(filepath.Join("Travel", "alice_1_1700000000.jpg"), strings.NewReader("jpeg"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, "alice_1_1700000000.jpg", entries[0].Name())
}

func TestManagerPath(t *testing.T) {
	m := NewManager("output")

	assert.Equal(t, filepath.Join("output", "a", "b.json"), m.Path("a", "b.json"))
	abs := filepath.Join(t.TempDir(), "x.json")
	assert.Equal(t, abs, m.Path(abs))
}

func TestEnsureDir(t *testing.T) {
	m := NewManager(t.TempDir())

	dir, err := m.EnsureDir("Highlights")
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveAtomicKeepsExistingFileOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alice_followers.json")
	require.NoError(t, WriteAtomic(path, []byte("old"), 0644))

	err := SaveAtomic(path, failingReader{}, 0644)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteAtomicPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, WriteAtomic(path, []byte("{}"), 0600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
