package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_ReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("runs/a.json", []byte(`{"ok":true}`), 0o644))
	data, err := m.ReadFile("runs/./a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	data[0] = 'X'
	again, _ := m.ReadFile("runs/a.json")
	assert.Equal(t, byte('{'), again[0], "reads return a copy")

	_, err = m.ReadFile("missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, errors.Is(m.Rename("missing.json", "b.json"), fs.ErrNotExist))
}

func TestMemoryFileSystem_Dirs(t *testing.T) {
	m := NewMemoryFileSystem()

	require.NoError(t, m.MkdirAll("a/b/c", 0o755))
	assert.True(t, m.HasDir("a"))
	assert.True(t, m.HasDir("a/b/c"))

	require.NoError(t, m.WriteFile("a/b/c/f.txt", []byte("12345"), 0o600))
	assert.True(t, errors.Is(m.Remove("a/b/c"), fs.ErrExist), "non-empty directory")
	require.NoError(t, m.Remove("a/b/c/f.txt"))
	require.NoError(t, m.Remove("a/b/c"))
	assert.False(t, m.HasDir("a/b/c"))
	assert.True(t, errors.Is(m.Remove("a/b/c"), fs.ErrNotExist))
}

func TestWriteFileAtomic_Memory(t *testing.T) {
	m := NewMemoryFileSystem()

	require.NoError(t, WriteFileAtomic(m, "out/current_run.json", []byte("v1"), 0o644))
	require.NoError(t, WriteFileAtomic(m, "out/current_run.json", []byte("v2"), 0o644))

	data, err := m.ReadFile("out/current_run.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, []string{filepath.Clean("out/current_run.json")}, m.Files())
	assert.True(t, m.HasDir("out"))
}

func TestWriteFileAtomic_OS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.json")

	require.NoError(t, WriteFileAtomic(OSFileSystem{}, path, []byte("hello"), 0o644))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file renamed away")
}

func TestWriteRendered(t *testing.T) {
	t.Run("writes output", func(t *testing.T) {
		m := NewMemoryFileSystem()
		err := WriteRendered(m, "speed.html", func(w io.Writer) error {
			_, err := fmt.Fprint(w, "<html>run-1</html>")
			return err
		})
		require.NoError(t, err)
		data, err := m.ReadFile("speed.html")
		require.NoError(t, err)
		assert.Equal(t, "<html>run-1</html>", string(data))
	})

	t.Run("render error leaves nothing", func(t *testing.T) {
		m := NewMemoryFileSystem()
		boom := errors.New("boom")
		err := WriteRendered(m, "speed.html", func(w io.Writer) error {
			_, _ = fmt.Fprint(w, "partial")
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, m.Files())
	})
}
