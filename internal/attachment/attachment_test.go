package attachment

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newManager(t *testing.T, maxBytes int64) *Manager {
	t.Helper()
	m, err := New(filepath.Join(t.TempDir(), "uploads"), maxBytes)
	require.NoError(t, err)
	return m
}

func files(t *testing.T, m *Manager) []string {
	t.Helper()
	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStore(t *testing.T) {
	m := newManager(t, 0)
	data := pngBytes(t)

	ref, err := m.Store(bytes.NewReader(data), "webcam-image.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".png"))
	assert.True(t, m.Exists(ref))

	stored, err := os.ReadFile(filepath.Join(m.Dir(), ref))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	again, err := m.Store(bytes.NewReader(data), "webcam-image.png")
	require.NoError(t, err)
	assert.NotEqual(t, ref, again, "every store gets a fresh name")
	assert.ElementsMatch(t, []string{ref, again}, files(t, m))
}

func TestStore_Rejects(t *testing.T) {
	m := newManager(t, 64)

	_, err := m.Store(strings.NewReader("just some text"), "notes.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = m.Store(bytes.NewReader(nil), "empty.png")
	assert.ErrorIs(t, err, ErrEmpty)

	big := append(pngBytes(t), make([]byte, 128)...)
	_, err = m.Store(bytes.NewReader(big), "big.png")
	assert.ErrorIs(t, err, ErrTooLarge)

	assert.Empty(t, files(t, m), "rejected uploads leave nothing behind")
}

func TestReplace(t *testing.T) {
	m := newManager(t, 0)

	old, err := m.Store(bytes.NewReader(pngBytes(t)), "a.png")
	require.NoError(t, err)

	var committed string
	ref, err := m.Replace(bytes.NewReader(pngBytes(t)), "b.png", func(ref string) (*string, error) {
		// The new file is in place before the record is told about it,
		// and the old one is still there.
		assert.True(t, m.Exists(ref))
		assert.True(t, m.Exists(old))
		committed = ref
		return &old, nil
	})
	require.NoError(t, err)
	assert.Equal(t, committed, ref)

	assert.False(t, m.Exists(old))
	assert.True(t, m.Exists(ref))
	assert.Equal(t, []string{ref}, files(t, m))
}

func TestReplace_CommitFails(t *testing.T) {
	m := newManager(t, 0)

	old, err := m.Store(bytes.NewReader(pngBytes(t)), "a.png")
	require.NoError(t, err)

	boom := errors.New("row update failed")
	_, err = m.Replace(bytes.NewReader(pngBytes(t)), "b.png", func(string) (*string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	assert.True(t, m.Exists(old))
	assert.Equal(t, []string{old}, files(t, m), "the uncommitted file is discarded")
}

func TestReplace_StoreFailsSkipsCommit(t *testing.T) {
	m := newManager(t, 0)

	called := false
	_, err := m.Replace(strings.NewReader("not an image"), "b.txt", func(string) (*string, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, called)
}

func TestReplace_NoPrevious(t *testing.T) {
	m := newManager(t, 0)
	ref, err := m.Replace(bytes.NewReader(pngBytes(t)), "a.png", func(string) (*string, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, m.Exists(ref))
}

func TestDiscard(t *testing.T) {
	m := newManager(t, 0)

	ref, err := m.Store(bytes.NewReader(pngBytes(t)), "a.png")
	require.NoError(t, err)

	require.NoError(t, m.Discard(&ref))
	assert.False(t, m.Exists(ref))

	// Already gone, nil and empty are all no-ops.
	assert.NoError(t, m.Discard(&ref))
	assert.NoError(t, m.Discard(nil))
	empty := ""
	assert.NoError(t, m.Discard(&empty))
}

func TestDiscard_StaysInsideDir(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	m, err := New(filepath.Join(root, "uploads"), 0)
	require.NoError(t, err)

	escape := "../secret.txt"
	require.NoError(t, m.Discard(&escape))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
	assert.False(t, m.Exists(escape))
}

func TestSweep(t *testing.T) {
	m := newManager(t, 0)

	kept, err := m.Store(bytes.NewReader(pngBytes(t)), "kept.png")
	require.NoError(t, err)
	orphan, err := m.Store(bytes.NewReader(pngBytes(t)), "orphan.png")
	require.NoError(t, err)
	fresh, err := m.Store(bytes.NewReader(pngBytes(t)), "fresh.png")
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	for _, ref := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(m.Dir(), ref), old, old))
	}

	removed, err := m.Sweep([]string{kept}, time.Hour, true)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, removed)
	assert.True(t, m.Exists(orphan), "dry run removes nothing")

	removed, err = m.Sweep([]string{kept}, time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, removed)

	assert.True(t, m.Exists(kept))
	assert.False(t, m.Exists(orphan))
	assert.True(t, m.Exists(fresh), "files inside the grace period are kept")
}

func TestSweep_SkipsHiddenFiles(t *testing.T) {
	m := newManager(t, 0)

	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{".gitkeep", tmpPrefix + "abandoned"} {
		path := filepath.Join(m.Dir(), name)
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		require.NoError(t, os.Chtimes(path, old, old))
	}

	removed, err := m.Sweep(nil, time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, []string{tmpPrefix + "abandoned"}, removed)
	assert.Equal(t, []string{".gitkeep"}, files(t, m))
}

func TestStore_AcceptsTIFF(t *testing.T) {
	m := newManager(t, 0)

	tiff := append([]byte("II*\x00\x08\x00\x00\x00"), make([]byte, 64)...)
	ref, err := m.Store(bytes.NewReader(tiff), "scan.tiff")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(ref, ".tif"))
}
