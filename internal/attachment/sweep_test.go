package attachment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefs struct {
	refs []string
	err  error
}

func (f fakeRefs) ProfileImages() ([]string, error) { return f.refs, f.err }

func TestSweepOrphans(t *testing.T) {
	m := newManager(t, 0)

	kept, err := m.Store(bytes.NewReader(pngBytes(t)), "kept.png")
	require.NoError(t, err)
	orphan, err := m.Store(bytes.NewReader(pngBytes(t)), "orphan.png")
	require.NoError(t, err)

	old := time.Now().Add(-2 * DefaultSweepGrace)
	for _, ref := range []string{kept, orphan} {
		require.NoError(t, os.Chtimes(filepath.Join(m.Dir(), ref), old, old))
	}

	removed, err := SweepOrphans(fakeRefs{refs: []string{kept}}, m, DefaultSweepGrace, false)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, removed)
	assert.True(t, m.Exists(kept))
}

func TestSweepOrphans_ListFails(t *testing.T) {
	m := newManager(t, 0)
	ref, err := m.Store(bytes.NewReader(pngBytes(t)), "a.png")
	require.NoError(t, err)

	_, err = SweepOrphans(fakeRefs{err: errors.New("db down")}, m, 0, false)
	assert.Error(t, err)
	assert.True(t, m.Exists(ref), "nothing is removed without the reference list")
}
