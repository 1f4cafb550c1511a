package open

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-manager/internal/config"
)

func TestStorage(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "students.db"),
	}}

	store, err := Storage(cfg)
	require.NoError(t, err)
	defer store.Close()

	all, err := store.GetStudents()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStorage_UnknownDriver(t *testing.T) {
	store, err := Storage(&config.Config{Storage: config.Storage{Driver: "mysql"}})
	assert.Error(t, err)
	assert.Nil(t, store)
}
