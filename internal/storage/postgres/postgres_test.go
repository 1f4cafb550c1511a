package postgres

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/storage/storagetest"
)

// These tests need a throwaway database: set POSTGRES_TEST_DSN to run
// them. The students table is truncated before every subtest.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("postgres tests are disabled; set POSTGRES_TEST_DSN to enable")
	}

	storagetest.Run(t, func(t *testing.T) storage.Storage {
		t.Helper()
		db, err := Open(dsn)
		require.NoError(t, err)
		_, err = db.Db.Exec("TRUNCATE students")
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return db
	})
}
