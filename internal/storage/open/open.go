// Package open picks the storage backend named in the config.
package open

import (
	"fmt"

	"github.com/aanand-mishra/student-manager/internal/config"
	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/storage/postgres"
	"github.com/aanand-mishra/student-manager/internal/storage/sqlite"
)

// Storage opens the backend for cfg.Storage.Driver.
func Storage(cfg *config.Config) (storage.Storage, error) {
	// Each case returns explicitly so a failed open yields a nil
	// interface, not one holding a nil pointer.
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := postgres.New(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
