package attachment

import (
	"fmt"
	"time"
)

// DefaultSweepGrace is how old an unreferenced file must be before a
// sweep removes it.
const DefaultSweepGrace = time.Hour

// ReferenceLister reports every image reference held by a record.
// storage.Storage satisfies it.
type ReferenceLister interface {
	ProfileImages() ([]string, error)
}

// SweepOrphans removes files under m that no record in refs points at.
// The reference list is read before the directory, and the grace period
// covers files written after that read.
func SweepOrphans(refs ReferenceLister, m *Manager, olderThan time.Duration, dryRun bool) ([]string, error) {
	referenced, err := refs.ProfileImages()
	if err != nil {
		return nil, fmt.Errorf("SweepOrphans: list references: %w", err)
	}
	return m.Sweep(referenced, olderThan, dryRun)
}
