// Package storage defines the Storage interface, the contract any
// database backend must satisfy to work with this application.
//
// Handlers depend only on this interface, so the SQLite and Postgres
// backends are interchangeable and tests can run against an in-memory
// SQLite database.
package storage

import (
	"errors"

	"github.com/aanand-mishra/student-manager/internal/types"
)

// ErrNotFound is returned when no student has the requested id.
// Callers check it with errors.Is.
var ErrNotFound = errors.New("student not found")

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a new student record and returns the
	// auto-generated primary-key ID. student.ID is ignored.
	CreateStudent(student types.Student) (int64, error)

	// GetStudentByID fetches a single student by their primary key.
	// Returns ErrNotFound if absent.
	GetStudentByID(id int64) (types.Student, error)

	// GetStudents returns every student in the database.
	// Returns an empty slice (not nil) if there are no students.
	GetStudents() ([]types.Student, error)

	// SearchStudents returns students whose name contains name as a
	// substring. An empty name matches every student.
	SearchStudents(name string) ([]types.Student, error)

	// UpdateStudentByID replaces the scalar fields of an existing student.
	// The profile image is replaced only when student.ProfileImage is
	// non-nil; otherwise the stored one is kept. Returns the image
	// reference held before the update, or ErrNotFound.
	UpdateStudentByID(id int64, student types.Student) (*string, error)

	// DeleteStudentByID removes a student record permanently and returns
	// its former image reference, or ErrNotFound.
	DeleteStudentByID(id int64) (*string, error)

	// ProfileImages lists every image reference currently held by a record.
	ProfileImages() ([]string, error)

	// Close releases the underlying connection pool.
	Close() error
}
