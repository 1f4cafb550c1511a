// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite stores everything in a single file on disk, so the default
// configuration needs no database server at all.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/student-manager/internal/config"
	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the SQLite implementation of storage.Storage.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

const studentColumns = "id, name, email, age, gender, profile_image"

// New opens the SQLite database at cfg.Storage.Path, creates the students
// table if it does not already exist, and returns a ready-to-use *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// SQLite allows one writer at a time, and every connection to
	// ":memory:" would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	// AUTOINCREMENT keeps ids from being reused after a delete.
	// There is deliberately no UNIQUE constraint on email.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT    NOT NULL,
			email         TEXT    NOT NULL,
			age           INTEGER NOT NULL,
			gender        TEXT    NOT NULL,
			profile_image TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// CreateStudent inserts a new row into the students table.
// A nil ProfileImage is stored as NULL.
func (s *SQLite) CreateStudent(student types.Student) (int64, error) {
	stmt, err := s.Db.Prepare(
		"INSERT INTO students (name, email, age, gender, profile_image) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.Exec(student.Name, student.Email, student.Age, student.Gender, student.ProfileImage)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	return lastID, nil
}

// GetStudentByID fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudentByID(id int64) (types.Student, error) {
	stmt, err := s.Db.Prepare(
		"SELECT " + studentColumns + " FROM students WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRow(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// GetStudents returns all student rows as a slice.
func (s *SQLite) GetStudents() ([]types.Student, error) {
	rows, err := s.Db.Query("SELECT " + studentColumns + " FROM students ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}

	students, err := collectStudents(rows)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: %w", err)
	}
	return students, nil
}

// SearchStudents returns the students whose name contains name.
// Wildcards in name are escaped, so "50%" matches the literal text.
// SQLite's LIKE is case-insensitive for ASCII letters.
func (s *SQLite) SearchStudents(name string) ([]types.Student, error) {
	rows, err := s.Db.Query(
		"SELECT "+studentColumns+" FROM students WHERE name LIKE '%' || ? || '%' ESCAPE '\\' ORDER BY id",
		storage.EscapeLike(name),
	)
	if err != nil {
		return nil, fmt.Errorf("SearchStudents: query: %w", err)
	}

	students, err := collectStudents(rows)
	if err != nil {
		return nil, fmt.Errorf("SearchStudents: %w", err)
	}
	return students, nil
}

// UpdateStudentByID replaces a student's data with the provided values.
// Reading the previous image and writing the new row happen in one
// transaction, so the returned reference is exactly what was overwritten.
func (s *SQLite) UpdateStudentByID(id int64, student types.Student) (*string, error) {
	tx, err := s.Db.Begin()
	if err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	previous, err := profileImageOf(tx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	// COALESCE keeps the stored image when no new one is supplied.
	_, err = tx.Exec(
		"UPDATE students SET name = ?, email = ?, age = ?, gender = ?, profile_image = COALESCE(?, profile_image) WHERE id = ?",
		student.Name, student.Email, student.Age, student.Gender, student.ProfileImage, id,
	)
	if err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: commit: %w", err)
	}
	return previous, nil
}

// DeleteStudentByID removes a student row by primary key and returns
// the image reference it held.
func (s *SQLite) DeleteStudentByID(id int64) (*string, error) {
	tx, err := s.Db.Begin()
	if err != nil {
		return nil, fmt.Errorf("DeleteStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	previous, err := profileImageOf(tx, id)
	if err != nil {
		return nil, fmt.Errorf("DeleteStudentByID: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM students WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("DeleteStudentByID: commit: %w", err)
	}
	return previous, nil
}

// ProfileImages lists every non-null image reference.
func (s *SQLite) ProfileImages() ([]string, error) {
	rows, err := s.Db.Query("SELECT profile_image FROM students WHERE profile_image IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("ProfileImages: query: %w", err)
	}
	defer rows.Close()

	refs := make([]string, 0)
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("ProfileImages: scan row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ProfileImages: rows iteration: %w", err)
	}
	return refs, nil
}

func profileImageOf(tx *sql.Tx, id int64) (*string, error) {
	var ref *string
	err := tx.QueryRow("SELECT profile_image FROM students WHERE id = ?", id).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select profile image: %w", err)
	}
	return ref, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var student types.Student
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.Age,
		&student.Gender,
		&student.ProfileImage, // NULL scans to a nil *string
	)
	return student, err
}

func collectStudents(rows *sql.Rows) ([]types.Student, error) {
	defer rows.Close()

	// Non-nil so an empty table encodes as [] rather than null.
	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return students, nil
}
