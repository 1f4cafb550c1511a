// Package postgres implements storage.Storage on PostgreSQL through
// lib/pq. It is selected with storage.driver: "postgres" and reads the
// host, port, user, password and database name from the config.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/student-manager/internal/config"
	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/types"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
)

// Postgres is the PostgreSQL implementation of storage.Storage.
type Postgres struct {
	Db *sql.DB
}

var _ storage.Storage = (*Postgres)(nil)

const studentColumns = "id, name, email, age, gender, profile_image"

// New connects using cfg.Storage.DSN() and creates the students table
// if needed. Unlike sql.Open, it pings so a bad DSN fails at startup.
func New(cfg *config.Config) (*Postgres, error) {
	return Open(cfg.Storage.DSN())
}

// Open is New for a raw connection string.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	// BIGSERIAL never hands out the same id twice.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id            BIGSERIAL PRIMARY KEY,
			name          TEXT    NOT NULL,
			email         TEXT    NOT NULL,
			age           INTEGER NOT NULL,
			gender        TEXT    NOT NULL,
			profile_image TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return &Postgres{Db: db}, nil
}

func (p *Postgres) Close() error {
	return p.Db.Close()
}

// CreateStudent inserts a row. lib/pq has no LastInsertId, so the id
// comes back through RETURNING.
func (p *Postgres) CreateStudent(student types.Student) (int64, error) {
	var id int64
	err := p.Db.QueryRow(
		"INSERT INTO students (name, email, age, gender, profile_image) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		student.Name, student.Email, student.Age, student.Gender, student.ProfileImage,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateStudent: insert: %w", err)
	}
	return id, nil
}

func (p *Postgres) GetStudentByID(id int64) (types.Student, error) {
	var student types.Student
	err := p.Db.QueryRow(
		"SELECT "+studentColumns+" FROM students WHERE id = $1", id,
	).Scan(&student.ID, &student.Name, &student.Email, &student.Age, &student.Gender, &student.ProfileImage)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}
	return student, nil
}

func (p *Postgres) GetStudents() ([]types.Student, error) {
	return p.query("GetStudents", "SELECT "+studentColumns+" FROM students ORDER BY id")
}

// SearchStudents matches name as a case-sensitive substring.
func (p *Postgres) SearchStudents(name string) ([]types.Student, error) {
	return p.query("SearchStudents",
		"SELECT "+studentColumns+" FROM students WHERE name LIKE '%' || $1::text || '%' ESCAPE '\\' ORDER BY id",
		storage.EscapeLike(name),
	)
}

// UpdateStudentByID locks the row with FOR UPDATE while reading the
// previous image so a concurrent update cannot slip in between.
func (p *Postgres) UpdateStudentByID(id int64, student types.Student) (*string, error) {
	tx, err := p.Db.Begin()
	if err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	previous, err := lockProfileImage(tx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	_, err = tx.Exec(
		"UPDATE students SET name = $1, email = $2, age = $3, gender = $4, profile_image = COALESCE($5::text, profile_image) WHERE id = $6",
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

func (p *Postgres) DeleteStudentByID(id int64) (*string, error) {
	var previous *string
	err := p.Db.QueryRow("DELETE FROM students WHERE id = $1 RETURNING profile_image", id).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}
	return previous, nil
}

func (p *Postgres) ProfileImages() ([]string, error) {
	rows, err := p.Db.Query("SELECT profile_image FROM students WHERE profile_image IS NOT NULL")
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

func (p *Postgres) query(op, query string, args ...any) ([]types.Student, error) {
	rows, err := p.Db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.Email, &student.Age, &student.Gender, &student.ProfileImage); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration: %w", op, err)
	}
	return students, nil
}

func lockProfileImage(tx *sql.Tx, id int64) (*string, error) {
	var ref *string
	err := tx.QueryRow("SELECT profile_image FROM students WHERE id = $1 FOR UPDATE", id).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no student found with id %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select profile image: %w", err)
	}
	return ref, nil
}
