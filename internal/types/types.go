// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// Genders accepted for Student.Gender.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Student is a stored student record.
//
// ProfileImage is the stored reference (file name in the uploads
// directory) of the student's picture, or nil when none is attached.
// It encodes to JSON null in that case.
type Student struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Age          int     `json:"age"`
	Gender       string  `json:"gender"`
	ProfileImage *string `json:"profileImage"`
}

// StudentForm is the typed request body for create and update. It is
// decoded from multipart form values and checked with
// go-playground/validator before anything reaches the store.
//
// Age stays a string here so that "abc" is reported as a field error
// instead of failing the decode.
type StudentForm struct {
	Name   string `form:"name"   validate:"required,notblank"`
	Email  string `form:"email"  validate:"required,email"`
	Age    string `form:"age"    validate:"required,number,age"`
	Gender string `form:"gender" validate:"required,oneof=Male Female"`
}
