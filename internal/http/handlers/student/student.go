// Package student contains the HTTP handlers for the Student resource.
//
// Every exported function here is a factory: it receives the handler's
// dependencies once, at route registration, and returns the
// http.HandlerFunc the router calls on each request.
//
//	router.HandleFunc("POST /students", student.New(storage, files))
//
// Images travel next to the form fields in a multipart body and are kept
// in step with the record by the attachment manager: a new file is
// written before the record points at it, and an old file is removed
// only after no record points at it any more.
package student

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-manager/internal/attachment"
	"github.com/aanand-mishra/student-manager/internal/storage"
	"github.com/aanand-mishra/student-manager/internal/utils/response"
)

// New handles POST /students.
//
// Request body (multipart/form-data):
//
//	name, email, age, gender, and optionally an image file
//
// Success response (200 OK):
//
//	{ "message": "Student added successfully", "id": 1 }
//
// Error responses:
//
//	400 Bad Request       — failed validation or an unsupported image
//	413 Payload Too Large — image over the configured limit
//	500 Internal          — database or filesystem error
func New(storage storage.Storage, files *attachment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		form, img, err := readForm(w, r, files.MaxBytes())
		if err != nil {
			writeFormError(w, err)
			return
		}
		defer img.Close()

		student := toStudent(form)

		// The file goes to disk first so the row never points at
		// something that is not there yet.
		if img != nil {
			ref, err := files.Store(img.file, img.filename)
			if err != nil {
				writeAttachmentError(w, err)
				return
			}
			student.ProfileImage = &ref
		}

		lastID, err := storage.CreateStudent(student)
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			if derr := files.Discard(student.ProfileImage); derr != nil {
				slog.Warn("cannot discard unused image", slog.String("error", derr.Error()))
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("student created", slog.Int64("id", lastID))
		response.WriteJSON(w, http.StatusOK, response.Message{
			Message: "Student added successfully",
			ID:      lastID,
		})
	}
}

// GetByID handles GET /students/{id}.
//
//	400 Bad Request — id is not an integer
//	404 Not Found   — no such student
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.Int64("id", id))

		student, err := storage.GetStudentByID(id)
		if err != nil {
			writeStorageError(w, "error getting student", id, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /students and returns every student as a JSON
// array ([] when there are none).
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := storage.GetStudents()
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// Search handles GET /students/search?name=. A missing or empty name
// returns every student.
func Search(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		slog.Info("searching students", slog.String("name", name))

		students, err := storage.SearchStudents(name)
		if err != nil {
			slog.Error("error searching students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// Update handles PUT /students/{id}. All scalar fields are replaced;
// the image is replaced only when the request carries one.
//
// Success response (200 OK):
//
//	{ "message": "Student updated successfully" }
//
// Error responses:
//
//	400 Bad Request       — invalid id, failed validation, unsupported image
//	404 Not Found         — no such student
//	413 Payload Too Large — image over the configured limit
//	500 Internal          — database or filesystem error
func Update(storage storage.Storage, files *attachment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.Int64("id", id))

		form, img, err := readForm(w, r, files.MaxBytes())
		if err != nil {
			writeFormError(w, err)
			return
		}
		defer img.Close()

		// Fail fast on a missing id before writing any file.
		if _, err := storage.GetStudentByID(id); err != nil {
			writeStorageError(w, "error updating student", id, err)
			return
		}

		student := toStudent(form)

		if img == nil {
			_, err = storage.UpdateStudentByID(id, student)
		} else {
			_, err = files.Replace(img.file, img.filename, func(ref string) (*string, error) {
				student.ProfileImage = &ref
				return storage.UpdateStudentByID(id, student)
			})
		}
		if err != nil {
			if isAttachmentError(err) {
				writeAttachmentError(w, err)
				return
			}
			writeStorageError(w, "error updating student", id, err)
			return
		}

		slog.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message{Message: "Student updated successfully"})
	}
}

// Delete handles DELETE /students/{id}. The row goes first and its image
// second, so a failed file removal never leaves a record pointing at a
// missing file.
//
//	400 Bad Request — invalid id
//	404 Not Found   — no such student
//	500 Internal    — database error
func Delete(storage storage.Storage, files *attachment.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.Int64("id", id))

		previous, err := storage.DeleteStudentByID(id)
		if err != nil {
			writeStorageError(w, "error deleting student", id, err)
			return
		}

		// The record is gone either way; a file left behind is picked
		// up by the attachments sweep.
		if err := files.Discard(previous); err != nil {
			slog.Warn("cannot discard image of deleted student",
				slog.Int64("id", id),
				slog.String("error", err.Error()))
		}

		slog.Info("student deleted", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message{Message: "Student deleted successfully"})
	}
}

// Welcome handles GET /.
func Welcome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, "Welcome to the Student Management API")
	}
}

// pathID parses the {id} path segment, writing a 400 when it is not an
// integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id: must be an integer")))
		return 0, false
	}
	return id, true
}

func writeStorageError(w http.ResponseWriter, msg string, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(fmt.Errorf("no student found with id %d", id)))
		return
	}
	slog.Error(msg, slog.Int64("id", id), slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}

func writeFormError(w http.ResponseWriter, err error) {
	var validateErrs validator.ValidationErrors
	if errors.As(err, &validateErrs) {
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		return
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.WriteJSON(w, http.StatusRequestEntityTooLarge,
			response.GeneralError(fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)))
		return
	}

	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
}

func isAttachmentError(err error) bool {
	return errors.Is(err, attachment.ErrUnsupportedType) ||
		errors.Is(err, attachment.ErrEmpty) ||
		errors.Is(err, attachment.ErrTooLarge)
}

func writeAttachmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attachment.ErrTooLarge):
		response.WriteJSON(w, http.StatusRequestEntityTooLarge, response.GeneralError(err))
	case isAttachmentError(err):
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
	default:
		slog.Error("error storing image", slog.String("error", err.Error()))
		response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	}
}
