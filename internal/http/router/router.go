// Package router wires handlers to routes.
//
// Route table:
//
//	GET    /                      → welcome message
//	GET    /students              → list all students
//	GET    /students/search?name= → search students by name
//	GET    /students/{id}         → get one student by ID
//	POST   /students              → create a student (multipart)
//	PUT    /students/{id}         → update a student (multipart)
//	DELETE /students/{id}         → delete a student and its image
//	GET    /uploads/{filename}    → stored profile image
package router

import (
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-manager/internal/attachment"
	"github.com/aanand-mishra/student-manager/internal/http/handlers/student"
	"github.com/aanand-mishra/student-manager/internal/http/handlers/uploads"
	"github.com/aanand-mishra/student-manager/internal/http/middleware"
	"github.com/aanand-mishra/student-manager/internal/storage"
)

// New returns the application's root handler. "/students/search" is more
// specific than "/students/{id}", so ServeMux never routes it to GetByID.
func New(log *slog.Logger, storage storage.Storage, files *attachment.Manager, allowedOrigin string) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", student.Welcome())
	router.HandleFunc("GET /students", student.GetList(storage))
	router.HandleFunc("GET /students/search", student.Search(storage))
	router.HandleFunc("GET /students/{id}", student.GetByID(storage))
	router.HandleFunc("POST /students", student.New(storage, files))
	router.HandleFunc("PUT /students/{id}", student.Update(storage, files))
	router.HandleFunc("DELETE /students/{id}", student.Delete(storage, files))
	router.HandleFunc("GET /uploads/{filename}", uploads.Serve(files))

	var handler http.Handler = router
	handler = middleware.CORS(allowedOrigin)(handler)
	handler = middleware.Logger(log)(handler)
	return handler
}
