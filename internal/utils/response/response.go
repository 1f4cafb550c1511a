// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses may return any JSON shape (a student, a list, a
// message). Error responses always use the Response envelope so API
// consumers know what to expect.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the standard envelope returned for error cases:
//
//	{ "status": "error", "error": "Name is required", "fields": { "name": "Name is required" } }
//
// Fields is only present for validation failures and maps each form
// field to its message, so a form can show the error next to the input.
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Message is the body of successful mutations.
type Message struct {
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

const StatusError = "error"

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
// Headers must be set before WriteHeader; after it they are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError converts validator field errors into a Response with
// one message per field. Field names come from the validator's tag name
// func, which the handlers point at the form tag.
func ValidationError(errs validator.ValidationErrors) Response {
	fields := make(map[string]string, len(errs))
	messages := make([]string, 0, len(errs))

	for _, e := range errs {
		msg := fieldMessage(e)
		// Keep the first failure per field.
		if _, seen := fields[e.Field()]; seen {
			continue
		}
		fields[e.Field()] = msg
		messages = append(messages, msg)
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(messages, ", "),
		Fields: fields,
	}
}

func fieldMessage(e validator.FieldError) string {
	label := strings.ToUpper(e.Field()[:1]) + e.Field()[1:]

	switch e.ActualTag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", label)
	case "email":
		return fmt.Sprintf("%s is invalid", label)
	case "number", "age":
		return fmt.Sprintf("Valid %s is required", strings.ToLower(label))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}
