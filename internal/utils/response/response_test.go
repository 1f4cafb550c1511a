package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusNotFound, GeneralError(errors.New("student not found"))))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"error","error":"student not found"}`, rec.Body.String())
}

func TestValidationError(t *testing.T) {
	type form struct {
		Name   string `json:"name" validate:"required"`
		Email  string `json:"email" validate:"required,email"`
		Gender string `json:"gender" validate:"required,oneof=Male Female"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("json") })

	err := v.Struct(form{Email: "not-an-email", Gender: "Other"})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))

	resp := ValidationError(verrs)
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, map[string]string{
		"name":   "Name is required",
		"email":  "Email is invalid",
		"gender": "Gender must be one of: Male, Female",
	}, resp.Fields)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"fields"`)
}
