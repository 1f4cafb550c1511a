package student

import (
	"errors"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-manager/internal/types"
)

// imageFields are the multipart field names an image may arrive under.
// "profilePic" and "profile" are what the existing web forms send on
// create and update respectively.
var imageFields = []string{"image", "profilePic", "profile"}

// multipartMemory is how much of a multipart body is held in memory
// before the rest spills to temp files.
const multipartMemory = 8 << 20

// formOverhead is allowed on top of the image limit for the text fields
// and multipart framing.
const formOverhead = 1 << 20

// validate is shared by all handlers; *validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their form name ("email"), not the Go name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("age", func(fl validator.FieldLevel) bool {
		age, err := strconv.Atoi(fl.Field().String())
		return err == nil && age >= 1 && age <= 150
	})

	return v
}

// upload is an optional image attached to a form.
type upload struct {
	file     multipart.File
	filename string
}

func (u *upload) Close() error {
	if u == nil {
		return nil
	}
	return u.file.Close()
}

// readForm parses a create/update request body into a validated form and
// an optional image. Both multipart and url-encoded bodies are accepted;
// only multipart can carry an image.
func readForm(w http.ResponseWriter, r *http.Request, maxImage int64) (types.StudentForm, *upload, error) {
	if maxImage > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxImage+formOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return types.StudentForm{}, nil, err
		}
		if err := r.ParseForm(); err != nil {
			return types.StudentForm{}, nil, err
		}
	}

	form := types.StudentForm{
		Name:   strings.TrimSpace(r.FormValue("name")),
		Email:  strings.TrimSpace(r.FormValue("email")),
		Age:    strings.TrimSpace(r.FormValue("age")),
		Gender: strings.TrimSpace(r.FormValue("gender")),
	}
	if err := validate.Struct(form); err != nil {
		return form, nil, err
	}

	img, err := imageFile(r)
	if err != nil {
		return form, nil, err
	}
	return form, img, nil
}

func imageFile(r *http.Request) (*upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	for _, field := range imageFields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &upload{file: file, filename: header.Filename}, nil
	}
	return nil, nil
}

// toStudent converts a validated form. Age has already passed the "age"
// rule, so the conversion cannot fail.
func toStudent(form types.StudentForm) types.Student {
	age, _ := strconv.Atoi(form.Age)
	return types.Student{
		Name:   form.Name,
		Email:  form.Email,
		Age:    age,
		Gender: form.Gender,
	}
}
