package uvcs

import (
	"bytes"
	"fmt"
	"mime/multipart"

	"github.com/ericfisherdev/uvcsweb/internal/domain/model"
)

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	file  model.FileUpload
}

// form accumulates multipart fields in insertion order.
type form struct {
	fields []formField
	files  []formFile
}

func newForm() *form {
	return &form{}
}

func (f *form) set(name, value string) *form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// setOptional adds the field only when value is non-empty.
func (f *form) setOptional(name, value string) *form {
	if value == "" {
		return f
	}
	return f.set(name, value)
}

func (f *form) addFiles(field string, files []model.FileUpload) *form {
	for _, file := range files {
		f.files = append(f.files, formFile{field: field, file: file})
	}
	return f
}

// encode writes the form as multipart/form-data and returns the body with
// its content type, which carries the boundary.
func (f *form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", field.name, err)
		}
	}

	for _, ff := range f.files {
		part, err := w.CreateFormFile(ff.field, ff.file.Path)
		if err != nil {
			return nil, "", fmt.Errorf("create file part %s: %w", ff.file.Path, err)
		}
		if _, err := part.Write(ff.file.Content); err != nil {
			return nil, "", fmt.Errorf("write file part %s: %w", ff.file.Path, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
