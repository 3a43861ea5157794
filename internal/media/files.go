package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"modelgate/internal/models"
)

// Open reads a file from disk into an in-memory attachment. The MIME type is
// derived from the extension, falling back to content sniffing.
func Open(path string) (*models.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return models.NewBlob(filepath.Base(path), mimeType, data), nil
}

// upload adapts a multipart file header to models.File.
type upload struct {
	header *multipart.FileHeader
}

// FromMultipart exposes an uploaded form file as an attachment. The content
// is only read when ReadAll is called.
func FromMultipart(header *multipart.FileHeader) models.File {
	return &upload{header: header}
}

func (u *upload) Name() string     { return u.header.Filename }
func (u *upload) MIMEType() string { return u.header.Header.Get("Content-Type") }
func (u *upload) Size() int64      { return u.header.Size }

func (u *upload) ReadAll() ([]byte, error) {
	f, err := u.header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", u.header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", u.header.Filename, err)
	}
	if len(data) > MaxFileBytes {
		return nil, &Error{kind: ErrFileTooLarge, msg: fmt.Sprintf("File %q exceeds 25MB limit", u.header.Filename)}
	}
	return data, nil
}

// FormField is a plain multipart field.
type FormField struct {
	Name  string
	Value string
}

// MultipartBody encodes file under fileField followed by fields, in order.
// Fields with an empty value are skipped.
func MultipartBody(fileField string, file models.File, fields ...FormField) (io.Reader, string, error) {
	data, err := file.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("read attachment %q: %w", file.Name(), err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	mimeType := MIMEType(file)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, file.Name()))
	header.Set("Content-Type", mimeType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	for _, field := range fields {
		if field.Value == "" {
			continue
		}
		if err := w.WriteField(field.Name, field.Value); err != nil {
			return nil, "", fmt.Errorf("write %s field: %w", field.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
