package media

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modelgate/internal/models"
)

type sizedFile struct {
	name string
	size int64
}

func (f sizedFile) Name() string             { return f.name }
func (f sizedFile) MIMEType() string         { return "audio/mpeg" }
func (f sizedFile) Size() int64              { return f.size }
func (f sizedFile) ReadAll() ([]byte, error) { return nil, nil }

func TestValidateImage(t *testing.T) {
	tests := []struct {
		name    string
		file    models.File
		policy  ImagePolicy
		wantErr bool
	}{
		{name: "png", file: models.NewBlob("a.png", "image/png", nil), policy: StrictImages},
		{name: "jpeg", file: models.NewBlob("a.JPEG", "image/jpeg", nil), policy: StrictImages},
		{name: "webp with params", file: models.NewBlob("a.webp", "image/webp; q=1", nil), policy: StrictImages},
		{name: "text file", file: models.NewBlob("test.txt", "text/plain", nil), policy: StrictImages, wantErr: true},
		{name: "gif strict", file: models.NewBlob("test.gif", "image/gif", nil), policy: StrictImages, wantErr: true},
		{name: "jpg strict", file: models.NewBlob("a.jpg", "image/jpeg", nil), policy: StrictImages, wantErr: true},
		{name: "mislabelled mime", file: models.NewBlob("a.png", "text/plain", nil), policy: StrictImages, wantErr: true},
		{name: "no extension", file: models.NewBlob("image", "image/png", nil), policy: StrictImages, wantErr: true},
		{name: "gif claude", file: models.NewBlob("test.gif", "image/gif", nil), policy: ClaudeImages},
		{name: "jpg claude", file: models.NewBlob("a.jpg", "image/jpeg", nil), policy: ClaudeImages},
		{name: "text claude", file: models.NewBlob("test.txt", "text/plain", nil), policy: ClaudeImages, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImage(tt.file, tt.policy)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrUnsupportedFileType) {
				t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
			}
			if !strings.Contains(err.Error(), "Only supports image files") {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestValidateAudio(t *testing.T) {
	for _, ext := range AudioExtensions {
		if err := ValidateAudio(sizedFile{name: "clip." + ext, size: 10}); err != nil {
			t.Errorf("%s should be accepted: %v", ext, err)
		}
	}

	err := ValidateAudio(sizedFile{name: "test.txt", size: 10})
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid audio format") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	err = ValidateAudio(sizedFile{name: "long.mp3", size: MaxFileBytes + 1})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	if err := ValidateAudio(sizedFile{name: "edge.wav", size: MaxFileBytes}); err != nil {
		t.Fatalf("exactly 25MiB should be accepted: %v", err)
	}
}

func TestDataURI(t *testing.T) {
	uri, err := DataURI(models.NewBlob("a.png", "image/png", []byte("hi")))
	if err != nil {
		t.Fatalf("DataURI: %v", err)
	}
	if uri != "data:image/png;base64,aGk=" {
		t.Fatalf("unexpected data uri %q", uri)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	blob, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if blob.Name() != "photo.png" || blob.MIMEType() != "image/png" {
		t.Fatalf("unexpected blob %q %q", blob.Name(), blob.MIMEType())
	}
}

func TestFromMultipart(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("input_file", "clip.mp3")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("audio-bytes"))
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}

	file := FromMultipart(req.MultipartForm.File["input_file"][0])
	if file.Name() != "clip.mp3" {
		t.Fatalf("unexpected name %q", file.Name())
	}
	data, err := file.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
	if err := ValidateAudio(file); err != nil {
		t.Fatalf("ValidateAudio: %v", err)
	}
}

type sizedImage struct{ sizedFile }

func (sizedImage) MIMEType() string { return "image/png" }

func TestValidateImageSize(t *testing.T) {
	err := ValidateImage(sizedImage{sizedFile{name: "big.png", size: MaxFileBytes + 1}}, StrictImages)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if err.Error() != "Image file size exceeds 25MB limit" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if err := ValidateImage(sizedImage{sizedFile{name: "edge.png", size: MaxFileBytes}}, ClaudeImages); err != nil {
		t.Fatalf("image at the limit rejected: %v", err)
	}
}

func TestFromMultipartOverLimit(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("input_file", "big.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(bytes.Repeat([]byte{0x89}, MaxFileBytes+1024))
	writer.Close()

	req, _ := http.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { req.MultipartForm.RemoveAll() })

	file := FromMultipart(req.MultipartForm.File["input_file"][0])
	if file.Size() <= MaxFileBytes {
		t.Fatalf("unexpected declared size %d", file.Size())
	}

	data, err := file.ReadAll()
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if data != nil {
		t.Fatalf("expected no data, got %d bytes", len(data))
	}

	if _, err := DataURI(file); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("DataURI should surface the size error, got %v", err)
	}
}
