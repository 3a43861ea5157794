// Package media validates and encodes caller attachments before they are
// embedded into vendor payloads.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"modelgate/internal/models"
)

// MaxFileBytes is the largest attachment, image or audio, accepted.
const MaxFileBytes = 25 * 1024 * 1024

var (
	// ErrUnsupportedFileType indicates an attachment with a rejected extension or MIME type.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge indicates an attachment above the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// AudioExtensions lists the accepted audio file extensions.
var AudioExtensions = []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm"}

// ImagePolicy is the allow-list an adapter applies to image attachments.
type ImagePolicy struct {
	Extensions []string
	MIMETypes  []string
	Label      string
}

// StrictImages accepts PNG, JPEG (".jpeg" only) and WEBP.
var StrictImages = ImagePolicy{
	Extensions: []string{".png", ".jpeg", ".webp"},
	MIMETypes:  []string{"image/png", "image/jpeg", "image/webp"},
	Label:      "PNG, JPEG, and WEBP",
}

// ClaudeImages extends StrictImages with ".jpg" and GIF.
var ClaudeImages = ImagePolicy{
	Extensions: []string{".png", ".jpeg", ".jpg", ".webp", ".gif"},
	MIMETypes:  []string{"image/png", "image/jpeg", "image/webp", "image/gif"},
	Label:      "PNG, JPEG, WEBP, and GIF",
}

// Error is a validation failure. Its message is safe to show to API callers.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

// ValidateImage rejects files whose extension or declared MIME type falls
// outside the policy, and files above MaxFileBytes.
func ValidateImage(file models.File, policy ImagePolicy) error {
	msg := fmt.Sprintf("Only supports image files (%s)", policy.Label)
	ext := strings.ToLower(filepath.Ext(file.Name()))
	if ext == "" || !slices.Contains(policy.Extensions, ext) {
		return &Error{kind: ErrUnsupportedFileType, msg: msg}
	}
	if !slices.Contains(policy.MIMETypes, normalizeMIME(file.MIMEType())) {
		return &Error{kind: ErrUnsupportedFileType, msg: msg}
	}
	if file.Size() > MaxFileBytes {
		return &Error{kind: ErrFileTooLarge, msg: "Image file size exceeds 25MB limit"}
	}
	return nil
}

// ValidateAudio rejects files with an unknown audio extension or above MaxFileBytes.
func ValidateAudio(file models.File) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name())), ".")
	if ext == "" || !slices.Contains(AudioExtensions, ext) {
		return &Error{
			kind: ErrUnsupportedFileType,
			msg:  "Invalid audio format. Supported formats: " + strings.Join(AudioExtensions, ", "),
		}
	}
	if file.Size() > MaxFileBytes {
		return &Error{kind: ErrFileTooLarge, msg: "Audio file size exceeds 25MB limit"}
	}
	return nil
}

// EncodeBase64 reads the whole file and returns its standard base64 encoding.
func EncodeBase64(file models.File) (string, error) {
	data, err := file.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read attachment %q: %w", file.Name(), err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI encodes the file as a base64 data URI using its declared MIME type.
func DataURI(file models.File) (string, error) {
	encoded, err := EncodeBase64(file)
	if err != nil {
		return "", err
	}
	return "data:" + normalizeMIME(file.MIMEType()) + ";base64," + encoded, nil
}

// normalizeMIME drops parameters such as "; charset=utf-8".
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// MIMEType returns the file's MIME type without parameters.
func MIMEType(file models.File) string {
	return normalizeMIME(file.MIMEType())
}
