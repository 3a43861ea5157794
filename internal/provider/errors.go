package provider

import (
	"errors"
	"fmt"

	"modelgate/internal/media"
	"modelgate/internal/models"
)

// Error kinds. Concrete errors returned by adapters unwrap to one of these.
var (
	ErrInvalidModel              = errors.New("invalid model")
	ErrUnsupportedFileType       = media.ErrUnsupportedFileType
	ErrFileTooLarge              = media.ErrFileTooLarge
	ErrMissingAudioFile          = errors.New("missing audio file")
	ErrUseStreamingMethod        = errors.New("use streaming method")
	ErrCapabilityNotSupported    = errors.New("capability not supported")
	ErrUnsupportedReasoningModel = errors.New("unsupported reasoning model")
	ErrUnsupportedRole           = errors.New("unsupported role")
	ErrVendorCallFailed          = errors.New("vendor call failed")
	ErrTranscriptionFailed       = errors.New("transcription failed")
	ErrInvalidRequest            = models.ErrInvalidRequest
	ErrProviderNotFound          = errors.New("provider not found")
)

// Error is a kinded failure whose message is safe to surface to API callers.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// VendorError wraps a failed vendor call with the stable "<Vendor> API error" prefix.
func VendorError(vendor string, cause error) error {
	return &Error{
		Kind:    ErrVendorCallFailed,
		Message: fmt.Sprintf("%s API error: %s", vendor, causeMessage(cause)),
		Cause:   cause,
	}
}

// TranscriptionError wraps any failure on the transcription path.
func TranscriptionError(cause error) error {
	return &Error{
		Kind:    ErrTranscriptionFailed,
		Message: "Audio transcription failed: " + causeMessage(cause),
		Cause:   cause,
	}
}

// NotFound reports an unknown provider name.
func NotFound(name string) error {
	return &Error{Kind: ErrProviderNotFound, Message: "Provider not found", Cause: fmt.Errorf("no provider registered as %q", name)}
}

func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
