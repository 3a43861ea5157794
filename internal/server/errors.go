package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"modelgate/internal/provider"
)

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func badRequest(message string) requestError {
	return requestError{Status: http.StatusBadRequest, Message: message}
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, errorBody{Error: reqErr.Message})
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, errorBody{Error: fmt.Sprint(he.Message)})
		return
	}

	slog.Error("unhandled error", "error", err)
	_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// badRequestKinds are failures caused by the request itself.
var badRequestKinds = []error{
	provider.ErrInvalidRequest,
	provider.ErrInvalidModel,
	provider.ErrUnsupportedFileType,
	provider.ErrFileTooLarge,
	provider.ErrMissingAudioFile,
	provider.ErrUseStreamingMethod,
	provider.ErrCapabilityNotSupported,
	provider.ErrUnsupportedReasoningModel,
	provider.ErrUnsupportedRole,
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	for _, kind := range badRequestKinds {
		if errors.Is(err, kind) {
			return badRequest(err.Error())
		}
	}
	if errors.Is(err, provider.ErrProviderNotFound) {
		return requestError{Status: http.StatusNotFound, Message: err.Error()}
	}
	if errors.Is(err, provider.ErrVendorCallFailed) || errors.Is(err, provider.ErrTranscriptionFailed) {
		return requestError{Status: http.StatusBadGateway, Message: err.Error()}
	}

	return requestError{Status: http.StatusInternalServerError, Message: err.Error()}
}
