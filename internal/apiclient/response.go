package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	jsonKeyMessage          = "message"
	errorMessageEmptyBody   = "apiclient: empty response body"
	errorMessageDecodeBody  = "apiclient: decode response body"
	statusErrorMessageShape = "backend status %d: %s"
)

// ErrEmptyBody indicates a response carried no data to decode.
var ErrEmptyBody = errors.New(errorMessageEmptyBody)

// Response is the outcome of any request that reached the backend.
type Response struct {
	Status int
	Data   json.RawMessage
	Header http.Header
}

// OK reports whether the status is in the 2xx range.
func (response Response) OK() bool {
	return response.Status >= http.StatusOK && response.Status < http.StatusMultipleChoices
}

// Decode unmarshals the response data into target.
func (response Response) Decode(target any) error {
	if len(response.Data) == 0 {
		return ErrEmptyBody
	}
	if decodeErr := json.Unmarshal(response.Data, target); decodeErr != nil {
		return fmt.Errorf("%s: %w", errorMessageDecodeBody, decodeErr)
	}
	return nil
}

// Message returns data.message when the backend supplied one.
func (response Response) Message() string {
	if len(response.Data) == 0 || response.Data[0] != '{' {
		return ""
	}
	var envelope map[string]any
	if decodeErr := json.Unmarshal(response.Data, &envelope); decodeErr != nil {
		return ""
	}
	message, _ := envelope[jsonKeyMessage].(string)
	return strings.TrimSpace(message)
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Status   int
	Message  string
	Response Response
}

func (statusError *StatusError) Error() string {
	message := statusError.Message
	if message == "" {
		message = fmt.Sprintf(defaultStatusMessage, statusError.Status)
	}
	return fmt.Sprintf(statusErrorMessageShape, statusError.Status, message)
}

// Unauthorized reports whether the backend answered 401.
func (statusError *StatusError) Unauthorized() bool {
	return statusError.Status == http.StatusUnauthorized
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return statusError, true
	}
	return nil, false
}

// IsUnauthorized reports whether err carries a 401 backend response.
func IsUnauthorized(err error) bool {
	statusError, ok := AsStatusError(err)
	return ok && statusError.Unauthorized()
}

// UserMessage renders err for display, preferring the backend's data.message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if statusError, ok := AsStatusError(err); ok {
		if statusError.Message != "" {
			return statusError.Message
		}
		return fmt.Sprintf(defaultStatusMessage, statusError.Status)
	}
	if fallback != "" {
		return fallback
	}
	return err.Error()
}
