package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/folio/internal/shared"
)

var errNoToken = errors.New("login response has no token")

// ErrorKind classifies an [APIError].
type ErrorKind int

const (
	// KindTransport means the request never completed (DNS, refused connection, timeout, cancellation).
	KindTransport ErrorKind = iota
	// KindStatus means the server answered with a failure status, in the HTTP status line or the body.
	KindStatus
	// KindValidation means the request was rejected locally before anything was sent.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// APIError is the single error type returned by every [Client] operation.
//
// Message is always human readable and safe to show to the user. errors.Is matches the shared
// sentinel for the kind ([shared.ErrServiceUnavailable], [shared.ErrAPIRequest], [shared.ErrInvalidInput])
// as well as anything wrapped in Err.
type APIError struct {
	Kind    ErrorKind
	Op      string
	Status  int
	Message string
	Fields  map[string]string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		errs = append(errs, shared.ErrNotAuthenticated)
	}
	if e.Status == http.StatusNotFound {
		if nf := errNotFoundFor(e.Op); nf != nil {
			errs = append(errs, nf)
		}
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *APIError) sentinel() error {
	switch e.Kind {
	case KindTransport:
		return shared.ErrServiceUnavailable
	case KindValidation:
		return shared.ErrInvalidInput
	default:
		return shared.ErrAPIRequest
	}
}

func errNotFoundFor(op string) error {
	switch {
	case strings.Contains(op, "episode"):
		return shared.ErrEpisodeNotFound
	case strings.Contains(op, "book"):
		return shared.ErrBookNotFound
	default:
		return nil
	}
}

func transportError(op string, err error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Op:      op,
		Message: fmt.Sprintf("%s: could not reach server", op),
		Err:     err,
	}
}

func validationError(op, message string, fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Op:      op,
		Message: fmt.Sprintf("%s: %s", op, message),
		Fields:  fields,
	}
}

func malformedError(op string, err error) *APIError {
	return &APIError{
		Kind:    KindStatus,
		Op:      op,
		Message: fmt.Sprintf("%s: unexpected response from server", op),
		Err:     fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err),
	}
}

// errorBody covers the failure shapes the backend is known to send.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	if b.Error != "" {
		return b.Error
	}
	var s string
	if len(b.Detail) > 0 && json.Unmarshal(b.Detail, &s) == nil {
		return s
	}
	return ""
}

func statusError(op string, status int, body []byte) *APIError {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)

	msg := strings.TrimSpace(parsed.text())
	if msg == "" {
		msg = fmt.Sprintf("%s failed (status %d)", op, status)
	}
	return &APIError{Kind: KindStatus, Op: op, Status: status, Message: msg}
}

// ErrorMessage returns the user-facing message for err.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
