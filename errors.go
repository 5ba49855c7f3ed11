package cfddns

import (
	"fmt"
	"strings"

	"github.com/cloudflare/cloudflare-go"
)

// TransportError is returned when a request could not be sent or no response was received.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: request failed: %s", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is returned when a response arrived but could not be understood.
// StatusCode is the HTTP status of that response.
type ProtocolError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: unexpected response (HTTP %d): %s", e.Op, e.URL, e.StatusCode, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// NotFoundError is returned when Cloudflare has no zone with the given name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("zone %q not found", e.Name)
}

// APIError is returned when a lookup was answered with success=false.
// Refused updates are reported through UpdateResult instead.
type APIError struct {
	Op         string
	StatusCode int
	Errors     []cloudflare.ResponseInfo
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: cloudflare returned HTTP %d: %s", e.Op, e.StatusCode, formatResponseErrors(e.Errors))
}

func formatResponseErrors(errs []cloudflare.ResponseInfo) string {
	if len(errs) == 0 {
		return "no error details"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(msgs, "; ")
}
