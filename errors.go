package lookanalyst

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned when an input URL is empty, malformed, or not allowed
var ErrInvalidURL = errors.New("invalid URL")

// ErrPayloadTooLarge is wrapped by the InvalidContentError of an image over the size limit
var ErrPayloadTooLarge = errors.New("payload too large")

// NetworkError reports a failed fetch: timeout, connection failure, or a
// terminal status outside 2xx-3xx. StatusCode is zero when no response arrived.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExtractionError is returned when no strategy located an image in a page
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return "extraction failed: " + e.Reason
}

// InvalidContentError is returned when a fetched or uploaded payload is not an acceptable image
type InvalidContentError struct {
	URL         string
	ContentType string
	Reason      string
	Err         error // optional sentinel, e.g. ErrPayloadTooLarge
}

func (e *InvalidContentError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("invalid content (%q): %s", e.ContentType, e.Reason)
	}
	return fmt.Sprintf("invalid content from %s (%q): %s", e.URL, e.ContentType, e.Reason)
}

func (e *InvalidContentError) Unwrap() error { return e.Err }

// ProxyError is returned when the proxy fallback also failed.
// Both the direct failure and the proxy failure stay reachable through errors.Is/As.
type ProxyError struct {
	URL      string
	ProxyURL string
	Cause    error // direct fetch failure that triggered the fallback
	ProxyErr error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy fallback for %s failed: %v (direct: %v)", e.URL, e.ProxyErr, e.Cause)
}

func (e *ProxyError) Unwrap() []error { return []error{e.Cause, e.ProxyErr} }
