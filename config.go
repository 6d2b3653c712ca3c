package lookanalyst

import (
	"net/http"
	"time"
)

// Config contains pipeline configuration
type Config struct {
	PageTimeout     time.Duration // Timeout for fetching a pin page
	ImageTimeout    time.Duration // Timeout for downloading a user-supplied image URL
	PinImageTimeout time.Duration // Timeout for downloading the image resolved from a pin page
	AnalysisTimeout time.Duration // Timeout for the model call
	MaxRedirects    int
	MaxPageBytes    int64 // Maximum page size read for extraction
	MaxImageBytes   int64 // Maximum image size staged from a URL
	MaxUploadBytes  int64 // Maximum uploaded file size
	Policies        Policies

	// Transport carries outbound page and image requests; nil uses http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		PageTimeout:     30 * time.Second,
		ImageTimeout:    45 * time.Second,
		PinImageTimeout: 30 * time.Second,
		AnalysisTimeout: 60 * time.Second,
		MaxRedirects:    5,
		MaxPageBytes:    5 * 1024 * 1024,  // 5MB of HTML is far beyond any pin page
		MaxImageBytes:   10 * 1024 * 1024, // 10MB max image size
		MaxUploadBytes:  8 * 1024 * 1024,  // 8MB max upload
		Policies:        DefaultPolicies(),
	}
}
