package replicate

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/go-replicate/fileinput"
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	baseURL           string
	logger            zerolog.Logger
	transport         http.RoundTripper
	userAgent         string
	rateLimit         float64
	rateBurst         int
	maxDataURLSize    int64
	pollInterval      time.Duration
	uploadConcurrency int
}

func defaultClientOptions() *clientOptions {
	return &clientOptions{
		baseURL:           DefaultBaseURL,
		logger:            zerolog.Nop(),
		userAgent:         UserAgent,
		maxDataURLSize:    fileinput.DefaultMaxDataURLSize,
		pollInterval:      DefaultPollInterval,
		uploadConcurrency: DefaultUploadConcurrency,
	}
}

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithRateLimit limits outgoing requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *clientOptions) {
		o.rateLimit = rps
		o.rateBurst = burst
	}
}

// WithMaxDataURLSize changes the largest file embedded as a data URL.
// A value <= 0 removes the limit.
func WithMaxDataURLSize(n int64) Option {
	return func(o *clientOptions) {
		o.maxDataURLSize = n
	}
}

// WithPollInterval sets the default interval used while waiting on predictions.
func WithPollInterval(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithUploadConcurrency bounds parallel file uploads for a single prediction.
func WithUploadConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.uploadConcurrency = n
		}
	}
}
