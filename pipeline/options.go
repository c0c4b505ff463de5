package pipeline

import (
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Option configures a Pipeline.
type Option func(*pipelineOptions)

// pipelineOptions holds configuration options for the Pipeline.
type pipelineOptions struct {
	logger    zerolog.Logger
	transport http.RoundTripper
	limiter   *rate.Limiter
	header    http.Header
}

func defaultOptions() *pipelineOptions {
	return &pipelineOptions{
		logger: zerolog.Nop(),
		header: make(http.Header),
	}
}

// WithLogger sets the logger used for attempt and retry logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = logger
	}
}

// WithTransport replaces the pooled transport. The connect timeout is only
// enforced by the default transport; a custom one must bound dialing itself.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *pipelineOptions) {
		o.transport = rt
	}
}

// WithRateLimit caps dispatches per second. rps <= 0 removes the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *pipelineOptions) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *pipelineOptions) {
		o.header.Set(key, value)
	}
}
