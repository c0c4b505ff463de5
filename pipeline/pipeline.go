package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/s0up4200/go-replicate/apierror"
)

// Request is one outbound call. Body is buffered so every attempt replays it.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// NoDefaultHeaders skips the headers set with WithHeader. Used for hosts
	// that must not receive the API credentials.
	NoDefaultHeaders bool
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// Pipeline dispatches requests with retry, backoff and timeouts.
//
// The active Config and the HTTP client built from it form an immutable
// snapshot. Reconfiguring swaps in a new snapshot; requests already in
// flight finish with the one they started with. When reconfiguration races
// with a request that has not started yet, whichever snapshot is loaded
// first is used.
//
// Retries are applied to every method, POST included. A response lost after
// the API acted on a POST can therefore produce a duplicate prediction or
// upload; no idempotency key is sent.
type Pipeline struct {
	snap atomic.Pointer[snapshot]

	logger    zerolog.Logger
	transport http.RoundTripper
	limiter   *rate.Limiter
	header    http.Header
}

type snapshot struct {
	config Config
	client *retryablehttp.Client
}

// New validates cfg and builds a Pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		logger:    o.logger,
		transport: o.transport,
		limiter:   o.limiter,
		header:    o.header,
	}
	p.install(cfg)
	return p, nil
}

// Config returns the configuration applied to new requests.
func (p *Pipeline) Config() Config {
	return p.snap.Load().config
}

// Reconfigure validates cfg and applies it to subsequent requests.
// On error the current configuration is left untouched.
func (p *Pipeline) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	p.install(cfg)
	return nil
}

// ConfigureRetries replaces the retry policy, keeping the timeouts.
func (p *Pipeline) ConfigureRetries(r RetryConfig) error {
	cfg := p.Config()
	cfg.Retry = r
	return p.Reconfigure(cfg)
}

// ConfigureTimeouts replaces the timeouts, keeping the retry policy.
// Passing zero for both removes every deadline; a request to an
// unresponsive server can then hang until ctx is canceled.
func (p *Pipeline) ConfigureTimeouts(t TimeoutConfig) error {
	cfg := p.Config()
	cfg.Timeout = t
	return p.Reconfigure(cfg)
}

func (p *Pipeline) install(cfg Config) {
	if cfg.Timeout.Disabled() {
		p.logger.Warn().Msg("All HTTP timeouts disabled; requests may hang indefinitely")
	}

	// RetryableStatus is shared with the caller's slice otherwise.
	cfg.Retry.RetryableStatus = append([]int(nil), cfg.Retry.RetryableStatus...)

	old := p.snap.Swap(&snapshot{config: cfg, client: p.buildClient(cfg)})
	if old != nil {
		old.client.HTTPClient.CloseIdleConnections()
	}

	p.logger.Debug().
		Int("max_retries", cfg.Retry.MaxRetries).
		Dur("min_delay", cfg.Retry.MinDelay).
		Dur("max_delay", cfg.Retry.MaxDelay).
		Uint("base_multiplier", cfg.Retry.BaseMultiplier).
		Dur("connect_timeout", cfg.Timeout.Connect).
		Dur("request_timeout", cfg.Timeout.Request).
		Msg("HTTP pipeline configured")
}

func (p *Pipeline) buildClient(cfg Config) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: p.roundTripper(cfg.Timeout),
		Timeout:   cfg.Timeout.Request,
	}
	rc.RetryMax = cfg.Retry.MaxRetries
	rc.RetryWaitMin = cfg.Retry.MinDelay
	rc.RetryWaitMax = cfg.Retry.MaxDelay
	rc.Backoff = cfg.Retry.backoff
	rc.CheckRetry = checkRetry(cfg.Retry)
	rc.ErrorHandler = giveUp
	rc.RequestLogHook = countAttempt
	rc.Logger = leveledLogger{logger: p.logger}
	return rc
}

func (p *Pipeline) roundTripper(t TimeoutConfig) http.RoundTripper {
	if p.transport != nil {
		return p.transport
	}
	tr := cleanhttp.DefaultPooledTransport()
	tr.DialContext = (&net.Dialer{
		Timeout:   t.Connect,
		KeepAlive: 30 * time.Second,
	}).DialContext
	tr.TLSHandshakeTimeout = t.Connect
	return tr
}

// Do sends req, retrying per the active RetryConfig. Non-2xx responses and
// exhausted retries are returned as *apierror.Error.
func (p *Pipeline) Do(ctx context.Context, req *Request) (*Response, error) {
	op := operation(req)
	snap := p.snap.Load()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, classify(op, err, 0)
		}
	}

	counter := &attemptCounter{}
	ctx = context.WithValue(ctx, attemptKey{}, counter)

	var body interface{}
	if len(req.Body) > 0 {
		body = req.Body
	}
	rreq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, apierror.New(apierror.KindInvalidInput, op, "cannot build request", err)
	}
	if !req.NoDefaultHeaders {
		for k, v := range p.header {
			rreq.Header[k] = append([]string(nil), v...)
		}
	}
	for k, v := range req.Header {
		rreq.Header[k] = append([]string(nil), v...)
	}

	start := time.Now()
	resp, err := snap.client.Do(rreq)
	if err != nil {
		failure := p.failure(op, err, counter)
		p.logger.Debug().Err(failure).Str("op", op).Int("attempts", failure.Attempts).Msg("Request failed")
		return nil, failure
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(op, err, counter.n)
	}

	elapsed := time.Since(start)
	p.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Int("attempts", counter.n).
		Dur("elapsed", elapsed).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierror.FromResponse(op, resp.StatusCode, data)
		apiErr.Attempts = counter.n
		return nil, apiErr
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Stats: Stats{
			ElapsedTime: elapsed,
			Attempts:    counter.n,
		},
	}, nil
}

// failure converts an error returned by retryablehttp. GaveUp is set only when
// the last attempt was judged retryable, which means the budget ran out.
func (p *Pipeline) failure(op string, err error, counter *attemptCounter) *apierror.Error {
	var exhausted *exhaustedError
	if !errors.As(err, &exhausted) {
		return classify(op, err, counter.n)
	}

	var apiErr *apierror.Error
	if exhausted.status != 0 {
		apiErr = apierror.FromResponse(op, exhausted.status, exhausted.body)
		apiErr.Attempts = exhausted.attempts
	} else {
		apiErr = classify(op, exhausted.cause, exhausted.attempts)
	}
	apiErr.GaveUp = counter.retrying
	return apiErr
}

func operation(req *Request) string {
	if u, err := url.Parse(req.URL); err == nil && u.Path != "" {
		return req.Method + " " + u.Path
	}
	return req.Method + " " + req.URL
}
