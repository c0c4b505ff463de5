package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/go-replicate/apierror"
	"github.com/s0up4200/go-replicate/pipeline"
)

const (
	// Version is the library version reported in the User-Agent.
	Version = "0.1.0"
	// UserAgent is sent with every request unless overridden.
	UserAgent = "go-replicate/" + Version

	// DefaultBaseURL is the public Replicate API.
	DefaultBaseURL = "https://api.replicate.com"
	// TokenEnv is read by NewFromEnv.
	TokenEnv = "REPLICATE_API_TOKEN"

	// DefaultPollInterval is the wait between status checks in Wait.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultUploadConcurrency bounds parallel uploads per prediction.
	DefaultUploadConcurrency = 4
)

// Client represents a Replicate API client. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	pipe    *pipeline.Pipeline
	logger  zerolog.Logger

	userAgent         string
	maxDataURLSize    int64
	pollInterval      time.Duration
	uploadConcurrency int

	files       *FilesService
	predictions *PredictionsService
}

// New creates a client with the default retry and timeout settings.
func New(token string, opts ...Option) (*Client, error) {
	return NewWithHTTPConfig(token, pipeline.DefaultConfig(), opts...)
}

// NewWithRetryConfig creates a client with a custom retry policy and the
// default timeouts.
func NewWithRetryConfig(token string, retry RetryConfig, opts ...Option) (*Client, error) {
	cfg := pipeline.DefaultConfig()
	cfg.Retry = retry
	return NewWithHTTPConfig(token, cfg, opts...)
}

// NewFromEnv creates a client using the token in REPLICATE_API_TOKEN.
func NewFromEnv(opts ...Option) (*Client, error) {
	return New(os.Getenv(TokenEnv), opts...)
}

// NewWithHTTPConfig creates a client with explicit retry and timeout settings.
func NewWithHTTPConfig(token string, cfg HTTPConfig, opts ...Option) (*Client, error) {
	const op = "new client"

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierror.New(apierror.KindConfiguration, op, "", ErrMissingToken)
	}

	o := defaultClientOptions()
	for _, opt := range opts {
		opt(o)
	}

	base, err := url.Parse(strings.TrimSuffix(o.baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apierror.Configuration(op, fmt.Sprintf("invalid base URL %q", o.baseURL))
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(o.logger),
		pipeline.WithHeader("Authorization", "Bearer "+token),
		pipeline.WithHeader("User-Agent", o.userAgent),
		pipeline.WithHeader("Accept", "application/json"),
		pipeline.WithRateLimit(o.rateLimit, o.rateBurst),
	}
	if o.transport != nil {
		pipeOpts = append(pipeOpts, pipeline.WithTransport(o.transport))
	}

	pipe, err := pipeline.New(cfg, pipeOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:           base,
		pipe:              pipe,
		logger:            o.logger,
		userAgent:         o.userAgent,
		maxDataURLSize:    o.maxDataURLSize,
		pollInterval:      o.pollInterval,
		uploadConcurrency: o.uploadConcurrency,
	}
	c.files = &FilesService{client: c}
	c.predictions = &PredictionsService{client: c}
	return c, nil
}

// Files returns the Files API.
func (c *Client) Files() *FilesService {
	return c.files
}

// Predictions returns the Predictions API.
func (c *Client) Predictions() *PredictionsService {
	return c.predictions
}

// CreatePrediction starts a builder for a prediction on model.
func (c *Client) CreatePrediction(model string) *PredictionBuilder {
	return newPredictionBuilder(c, model)
}

// Run is shorthand for CreatePrediction(model).Inputs(input).SendAndWait(ctx).
// It blocks until the prediction reaches a terminal status or ctx is done,
// polling at the client's poll interval with no timeout of its own. Use the
// builder directly for file inputs, webhooks or a wait timeout.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	return c.CreatePrediction(model).Inputs(input).SendAndWait(ctx)
}

// HTTPConfig returns the active retry and timeout settings.
func (c *Client) HTTPConfig() HTTPConfig {
	return c.pipe.Config()
}

// RetryConfig returns the active retry policy.
func (c *Client) RetryConfig() RetryConfig {
	return c.pipe.Config().Retry
}

// TimeoutConfig returns the active timeouts.
func (c *Client) TimeoutConfig() TimeoutConfig {
	return c.pipe.Config().Timeout
}

// ConfigureRetries changes the retry count and delay bounds, keeping the
// current multiplier. Invalid values leave the policy unchanged.
func (c *Client) ConfigureRetries(maxRetries int, minDelay, maxDelay time.Duration) error {
	retry := c.RetryConfig()
	return c.ConfigureRetriesAdvanced(maxRetries, minDelay, maxDelay, retry.BaseMultiplier)
}

// ConfigureRetriesAdvanced is ConfigureRetries with an explicit multiplier.
func (c *Client) ConfigureRetriesAdvanced(maxRetries int, minDelay, maxDelay time.Duration, base uint) error {
	retry := c.RetryConfig()
	retry.MaxRetries = maxRetries
	retry.MinDelay = minDelay
	retry.MaxDelay = maxDelay
	retry.BaseMultiplier = base
	return c.pipe.ConfigureRetries(retry)
}

// ConfigureTimeouts sets the connect and request timeouts. Zero disables one.
func (c *Client) ConfigureTimeouts(connect, request time.Duration) error {
	return c.pipe.ConfigureTimeouts(TimeoutConfig{Connect: connect, Request: request})
}

// resolve turns an API path or an absolute link returned by the API into a
// URL on the configured host.
func (c *Client) resolve(op, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", apierror.New(apierror.KindInvalidInput, op, "invalid URL", err)
	}
	if u.IsAbs() && (u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host) {
		return "", apierror.New(apierror.KindInvalidInput, op, ref, ErrForeignLink)
	}
	if u.IsAbs() {
		return u.String(), nil
	}

	out := *c.baseURL
	out.Path = strings.TrimSuffix(c.baseURL.Path, "/") + u.Path
	out.RawPath = ""
	out.RawQuery = u.RawQuery
	return out.String(), nil
}

// do sends a request through the pipeline.
func (c *Client) do(ctx context.Context, method, ref string, body []byte, header http.Header) (*pipeline.Response, error) {
	target, err := c.resolve(method+" "+ref, ref)
	if err != nil {
		return nil, err
	}
	return c.pipe.Do(ctx, &pipeline.Request{
		Method: method,
		URL:    target,
		Header: header,
		Body:   body,
	})
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out
// (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, ref string, in, out any) error {
	op := method + " " + ref

	var (
		body   []byte
		header http.Header
	)
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return apierror.Serialization(op, err)
		}
		header = http.Header{"Content-Type": {"application/json"}}
	}

	resp, err := c.do(ctx, method, ref, body, header)
	if err != nil {
		return err
	}
	return decode(op, resp, out)
}

func decode(op string, resp *pipeline.Response, out any) error {
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		e := apierror.Serialization(op, err)
		e.StatusCode = resp.StatusCode
		e.Detail = string(resp.Body)
		return e
	}
	return nil
}
