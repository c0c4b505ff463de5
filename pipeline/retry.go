package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/s0up4200/go-replicate/apierror"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 64 << 10

type attemptKey struct{}

// attemptCounter records how many attempts a single Do made and whether the
// last attempt was judged retryable. retryablehttp runs attempts and retry
// checks sequentially on the caller's goroutine.
type attemptCounter struct {
	n        int
	retrying bool
}

func countAttempt(_ retryablehttp.Logger, req *http.Request, retry int) {
	if c, ok := req.Context().Value(attemptKey{}).(*attemptCounter); ok {
		c.n = retry + 1
	}
}

// checkRetry decides whether an attempt is retried. The decision is stored on
// the request's attemptCounter: when retryablehttp gives up after a positive
// decision, the retry budget is what ran out.
func checkRetry(cfg RetryConfig) retryablehttp.CheckRetry {
	decide := shouldRetry(cfg)
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		retry, checkErr := decide(ctx, resp, err)
		if c, ok := ctx.Value(attemptKey{}).(*attemptCounter); ok {
			c.retrying = retry && checkErr == nil
		}
		return retry, checkErr
	}
}

func shouldRetry(cfg RetryConfig) retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}

		if err != nil {
			if isTimeout(err) && !cfg.RetryTimeouts {
				return false, nil
			}
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}

		return cfg.retryableStatus(resp.StatusCode), nil
	}
}

// exhaustedError carries the last failure out of retryablehttp so Do can
// attach the operation name.
type exhaustedError struct {
	status   int
	body     []byte
	cause    error
	attempts int
}

func (e *exhaustedError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return http.StatusText(e.status)
}

func (e *exhaustedError) Unwrap() error { return e.cause }

func giveUp(resp *http.Response, err error, numTries int) (*http.Response, error) {
	out := &exhaustedError{cause: err, attempts: numTries}
	if resp != nil {
		defer resp.Body.Close()
		out.status = resp.StatusCode
		out.body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}
	return nil, out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify maps a transport-level failure to an API error.
func classify(op string, err error, attempts int) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var out *apierror.Error
	switch {
	case err == nil:
		out = apierror.New(apierror.KindTransport, op, "request failed", nil)
	case isTimeout(err):
		out = apierror.New(apierror.KindTimeout, op, "request timed out", err)
	case errors.Is(err, context.Canceled):
		out = apierror.New(apierror.KindTransport, op, "request canceled", err)
	default:
		out = apierror.New(apierror.KindTransport, op, "request failed", err)
	}
	out.Attempts = attempts
	return out
}
