package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/s0up4200/go-replicate/apierror"
)

// Default retry and timeout values.
const (
	DefaultMaxRetries     = 3
	DefaultMinDelay       = 500 * time.Millisecond
	DefaultMaxDelay       = 30 * time.Second
	DefaultBaseMultiplier = 2

	DefaultConnectTimeout = 30 * time.Second
	DefaultRequestTimeout = 60 * time.Second
)

// RetryConfig controls how failed attempts are retried.
type RetryConfig struct {
	// MaxRetries is the number of attempts made after the first one.
	MaxRetries int `validate:"gte=0"`
	// MinDelay is the wait before the first retry.
	MinDelay time.Duration `validate:"gte=0"`
	// MaxDelay caps every wait.
	MaxDelay time.Duration `validate:"gtefield=MinDelay"`
	// BaseMultiplier grows the wait per attempt. 1 keeps it constant.
	BaseMultiplier uint `validate:"gte=1"`
	// RetryableStatus adds status codes to the default retryable set
	// (429 and every 5xx except 501).
	RetryableStatus []int `validate:"dive,gte=100,lte=599"`
	// RetryTimeouts makes timeouts retryable like transport errors.
	RetryTimeouts bool
}

// TimeoutConfig bounds each phase of a request. Zero disables a phase.
type TimeoutConfig struct {
	// Connect bounds dialing and TLS setup.
	Connect time.Duration `validate:"gte=0"`
	// Request bounds one attempt end to end, body included.
	Request time.Duration `validate:"gte=0"`
}

// Config aggregates retry and timeout settings.
type Config struct {
	Retry   RetryConfig
	Timeout TimeoutConfig
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     DefaultMaxRetries,
		MinDelay:       DefaultMinDelay,
		MaxDelay:       DefaultMaxDelay,
		BaseMultiplier: DefaultBaseMultiplier,
	}
}

// DefaultTimeoutConfig returns the default timeouts.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Connect: DefaultConnectTimeout,
		Request: DefaultRequestTimeout,
	}
}

// DefaultConfig returns the default retry and timeout settings.
func DefaultConfig() Config {
	return Config{
		Retry:   DefaultRetryConfig(),
		Timeout: DefaultTimeoutConfig(),
	}
}

// Disabled reports whether no deadline is enforced at all.
func (t TimeoutConfig) Disabled() bool {
	return t.Connect == 0 && t.Request == 0
}

// retryableStatus reports whether a response status should be retried.
func (r RetryConfig) retryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == 0 || (code >= 500 && code != http.StatusNotImplemented) {
		return true
	}
	return slices.Contains(r.RetryableStatus, code)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the invariants of c.
func (c Config) Validate() error {
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return c.Timeout.Validate()
}

// Validate checks MinDelay <= MaxDelay, BaseMultiplier >= 1 and non-negative values.
func (r RetryConfig) Validate() error {
	return validateStruct("retry", r)
}

// Validate checks that no timeout is negative.
func (t TimeoutConfig) Validate() error {
	return validateStruct("timeout", t)
}

func validateStruct(section string, v any) error {
	err := configValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierror.New(apierror.KindConfiguration, "configure "+section, "invalid configuration", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return apierror.New(apierror.KindConfiguration, "configure "+section, strings.Join(msgs, "; "), err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gtefield":
		return fmt.Sprintf("%s (%v) must not be less than %s", fe.Field(), fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
