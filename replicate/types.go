package replicate

import (
	"time"

	"github.com/s0up4200/go-replicate/pipeline"
)

// Retry and timeout settings are defined by the pipeline package.
type (
	RetryConfig   = pipeline.RetryConfig
	TimeoutConfig = pipeline.TimeoutConfig
	HTTPConfig    = pipeline.Config
)

// File is a file stored with the Files API.
type File struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	ETag        string            `json:"etag"`
	Checksums   map[string]string `json:"checksums,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	URLs        map[string]string `json:"urls,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

// GetURL returns the URL models use to read the file.
func (f File) GetURL() string {
	return f.URLs["get"]
}

// PredictionStatus represents the lifecycle state of a prediction
type PredictionStatus string

const (
	StatusStarting   PredictionStatus = "starting"
	StatusProcessing PredictionStatus = "processing"
	StatusSucceeded  PredictionStatus = "succeeded"
	StatusFailed     PredictionStatus = "failed"
	StatusCanceled   PredictionStatus = "canceled"
)

// IsTerminal reports whether the prediction will not change again.
func (s PredictionStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// IsRunning reports whether the prediction is queued or executing.
func (s PredictionStatus) IsRunning() bool {
	return s == StatusStarting || s == StatusProcessing
}

// PredictionURLs are the API links returned with a prediction.
type PredictionURLs struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel"`
	Stream string `json:"stream,omitempty"`
}

// Prediction is a single run of a model.
type Prediction struct {
	ID          string           `json:"id"`
	Model       string           `json:"model"`
	Version     string           `json:"version"`
	Status      PredictionStatus `json:"status"`
	Input       map[string]any   `json:"input,omitempty"`
	Output      any              `json:"output,omitempty"`
	Logs        string           `json:"logs,omitempty"`
	Error       string           `json:"error,omitempty"`
	Metrics     map[string]any   `json:"metrics,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	URLs        PredictionURLs   `json:"urls"`
}

// Succeeded reports whether the prediction finished without error.
func (p *Prediction) Succeeded() bool {
	return p.Status == StatusSucceeded
}

// CreatePredictionRequest is the body of a create call.
//
// Model is "owner/name", "owner/name:version" or a bare version ID. It
// decides the endpoint and is not sent as a field. When Model is empty,
// Version must be set.
type CreatePredictionRequest struct {
	Model               string         `json:"-"`
	Version             string         `json:"version,omitempty"`
	Input               map[string]any `json:"input"`
	Webhook             string         `json:"webhook,omitempty"`
	WebhookEventsFilter []string       `json:"webhook_events_filter,omitempty"`
	Stream              bool           `json:"stream,omitempty"`
}

// Webhook event names accepted by WebhookEventsFilter.
const (
	WebhookEventStart     = "start"
	WebhookEventOutput    = "output"
	WebhookEventLogs      = "logs"
	WebhookEventCompleted = "completed"
)

// Page is one page of a cursor-paginated list.
type Page[T any] struct {
	Results  []T    `json:"results"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}

// HasNext reports whether another page follows.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != ""
}
