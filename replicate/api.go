package replicate

import (
	"context"
	"iter"
	"time"

	"github.com/s0up4200/go-replicate/fileinput"
)

// FilesAPI defines the interface for Files API operations
type FilesAPI interface {
	// CreateFromBytes uploads in-memory content
	CreateFromBytes(ctx context.Context, data []byte, filename, contentType string, metadata map[string]any) (*File, error)

	// CreateFromPath uploads a local file
	CreateFromPath(ctx context.Context, path string, metadata map[string]any) (*File, error)

	// CreateFromFileInput uploads a Bytes or Path input
	CreateFromFileInput(ctx context.Context, in fileinput.Input, metadata map[string]any) (*File, error)

	// List returns the first page of files
	List(ctx context.Context) (*Page[File], error)

	// All iterates over every file
	All(ctx context.Context) iter.Seq2[File, error]

	// Get returns a single file
	Get(ctx context.Context, id string) (*File, error)

	// Delete removes a file
	Delete(ctx context.Context, id string) (bool, error)
}

// PredictionsAPI defines the interface for Predictions API operations
type PredictionsAPI interface {
	Create(ctx context.Context, req CreatePredictionRequest) (*Prediction, error)
	Get(ctx context.Context, id string) (*Prediction, error)
	List(ctx context.Context) (*Page[Prediction], error)
	All(ctx context.Context) iter.Seq2[Prediction, error]
	Cancel(ctx context.Context, id string) (*Prediction, error)
	Wait(ctx context.Context, id string, maxDuration, pollInterval time.Duration) (*Prediction, error)
}

var (
	_ FilesAPI       = (*FilesService)(nil)
	_ PredictionsAPI = (*PredictionsService)(nil)
)
