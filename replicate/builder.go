package replicate

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/go-replicate/apierror"
	"github.com/s0up4200/go-replicate/fileinput"
)

// PredictionBuilder accumulates a prediction request. Methods chain, and
// one of the Send methods dispatches it. A builder can be sent only once.
type PredictionBuilder struct {
	client *Client
	model  string

	input  map[string]any
	files  map[string]fileField
	hook   string
	events []string
	stream bool

	sent atomic.Bool
}

type fileField struct {
	input    fileinput.Input
	strategy fileinput.Strategy
}

func newPredictionBuilder(c *Client, model string) *PredictionBuilder {
	return &PredictionBuilder{
		client: c,
		model:  model,
		input:  make(map[string]any),
		files:  make(map[string]fileField),
	}
}

// Input sets a model input. A fileinput.Input value is treated like
// FileInput(key, value).
func (b *PredictionBuilder) Input(key string, value any) *PredictionBuilder {
	if in, ok := value.(fileinput.Input); ok {
		return b.FileInput(key, in)
	}
	delete(b.files, key)
	b.input[key] = value
	return b
}

// Inputs sets several model inputs.
func (b *PredictionBuilder) Inputs(values map[string]any) *PredictionBuilder {
	for k, v := range values {
		b.Input(k, v)
	}
	return b
}

// FileInput sets a file input sent with the Multipart strategy.
func (b *PredictionBuilder) FileInput(key string, in fileinput.Input) *PredictionBuilder {
	return b.FileInputWithStrategy(key, in, fileinput.Multipart)
}

// FileInputWithStrategy sets a file input with an explicit encoding.
// The strategy applies to this field only.
func (b *PredictionBuilder) FileInputWithStrategy(key string, in fileinput.Input, strategy fileinput.Strategy) *PredictionBuilder {
	delete(b.input, key)
	b.files[key] = fileField{input: in, strategy: strategy}
	return b
}

// Webhook sets the URL notified as the prediction progresses.
func (b *PredictionBuilder) Webhook(url string) *PredictionBuilder {
	b.hook = url
	return b
}

// WebhookEventsFilter limits which events are sent to the webhook.
func (b *PredictionBuilder) WebhookEventsFilter(events ...string) *PredictionBuilder {
	b.events = append(b.events[:0], events...)
	return b
}

// Stream requests a streaming output URL.
func (b *PredictionBuilder) Stream() *PredictionBuilder {
	b.stream = true
	return b
}

// Send resolves file inputs and creates the prediction.
func (b *PredictionBuilder) Send(ctx context.Context) (*Prediction, error) {
	if !b.sent.CompareAndSwap(false, true) {
		return nil, apierror.New(apierror.KindInvalidInput, "send prediction", "", ErrAlreadySent)
	}

	req, err := b.request(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.predictions.Create(ctx, req)
}

// SendAndWait sends the prediction and waits for it to finish.
func (b *PredictionBuilder) SendAndWait(ctx context.Context) (*Prediction, error) {
	return b.SendAndWaitWithTimeout(ctx, 0)
}

// SendAndWaitWithTimeout sends the prediction and waits at most d for it to
// finish. d <= 0 waits until ctx ends.
func (b *PredictionBuilder) SendAndWaitWithTimeout(ctx context.Context, d time.Duration) (*Prediction, error) {
	pred, err := b.Send(ctx)
	if err != nil {
		return nil, err
	}
	return b.client.predictions.Wait(ctx, pred.ID, d, 0)
}

func (b *PredictionBuilder) request(ctx context.Context) (CreatePredictionRequest, error) {
	if _, err := ParseModelRef(b.model); err != nil {
		return CreatePredictionRequest{}, err
	}

	input := maps.Clone(b.input)
	if err := b.resolveFiles(ctx, input); err != nil {
		return CreatePredictionRequest{}, err
	}

	return CreatePredictionRequest{
		Model:               b.model,
		Input:               input,
		Webhook:             b.hook,
		WebhookEventsFilter: b.events,
		Stream:              b.stream,
	}, nil
}

// resolveFiles replaces each file field with a string the API accepts.
// Local encoding runs first so bad inputs fail before anything is uploaded;
// uploads then run concurrently.
func (b *PredictionBuilder) resolveFiles(ctx context.Context, input map[string]any) error {
	var uploads []string

	for _, key := range slices.Sorted(maps.Keys(b.files)) {
		field := b.files[key]
		if u, ok := field.input.(fileinput.URL); ok {
			input[key] = u.URL
			continue
		}

		switch field.strategy {
		case fileinput.Base64DataURL:
			s, err := fileinput.DataURL(field.input, b.client.maxDataURLSize)
			if err != nil {
				return fieldError(key, err)
			}
			input[key] = s
		case fileinput.Multipart:
			uploads = append(uploads, key)
		default:
			return apierror.InvalidInput("resolve file input", fmt.Sprintf("%s: unknown strategy %s", key, field.strategy))
		}
	}

	if len(uploads) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.client.uploadConcurrency)

	for _, key := range uploads {
		g.Go(func() error {
			file, err := b.client.files.CreateFromFileInput(gctx, b.files[key].input, nil)
			if err != nil {
				return fieldError(key, err)
			}
			link := file.GetURL()
			if link == "" {
				return apierror.InvalidInput("resolve file input", fmt.Sprintf("%s: uploaded file %s has no get URL", key, file.ID))
			}

			mu.Lock()
			input[key] = link
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func fieldError(key string, err error) error {
	return fmt.Errorf("file input %q: %w", key, err)
}
