package replicate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"time"

	"github.com/s0up4200/go-replicate/apierror"
)

const predictionsPath = "/v1/predictions"

// PredictionsService creates and tracks predictions.
type PredictionsService struct {
	client *Client
}

// Create starts a prediction. File inputs must already be resolved to URLs
// or data URLs; use PredictionBuilder to have that done.
func (s *PredictionsService) Create(ctx context.Context, req CreatePredictionRequest) (*Prediction, error) {
	endpoint := predictionsPath
	if req.Model != "" {
		ref, err := ParseModelRef(req.Model)
		if err != nil {
			return nil, err
		}
		if ref.Version != "" {
			req.Version = ref.Version
		}
		endpoint = ref.endpoint()
	} else if req.Version == "" {
		return nil, apierror.InvalidInput(http.MethodPost+" "+predictionsPath, "model or version is required")
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	var pred Prediction
	if err := s.client.doJSON(ctx, http.MethodPost, endpoint, req, &pred); err != nil {
		return nil, err
	}

	s.client.logger.Debug().
		Str("id", pred.ID).
		Str("model", req.Model).
		Str("status", string(pred.Status)).
		Msg("Created prediction")

	return &pred, nil
}

// Get returns a prediction by ID.
func (s *PredictionsService) Get(ctx context.Context, id string) (*Prediction, error) {
	ref, err := predictionPath(http.MethodGet, id, "")
	if err != nil {
		return nil, err
	}

	var pred Prediction
	if err := s.client.doJSON(ctx, http.MethodGet, ref, nil, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// List returns the first page of predictions.
func (s *PredictionsService) List(ctx context.Context) (*Page[Prediction], error) {
	return s.page(ctx, predictionsPath)
}

// All iterates over every prediction, fetching pages on demand.
func (s *PredictionsService) All(ctx context.Context) iter.Seq2[Prediction, error] {
	return paginateFrom(ctx, s.List, s.page)
}

func (s *PredictionsService) page(ctx context.Context, ref string) (*Page[Prediction], error) {
	var page Page[Prediction]
	if err := s.client.doJSON(ctx, http.MethodGet, ref, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Cancel asks the API to stop a running prediction.
func (s *PredictionsService) Cancel(ctx context.Context, id string) (*Prediction, error) {
	ref, err := predictionPath(http.MethodPost, id, "/cancel")
	if err != nil {
		return nil, err
	}

	var pred Prediction
	if err := s.client.doJSON(ctx, http.MethodPost, ref, nil, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// Wait polls a prediction until it reaches a terminal status.
//
// maxDuration <= 0 waits until ctx ends; pollInterval <= 0 uses the client
// default. Exceeding maxDuration returns a KindTimeout error. A failed or
// canceled prediction is returned together with a KindPrediction error
// carrying its error message and logs.
func (s *PredictionsService) Wait(ctx context.Context, id string, maxDuration, pollInterval time.Duration) (*Prediction, error) {
	const op = "wait prediction"

	if pollInterval <= 0 {
		pollInterval = s.client.pollInterval
	}

	waitCtx := ctx
	if maxDuration > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, maxDuration)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		pred, err := s.Get(waitCtx, id)
		if err != nil {
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return nil, waitTimeout(op, id, maxDuration, err)
			}
			return nil, err
		}

		if pred.Status.IsTerminal() {
			return pred, predictionError(op, pred)
		}

		s.client.logger.Debug().Str("id", id).Str("status", string(pred.Status)).Msg("Waiting for prediction")

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, apierror.New(apierror.KindTransport, op, "wait canceled", ctx.Err())
			}
			return nil, waitTimeout(op, id, maxDuration, waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func waitTimeout(op, id string, d time.Duration, cause error) error {
	msg := fmt.Sprintf("prediction %s did not complete within %s", id, d)
	if !errors.Is(cause, context.DeadlineExceeded) {
		cause = errors.Join(context.DeadlineExceeded, cause)
	}
	return apierror.New(apierror.KindTimeout, op, msg, cause)
}

func predictionError(op string, pred *Prediction) error {
	switch pred.Status {
	case StatusFailed:
		msg := fmt.Sprintf("prediction %s failed", pred.ID)
		if pred.Error != "" {
			msg += ": " + pred.Error
		}
		e := apierror.New(apierror.KindPrediction, op, msg, nil)
		e.Detail = pred.Logs
		return e
	case StatusCanceled:
		e := apierror.New(apierror.KindPrediction, op, fmt.Sprintf("prediction %s was canceled", pred.ID), nil)
		e.Detail = pred.Logs
		return e
	default:
		return nil
	}
}

func predictionPath(method, id, suffix string) (string, error) {
	if id == "" {
		return "", apierror.InvalidInput(method+" "+predictionsPath+"/{id}"+suffix, "prediction ID is required")
	}
	return predictionsPath + "/" + url.PathEscape(id) + suffix, nil
}
