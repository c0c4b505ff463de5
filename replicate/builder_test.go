package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-replicate/apierror"
	"github.com/s0up4200/go-replicate/fileinput"
)

// fakeAPI routes uploads and prediction creates, recording the last
// prediction body.
type fakeAPI struct {
	t        *testing.T
	uploads  atomic.Int32
	creates  atomic.Int32
	polls    atomic.Int32
	lastPath atomic.Value
	lastBody atomic.Value
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
		uploadHandler(f.t, &f.uploads)(w, r)

	case r.Method == http.MethodPost:
		f.creates.Add(1)
		var body map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		f.lastPath.Store(r.URL.Path)
		f.lastBody.Store(body)
		writeJSON(f.t, w, http.StatusCreated, Prediction{ID: "p1", Status: StatusStarting})

	case r.Method == http.MethodGet && r.URL.Path == "/v1/predictions/p1":
		status := StatusProcessing
		if f.polls.Add(1) > 1 {
			status = StatusSucceeded
		}
		writeJSON(f.t, w, http.StatusOK, Prediction{ID: "p1", Status: status, Output: []string{"out.png"}})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) body() map[string]any {
	v, _ := f.lastBody.Load().(map[string]any)
	return v
}

func (f *fakeAPI) input() map[string]any {
	v, _ := f.body()["input"].(map[string]any)
	return v
}

func TestBuilderScalarInputs(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	pred, err := client.CreatePrediction("owner/model").
		Input("prompt", "a cat").
		Inputs(map[string]any{"steps": 20, "seed": 7}).
		Webhook("https://example.com/hook").
		WebhookEventsFilter(WebhookEventStart, WebhookEventCompleted).
		Stream().
		Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p1", pred.ID)

	assert.Equal(t, "/v1/models/owner/model/predictions", api.lastPath.Load())
	body := api.body()
	assert.Equal(t, "https://example.com/hook", body["webhook"])
	assert.Equal(t, []any{"start", "completed"}, body["webhook_events_filter"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, map[string]any{"prompt": "a cat", "steps": float64(20), "seed": float64(7)}, api.input())
	assert.Zero(t, api.uploads.Load())
}

func TestBuilderPinnedVersion(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	_, err := client.CreatePrediction("owner/model:v123").Input("x", 1).Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v1/predictions", api.lastPath.Load())
	assert.Equal(t, "v123", api.body()["version"])
}

func TestBuilderMultipartFiles(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	_, err := client.CreatePrediction("owner/model").
		Input("prompt", "upscale").
		FileInput("image", fileinput.FromBytesWithMetadata([]byte("png"), "a.png", "image/png")).
		Input("mask", fileinput.FromBytesWithMetadata([]byte("mask"), "m.png", "image/png")).
		Send(context.Background())
	require.NoError(t, err)

	input := api.input()
	assert.Equal(t, "https://api.replicate.com/v1/files/a.png", input["image"])
	assert.Equal(t, "https://api.replicate.com/v1/files/m.png", input["mask"])
	assert.Equal(t, "upscale", input["prompt"])
	assert.EqualValues(t, 2, api.uploads.Load())
	assert.EqualValues(t, 1, api.creates.Load())
}

func TestBuilderMixedStrategies(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	_, err := client.CreatePrediction("owner/model").
		FileInput("upload", fileinput.FromBytesWithMetadata([]byte("big"), "big.bin", "")).
		FileInputWithStrategy("inline", fileinput.FromBytesWithMetadata([]byte("hi"), "", "text/plain"), fileinput.Base64DataURL).
		FileInput("remote", fileinput.FromURL("https://example.com/ref.png")).
		Send(context.Background())
	require.NoError(t, err)

	input := api.input()
	assert.Equal(t, "https://api.replicate.com/v1/files/big.bin", input["upload"])
	assert.Equal(t, "data:text/plain;base64,aGk=", input["inline"])
	assert.Equal(t, "https://example.com/ref.png", input["remote"])
	assert.EqualValues(t, 1, api.uploads.Load())
}

func TestBuilderDataURLTooLarge(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api, WithMaxDataURLSize(16))

	_, err := client.CreatePrediction("owner/model").
		FileInput("first", fileinput.FromBytes([]byte("fine"))).
		FileInputWithStrategy("image", fileinput.FromBytes(bytes.Repeat([]byte("x"), 32)), fileinput.Base64DataURL).
		Send(context.Background())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
	assert.Contains(t, err.Error(), `"image"`)

	assert.Zero(t, api.uploads.Load(), "nothing is uploaded when local encoding fails")
	assert.Zero(t, api.creates.Load())
}

func TestBuilderInputOverridesFile(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	_, err := client.CreatePrediction("owner/model").
		FileInput("image", fileinput.FromBytes([]byte("x"))).
		Input("image", "https://example.com/instead.png").
		Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/instead.png", api.input()["image"])
	assert.Zero(t, api.uploads.Load())
}

func TestBuilderSendTwice(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	b := client.CreatePrediction("owner/model").Input("prompt", "once")
	_, err := b.Send(context.Background())
	require.NoError(t, err)

	_, err = b.Send(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadySent)
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
	assert.EqualValues(t, 1, api.creates.Load())
}

func TestBuilderInvalidModel(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api)

	_, err := client.CreatePrediction("").Send(context.Background())
	assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
	assert.Zero(t, api.creates.Load())
}

func TestBuilderUploadFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/files" {
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))

	_, err := client.CreatePrediction("owner/model").
		FileInput("image", fileinput.FromBytes([]byte("x"))).
		Send(context.Background())
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindAuth))
	assert.True(t, strings.Contains(err.Error(), "insufficient credits"))
}

func TestBuilderSendAndWait(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api, WithPollInterval(time.Millisecond))

	pred, err := client.CreatePrediction("owner/model").Input("prompt", "x").SendAndWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, pred.Status)
	assert.Equal(t, []any{"out.png"}, pred.Output)
	assert.EqualValues(t, 2, api.polls.Load())
}

func TestRun(t *testing.T) {
	api := &fakeAPI{t: t}
	client, _ := newTestClient(t, api, WithPollInterval(time.Millisecond))

	pred, err := client.Run(context.Background(), "owner/model", map[string]any{
		"prompt": "x",
		"image":  fileinput.FromURL("https://example.com/a.png"),
	})
	require.NoError(t, err)
	assert.True(t, pred.Succeeded())
	assert.Equal(t, "https://example.com/a.png", api.input()["image"])
}

func TestBuilderSendAndWaitWithTimeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, http.StatusCreated, Prediction{ID: "p1", Status: StatusStarting})
			return
		}
		writeJSON(t, w, http.StatusOK, Prediction{ID: "p1", Status: StatusProcessing})
	}), WithPollInterval(5*time.Millisecond))

	_, err := client.CreatePrediction("owner/model").SendAndWaitWithTimeout(context.Background(), 30*time.Millisecond)
	assert.True(t, apierror.IsKind(err, apierror.KindTimeout))
}
