package replicate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-replicate/apierror"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func TestFileOutputs(t *testing.T) {
	tests := []struct {
		name   string
		output any
		want   []string
	}{
		{name: "nil", output: nil},
		{name: "text", output: "a caption, not a file"},
		{name: "single URL", output: "https://replicate.delivery/a/out.png", want: []string{"https://replicate.delivery/a/out.png"}},
		{
			name:   "list",
			output: []any{"https://replicate.delivery/a/0.png", 42.0, "ftp://example.com/x", "https://replicate.delivery/a/1.png"},
			want:   []string{"https://replicate.delivery/a/0.png", "https://replicate.delivery/a/1.png"},
		},
		{
			name: "object",
			output: map[string]any{
				"video": "https://replicate.delivery/b/clip.mp4",
				"audio": "https://replicate.delivery/b/track.wav",
				"meta":  map[string]any{"seed": 7.0},
			},
			want: []string{"https://replicate.delivery/b/track.wav", "https://replicate.delivery/b/clip.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range FileOutputs(tt.output) {
				got = append(got, f.URL)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	pred := &Prediction{Output: []any{"https://replicate.delivery/c/out-0.webp"}}
	outs := pred.FileOutputs()
	require.Len(t, outs, 1)
	assert.Equal(t, "out-0.webp", outs[0].Filename)
	assert.Equal(t, "output", NewFileOutput("https://replicate.delivery/").Filename)
}

func TestDownloadOutputRetries(t *testing.T) {
	var calls atomic.Int32
	delivery := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "token must not leak to the file host")
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(pngBytes)
	}))
	defer delivery.Close()

	client, _ := newTestClient(t, http.NotFoundHandler())

	f := NewFileOutput(delivery.URL + "/pbxt/out-0.png")
	data, err := client.DownloadOutput(context.Background(), &f)
	require.NoError(t, err)

	assert.Equal(t, pngBytes, data)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, "out-0.png", f.Filename)
	assert.Equal(t, "image/png", f.ContentType)
	assert.EqualValues(t, len(pngBytes), f.Size)
}

func TestDownloadOutputFromAPIHost(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))

	f := NewFileOutput(server.URL + "/v1/files/abc/download")
	data, err := client.DownloadOutput(context.Background(), &f)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", f.ContentType)
}

func TestDownloadOutputErrors(t *testing.T) {
	delivery := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer delivery.Close()

	client, _ := newTestClient(t, http.NotFoundHandler())

	t.Run("not found", func(t *testing.T) {
		f := NewFileOutput(delivery.URL + "/gone.png")
		_, err := client.DownloadOutput(context.Background(), &f)
		require.Error(t, err)

		var apiErr *apierror.Error
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsNotFound())
		assert.False(t, apiErr.Exhausted())
		assert.Zero(t, f.Size)
	})

	t.Run("request timeout", func(t *testing.T) {
		require.NoError(t, client.ConfigureTimeouts(time.Second, 50*time.Millisecond))
		f := NewFileOutput(delivery.URL + "/slow")
		_, err := client.DownloadOutput(context.Background(), &f)
		require.Error(t, err)
		assert.True(t, apierror.IsKind(err, apierror.KindTimeout))
	})

	t.Run("not a URL", func(t *testing.T) {
		f := FileOutput{URL: "/tmp/out.png"}
		_, err := client.DownloadOutput(context.Background(), &f)
		assert.True(t, apierror.IsKind(err, apierror.KindInvalidInput))
	})
}

func TestSaveOutput(t *testing.T) {
	delivery := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes)
	}))
	defer delivery.Close()

	client, _ := newTestClient(t, http.NotFoundHandler())
	dir := t.TempDir()

	f := NewFileOutput(delivery.URL + "/out.png")
	dst := filepath.Join(dir, f.Filename)
	require.NoError(t, client.SaveOutput(context.Background(), &f, dst))

	saved, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, saved)

	err = client.SaveOutput(context.Background(), &f, filepath.Join(dir, "missing", "out.png"))
	assert.True(t, apierror.IsKind(err, apierror.KindIO))
}
