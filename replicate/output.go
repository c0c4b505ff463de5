package replicate

import (
	"context"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path"
	"slices"

	"github.com/s0up4200/go-replicate/apierror"
	"github.com/s0up4200/go-replicate/fileinput"
	"github.com/s0up4200/go-replicate/pipeline"
)

// defaultOutputName is used when a URL path has no usable last segment.
const defaultOutputName = "output"

// FileOutput is a file produced by a model, usually served from
// replicate.delivery. ContentType and Size are filled in by Download.
type FileOutput struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// NewFileOutput returns a FileOutput for rawURL with the filename taken from
// the last path segment.
func NewFileOutput(rawURL string) FileOutput {
	return FileOutput{URL: rawURL, Filename: outputName(rawURL)}
}

// FileOutputs collects every http(s) URL in a prediction output, in order.
// Lists and objects are walked recursively; object keys are visited sorted.
func FileOutputs(output any) []FileOutput {
	var out []FileOutput
	collectOutputs(output, &out)
	return out
}

// FileOutputs returns the file URLs in the prediction's output.
func (p *Prediction) FileOutputs() []FileOutput {
	return FileOutputs(p.Output)
}

func collectOutputs(v any, out *[]FileOutput) {
	switch v := v.(type) {
	case string:
		if isFileURL(v) {
			*out = append(*out, NewFileOutput(v))
		}
	case []string:
		for _, s := range v {
			collectOutputs(s, out)
		}
	case []any:
		for _, item := range v {
			collectOutputs(item, out)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			collectOutputs(v[k], out)
		}
	}
}

func isFileURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func outputName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultOutputName
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return defaultOutputName
	}
	return name
}

// DownloadOutput fetches f through the client's pipeline, so the active retry
// policy and timeouts apply. The API token is only sent when f is served from
// the API host. On success f.ContentType and f.Size are set.
func (c *Client) DownloadOutput(ctx context.Context, f *FileOutput) ([]byte, error) {
	const op = "download output"

	if !isFileURL(f.URL) {
		return nil, apierror.InvalidInput(op, "not an http(s) URL: "+f.URL)
	}

	req := &pipeline.Request{Method: http.MethodGet, URL: f.URL}
	if u, _ := url.Parse(f.URL); u.Scheme != c.baseURL.Scheme || u.Host != c.baseURL.Host {
		req.NoDefaultHeaders = true
		req.Header = http.Header{"User-Agent": {c.userAgent}}
	}

	resp, err := c.pipe.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if f.Filename == "" {
		f.Filename = outputName(f.URL)
	}
	f.Size = int64(len(resp.Body))
	f.ContentType = resp.Header.Get("Content-Type")
	if f.ContentType == "" || f.ContentType == fileinput.DefaultContentType {
		f.ContentType = fileinput.DetectContentType(f.Filename, resp.Body)
	}

	c.logger.Debug().
		Str("url", f.URL).
		Str("content_type", f.ContentType).
		Int64("size", f.Size).
		Int("attempts", resp.Stats.Attempts).
		Msg("Downloaded output")

	return resp.Body, nil
}

// SaveOutput downloads f and writes it to dst.
func (c *Client) SaveOutput(ctx context.Context, f *FileOutput, dst string) error {
	data, err := c.DownloadOutput(ctx, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return apierror.IO("save output", err)
	}
	return nil
}
