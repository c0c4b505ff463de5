package replicate

import (
	"context"
	"iter"
	"net/http"
	"net/url"

	"github.com/s0up4200/go-replicate/apierror"
	"github.com/s0up4200/go-replicate/fileinput"
)

const filesPath = "/v1/files"

// FilesService uploads and manages files.
type FilesService struct {
	client *Client
}

// CreateFromBytes uploads data. Empty filename and contentType are filled
// in by fileinput.Load.
func (s *FilesService) CreateFromBytes(ctx context.Context, data []byte, filename, contentType string, metadata map[string]any) (*File, error) {
	return s.CreateFromFileInput(ctx, fileinput.FromBytesWithMetadata(data, filename, contentType), metadata)
}

// CreateFromPath uploads a local file.
func (s *FilesService) CreateFromPath(ctx context.Context, path string, metadata map[string]any) (*File, error) {
	return s.CreateFromFileInput(ctx, fileinput.FromPath(path), metadata)
}

// CreateFromFileInput uploads a Bytes or Path input. URL inputs are rejected.
func (s *FilesService) CreateFromFileInput(ctx context.Context, in fileinput.Input, metadata map[string]any) (*File, error) {
	op := http.MethodPost + " " + filesPath

	if _, ok := in.(fileinput.URL); ok {
		return nil, apierror.InvalidInput(op, "cannot upload a URL; pass it to the model directly")
	}

	part, err := fileinput.Load(in)
	if err != nil {
		return nil, err
	}
	form, err := fileinput.EncodeForm(part, metadata)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.do(ctx, http.MethodPost, filesPath, form.Body,
		http.Header{"Content-Type": {form.ContentType}})
	if err != nil {
		return nil, err
	}

	var file File
	if err := decode(op, resp, &file); err != nil {
		return nil, err
	}

	s.client.logger.Debug().
		Str("id", file.ID).
		Str("name", part.Filename).
		Str("content_type", part.ContentType).
		Int("size", len(part.Data)).
		Int("attempts", resp.Stats.Attempts).
		Msg("Uploaded file")

	return &file, nil
}

// List returns the first page of uploaded files.
func (s *FilesService) List(ctx context.Context) (*Page[File], error) {
	return s.page(ctx, filesPath)
}

// All iterates over every uploaded file, fetching pages on demand.
func (s *FilesService) All(ctx context.Context) iter.Seq2[File, error] {
	return paginateFrom(ctx, s.List, s.page)
}

func (s *FilesService) page(ctx context.Context, ref string) (*Page[File], error) {
	var page Page[File]
	if err := s.client.doJSON(ctx, http.MethodGet, ref, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns a file by ID.
func (s *FilesService) Get(ctx context.Context, id string) (*File, error) {
	ref, err := filePath(http.MethodGet, id)
	if err != nil {
		return nil, err
	}

	var file File
	if err := s.client.doJSON(ctx, http.MethodGet, ref, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// Delete removes a file. It reports true when the API answered 204 No Content.
func (s *FilesService) Delete(ctx context.Context, id string) (bool, error) {
	ref, err := filePath(http.MethodDelete, id)
	if err != nil {
		return false, err
	}

	resp, err := s.client.do(ctx, http.MethodDelete, ref, nil, nil)
	if err != nil {
		return false, err
	}

	s.client.logger.Debug().Str("id", id).Int("status", resp.StatusCode).Msg("Deleted file")
	return resp.StatusCode == http.StatusNoContent, nil
}

func filePath(method, id string) (string, error) {
	if id == "" {
		return "", apierror.InvalidInput(method+" "+filesPath+"/{id}", "file ID is required")
	}
	return filesPath + "/" + url.PathEscape(id), nil
}
