package fileinput

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/s0up4200/go-replicate/apierror"
)

// Input is a file supplied to a model or the Files API. It is one of
// Bytes, Path or URL.
type Input interface {
	// Describe returns a short human-readable form for logs and errors.
	Describe() string

	sealed()
}

// Bytes is in-memory file content. Filename and ContentType are optional.
type Bytes struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Path is a local file, read when the request is sent.
type Path struct {
	Path string
}

// URL references a remote file. It is passed to the API as-is and never
// read, uploaded or encoded by the client.
type URL struct {
	URL string
}

func (Bytes) sealed() {}
func (Path) sealed()  {}
func (URL) sealed()   {}

func (b Bytes) Describe() string {
	if b.Filename != "" {
		return fmt.Sprintf("%s (%d bytes)", b.Filename, len(b.Data))
	}
	return fmt.Sprintf("%d bytes", len(b.Data))
}

func (p Path) Describe() string { return p.Path }
func (u URL) Describe() string  { return u.URL }

// FromBytes wraps raw content with no name or type.
func FromBytes(data []byte) Bytes {
	return Bytes{Data: data}
}

// FromBytesWithMetadata wraps raw content with a filename and content type.
// Either may be empty.
func FromBytesWithMetadata(data []byte, filename, contentType string) Bytes {
	return Bytes{Data: data, Filename: filename, ContentType: contentType}
}

// FromPath references a local file.
func FromPath(path string) Path {
	return Path{Path: path}
}

// FromURL references a remote file.
func FromURL(url string) URL {
	return URL{URL: url}
}

// Parse treats http(s) and data URLs as URL inputs and anything else as a path.
func Parse(s string) Input {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return FromURL(s)
	}
	return FromPath(s)
}

// Part is loaded file content ready to encode.
type Part struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Load reads in and fills in the filename and content type. A missing
// filename becomes a random UUID. URL inputs cannot be loaded.
func Load(in Input) (Part, error) {
	const op = "load file"

	switch v := in.(type) {
	case Bytes:
		name := v.Filename
		if name == "" {
			name = uuid.New().String()
		}
		ct := v.ContentType
		if ct == "" {
			ct = DetectContentType(v.Filename, v.Data)
		}
		return Part{Filename: name, ContentType: normalize(ct), Data: v.Data}, nil

	case Path:
		data, err := os.ReadFile(v.Path)
		if err != nil {
			return Part{}, apierror.IO(op, err)
		}
		name := filepath.Base(v.Path)
		return Part{Filename: name, ContentType: DetectContentType(name, data), Data: data}, nil

	case URL:
		return Part{}, apierror.InvalidInput(op, fmt.Sprintf("%s is a URL and cannot be read locally", v.URL))

	case nil:
		return Part{}, apierror.InvalidInput(op, "file input is nil")

	default:
		return Part{}, apierror.InvalidInput(op, fmt.Sprintf("unsupported file input %T", in))
	}
}
