package fileinput

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/s0up4200/go-replicate/apierror"
)

const (
	// DefaultContentType is used when nothing better can be detected.
	DefaultContentType = "application/octet-stream"

	// DefaultMaxDataURLSize is the largest payload embedded as a data URL.
	DefaultMaxDataURLSize int64 = 1 << 20

	// FormFieldContent and FormFieldMetadata are the Files API form fields.
	FormFieldContent  = "content"
	FormFieldMetadata = "metadata"
)

// DetectContentType guesses a MIME type from the filename extension, then
// from the content. Parameters such as charset are dropped.
func DetectContentType(filename string, data []byte) string {
	if ext := filepath.Ext(filename); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return normalize(ct)
		}
	}
	if len(data) == 0 {
		return DefaultContentType
	}
	return normalize(mimetype.Detect(data).String())
}

func normalize(ct string) string {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType == "" {
		return DefaultContentType
	}
	return mediaType
}

// DataURL encodes in as data:<mime>;base64,<payload>. Payloads larger than
// limit bytes are rejected; limit <= 0 disables the check. URL inputs are
// rejected because they are never read.
func DataURL(in Input, limit int64) (string, error) {
	const op = "encode data URL"

	if p, ok := in.(Path); ok && limit > 0 {
		info, err := os.Stat(p.Path)
		if err != nil {
			return "", apierror.IO(op, err)
		}
		if info.Size() > limit {
			return "", tooLarge(op, p.Describe(), info.Size(), limit)
		}
	}

	part, err := Load(in)
	if err != nil {
		return "", err
	}
	if limit > 0 && int64(len(part.Data)) > limit {
		return "", tooLarge(op, in.Describe(), int64(len(part.Data)), limit)
	}
	return EncodeDataURL(part.ContentType, part.Data), nil
}

// EncodeDataURL formats data as a base64 data URL.
func EncodeDataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = DefaultContentType
	}
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(contentType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DecodeDataURL is the inverse of EncodeDataURL. Only base64 payloads are
// supported.
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrMalformedDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrMalformedDataURL)
	}
	contentType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrMalformedDataURL)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformedDataURL, err)
	}
	if contentType == "" {
		contentType = "text/plain"
	}
	return contentType, data, nil
}

func tooLarge(op, what string, size, limit int64) error {
	return apierror.InvalidInput(op,
		fmt.Sprintf("%s is %d bytes, larger than the %d byte data URL limit; use multipart upload instead", what, size, limit))
}

// Form is an encoded multipart/form-data body.
type Form struct {
	Body        []byte
	ContentType string
}

// EncodeForm builds the Files API upload form: the file under "content"
// and, when metadata is non-empty, its JSON under "metadata". The body is
// fully buffered so it can be sent again on retry.
func EncodeForm(part Part, metadata map[string]any) (*Form, error) {
	const op = "encode multipart form"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     FormFieldContent,
		"filename": part.Filename,
	}))
	ct := part.ContentType
	if ct == "" {
		ct = DefaultContentType
	}
	h.Set("Content-Type", ct)

	fw, err := w.CreatePart(h)
	if err != nil {
		return nil, apierror.Serialization(op, err)
	}
	if _, err := fw.Write(part.Data); err != nil {
		return nil, apierror.Serialization(op, err)
	}

	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, apierror.Serialization(op, err)
		}
		if err := w.WriteField(FormFieldMetadata, string(raw)); err != nil {
			return nil, apierror.Serialization(op, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, apierror.Serialization(op, err)
	}
	return &Form{Body: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}
