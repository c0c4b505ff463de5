package fileinput

import (
	"fmt"
	"strings"
)

// Strategy selects how a file field is sent with a prediction.
type Strategy int

const (
	// Multipart uploads the file to the Files API and passes its URL.
	Multipart Strategy = iota
	// Base64DataURL embeds the file in the request as a data URL.
	Base64DataURL
)

func (s Strategy) String() string {
	switch s {
	case Multipart:
		return "multipart"
	case Base64DataURL:
		return "base64"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts "multipart", "base64" or "data-url" (any case).
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "multipart", "upload":
		return Multipart, nil
	case "base64", "data-url", "dataurl":
		return Base64DataURL, nil
	default:
		return Multipart, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}
