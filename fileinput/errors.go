package fileinput

import "errors"

var (
	// ErrUnknownStrategy is returned by ParseStrategy for unrecognised names.
	ErrUnknownStrategy = errors.New("unknown encoding strategy")

	// ErrMalformedDataURL is returned by DecodeDataURL.
	ErrMalformedDataURL = errors.New("malformed data URL")
)
