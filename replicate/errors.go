package replicate

import "errors"

// Common errors
var (
	// ErrMissingToken indicates no API token was supplied
	ErrMissingToken = errors.New("API token is required")
	// ErrAlreadySent indicates a PredictionBuilder was sent twice
	ErrAlreadySent = errors.New("prediction builder already sent")
	// ErrForeignLink indicates a pagination link outside the API base URL
	ErrForeignLink = errors.New("pagination link points outside the API base URL")
)
