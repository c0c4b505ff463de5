// Package apierror defines the error taxonomy shared by the pipeline,
// file encoding and API client packages.
//
// Every error returned by this module is an *Error carrying a Kind:
//
//   - KindTransport: connection or DNS failure (retried)
//   - KindTimeout: connect or request deadline exceeded
//   - KindHTTPStatus: non-2xx response (retried only for retryable statuses)
//   - KindSerialization: malformed request or response body
//   - KindIO: local file read failure
//   - KindConfiguration: invalid retry or timeout settings
//   - KindInvalidInput, KindAuth, KindPrediction
//
// Classify errors with errors.As or the helpers:
//
//	var apiErr *apierror.Error
//	if errors.As(err, &apiErr) && apiErr.Exhausted() {
//		// the request was retried apiErr.Attempts times
//	}
//
//	if apierror.IsKind(err, apierror.KindTimeout) {
//		// handle timeout
//	}
package apierror
