// Package pipeline sends HTTP requests to the Replicate API with retries,
// exponential backoff and per-phase timeouts.
//
// Every request made by the client goes through a single Pipeline. It wraps
// hashicorp/go-retryablehttp and adds the pieces the API needs on top:
//
//   - Deterministic backoff: min(MinDelay * BaseMultiplier^n, MaxDelay)
//   - Retry-After handling for 429 and 503, still capped at MaxDelay
//   - Classification of every failure into an *apierror.Error carrying the
//     number of attempts made
//   - Live reconfiguration through an atomically swapped snapshot
//
// # Retry policy
//
// Transport errors, 429 and 5xx responses (except 501) are retried.
// Timeouts are not retried unless RetryConfig.RetryTimeouts is set. Other
// 4xx responses are returned immediately. Bodies are held as byte slices so
// each attempt sends the same payload.
//
// # Usage
//
//	p, err := pipeline.New(pipeline.DefaultConfig(),
//		pipeline.WithLogger(logger),
//		pipeline.WithHeader("Authorization", "Bearer "+token),
//	)
//	if err != nil {
//		return err
//	}
//
//	resp, err := p.Do(ctx, &pipeline.Request{
//		Method: http.MethodGet,
//		URL:    "https://api.replicate.com/v1/files",
//	})
//
// # Timeouts
//
// TimeoutConfig.Connect bounds dialing and the TLS handshake.
// TimeoutConfig.Request bounds one attempt including reading the body.
// A zero value disables that phase. Disabling both is allowed and logged
// as a warning.
package pipeline
