// Package replicate provides a client for the Replicate API.
//
// Replicate runs machine learning models behind an HTTP API. This package
// covers predictions and the Files API, with every request going through a
// retrying pipeline (see package pipeline).
//
// # Architecture
//
//   - Client: owns the API token, base URL and the HTTP pipeline
//   - FilesService: upload, list, get and delete files
//   - PredictionsService: create, get, list, cancel and wait on predictions
//   - PredictionBuilder: fluent construction of a prediction, including file
//     inputs encoded per field
//   - Paginate: lazy iteration over cursor-paginated lists
//
// # Usage
//
//	client, err := replicate.NewFromEnv(replicate.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	pred, err := client.CreatePrediction("stability-ai/sdxl").
//		Input("prompt", "a lighthouse at dusk").
//		FileInput("image", fileinput.FromPath("./sketch.png")).
//		SendAndWaitWithTimeout(ctx, 5*time.Minute)
//
// File inputs default to the Multipart strategy: the file is uploaded to
// the Files API and its URL is passed to the model. Small files can instead
// be embedded with FileInputWithStrategy(key, in, fileinput.Base64DataURL).
//
// # Pagination
//
//	for file, err := range client.Files().All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(file.ID)
//	}
//
// # Errors
//
// Every error returned is, or wraps, an *apierror.Error. Use
// apierror.IsKind or errors.As to inspect it.
//
// # Retries
//
// Requests are retried on transport errors, 429 and 5xx responses. POST
// requests are retried too, so a create whose response is lost can run
// twice. Adjust the policy with ConfigureRetries or disable it with
// ConfigureRetries(0, 0, 0).
package replicate
