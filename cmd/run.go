package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/go-replicate/fileinput"
	"github.com/s0up4200/go-replicate/replicate"
)

var (
	runInputs  []string
	runFiles   []string
	runWait    bool
	runTimeout time.Duration
	runWebhook string
	runEvents  []string
	runOutDir  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <owner/name[:version]>",
	Short: "Create a prediction",
	Long: `Create a prediction for a model or a pinned model version.

Inputs are passed as key=value. Values that parse as JSON keep their type,
anything else is sent as a string. File inputs take a local path or URL,
optionally followed by @multipart or @base64 to pick the encoding:

  replicate run stability-ai/sdxl -i prompt="a lighthouse" -i steps=30 \
    -f image=./photo.png@base64 --wait

With --output-dir every file URL in the output is downloaded into that
directory once the prediction succeeds. --output-dir implies --wait.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "model input as key=value (repeatable)")
	runCmd.Flags().StringArrayVarP(&runFiles, "file", "f", nil, "file input as key=path[@multipart|@base64] (repeatable)")
	runCmd.Flags().BoolVarP(&runWait, "wait", "w", false, "wait for the prediction to finish")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "give up waiting after this long (default from predictions.wait_timeout)")
	runCmd.Flags().StringVar(&runWebhook, "webhook", "", "URL notified about prediction updates")
	runCmd.Flags().StringSliceVar(&runEvents, "webhook-events", nil, "webhook events to send (start, output, logs, completed)")
	runCmd.Flags().StringVarP(&runOutDir, "output-dir", "o", "", "download output files into this directory")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	inputs, err := parseInputs(runInputs)
	if err != nil {
		return err
	}

	b := client.CreatePrediction(args[0]).Inputs(inputs)

	for _, raw := range runFiles {
		key, in, strategy, err := parseFileFlag(raw, cfg.Strategy())
		if err != nil {
			return err
		}
		logger.Debug().Str("input", key).Str("file", in.Describe()).Stringer("strategy", strategy).Msg("Adding file input")
		b.FileInputWithStrategy(key, in, strategy)
	}

	if runWebhook != "" {
		b.Webhook(runWebhook)
		if len(runEvents) > 0 {
			b.WebhookEventsFilter(runEvents...)
		}
	}

	if !runWait && runOutDir == "" {
		pred, err := b.Send(ctx)
		if err != nil {
			return err
		}
		return printPrediction(pred)
	}

	timeout := cfg.Predictions.WaitTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = runTimeout
	}

	logger.Info().Str("model", args[0]).Dur("timeout", timeout).Msg("Running prediction")

	pred, err := b.SendAndWaitWithTimeout(ctx, timeout)
	if pred != nil {
		if perr := printPrediction(pred); perr != nil {
			return perr
		}
	}
	if err != nil || runOutDir == "" {
		return err
	}

	paths, err := saveOutputs(ctx, client, pred, runOutDir)
	for _, p := range paths {
		fmt.Printf("Saved %s\n", p)
	}
	return err
}

// saveOutputs downloads every file in pred's output into dir. Repeated
// filenames are prefixed with their position in the output.
func saveOutputs(ctx context.Context, c *replicate.Client, pred *replicate.Prediction, dir string) ([]string, error) {
	outputs := pred.FileOutputs()
	if len(outputs) == 0 {
		logger.Warn().Str("id", pred.ID).Msg("Prediction output contains no files")
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	seen := make(map[string]bool, len(outputs))
	for i, out := range outputs {
		name := out.Filename
		if seen[name] {
			name = fmt.Sprintf("%d-%s", i, name)
		}
		seen[name] = true

		dst := filepath.Join(dir, name)
		if err := c.SaveOutput(ctx, &out, dst); err != nil {
			return paths, fmt.Errorf("failed to save %s: %w", out.URL, err)
		}
		logger.Debug().Str("path", dst).Str("content_type", out.ContentType).Int64("size", out.Size).Msg("Saved output")
		paths = append(paths, dst)
	}
	return paths, nil
}

// parseInputs turns key=value pairs into model input.
func parseInputs(pairs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", pair)
		}
		inputs[key] = parseValue(value)
	}
	return inputs, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// parseFileFlag splits key=path[@strategy]. An @ suffix that is not a known
// strategy is kept as part of the path.
func parseFileFlag(raw string, def fileinput.Strategy) (string, fileinput.Input, fileinput.Strategy, error) {
	key, value, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" || value == "" {
		return "", nil, def, fmt.Errorf("invalid file input %q: expected key=path", raw)
	}

	strategy := def
	if i := strings.LastIndex(value, "@"); i > 0 {
		if s, err := fileinput.ParseStrategy(value[i+1:]); err == nil && value[i+1:] != "" {
			strategy = s
			value = value[:i]
		}
	}

	return key, fileinput.Parse(value), strategy, nil
}
