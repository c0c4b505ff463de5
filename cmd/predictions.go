package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/go-replicate/filter"
	"github.com/s0up4200/go-replicate/replicate"
)

var (
	predictionFilter string
	predictionLimit  int
	waitTimeout      time.Duration
)

// predictionsCmd groups prediction subcommands
var predictionsCmd = &cobra.Command{
	Use:     "predictions",
	Aliases: []string{"prediction", "p"},
	Short:   "Inspect, cancel and wait on predictions",
}

var predictionsGetCmd = &cobra.Command{
	Use:   "get <id>...",
	Short: "Show predictions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPredictionsGet,
}

var predictionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List predictions, newest first",
	Long: `List predictions, newest first, following every page.

--filter takes an expression or @name of a filter from the config file:

  replicate predictions list --filter 'Status == "failed" and CreatedAt > daysAgo(1)'
  replicate predictions list --filter 'ownedBy("stability-ai") and metric("predict_time") > 10'`,
	Args: cobra.NoArgs,
	RunE: runPredictionsList,
}

var predictionsCancelCmd = &cobra.Command{
	Use:   "cancel <id>...",
	Short: "Cancel running predictions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPredictionsCancel,
}

var predictionsWaitCmd = &cobra.Command{
	Use:   "wait <id>",
	Short: "Wait for a prediction to finish",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredictionsWait,
}

func init() {
	predictionsListCmd.Flags().StringVar(&predictionFilter, "filter", "", "filter expression or @name")
	predictionsListCmd.Flags().IntVarP(&predictionLimit, "limit", "n", 0, "stop after this many matches (0 for all)")
	predictionsWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 0, "give up after this long (default from predictions.wait_timeout)")

	predictionsCmd.AddCommand(predictionsGetCmd)
	predictionsCmd.AddCommand(predictionsListCmd)
	predictionsCmd.AddCommand(predictionsCancelCmd)
	predictionsCmd.AddCommand(predictionsWaitCmd)
}

func runPredictionsGet(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		pred, err := client.Predictions().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := printPrediction(pred); err != nil {
			return err
		}
	}
	return nil
}

func runPredictionsList(cmd *cobra.Command, args []string) error {
	f, err := resolveFilter(predictionFilter)
	if err != nil {
		return err
	}

	seq := client.Predictions().All(cmd.Context())
	if f != nil {
		seq = filter.Predictions(seq, f)
	}

	var matched []replicate.Prediction
	for pred, err := range seq {
		if err != nil {
			return err
		}
		matched = append(matched, pred)
		if !jsonOut {
			printPredictionLine(pred)
		}
		if predictionLimit > 0 && len(matched) >= predictionLimit {
			break
		}
	}

	if jsonOut {
		return printJSON(matched)
	}
	fmt.Printf("\n%s\n", plural(len(matched), "prediction"))
	return nil
}

func runPredictionsCancel(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		pred, err := client.Predictions().Cancel(cmd.Context(), id)
		if err != nil {
			return err
		}
		logger.Info().Str("id", pred.ID).Str("status", string(pred.Status)).Msg("Cancel requested")
	}
	return nil
}

func runPredictionsWait(cmd *cobra.Command, args []string) error {
	timeout := cfg.Predictions.WaitTimeout
	if cmd.Flags().Changed("timeout") {
		timeout = waitTimeout
	}

	pred, err := client.Predictions().Wait(cmd.Context(), args[0], timeout, cfg.Predictions.PollInterval)
	if pred != nil {
		if perr := printPrediction(pred); perr != nil {
			return perr
		}
	}
	return err
}
