package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/go-replicate/config"
	"github.com/s0up4200/go-replicate/filter"
	"github.com/s0up4200/go-replicate/replicate"
)

var (
	cfgFile  string
	logLevel string
	jsonOut  bool

	cfg     *config.Config
	logger  zerolog.Logger
	client  *replicate.Client
	filters *filter.Manager

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run models and manage files on Replicate",
	Long: `replicate is a command line client for the Replicate API.

It creates predictions with local or remote file inputs, waits for them to
finish and lists, filters and deletes uploaded files and past predictions.
The API token is read from the config file or REPLICATE_API_TOKEN.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// SetVersion records build information shown by --version.
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = fmt.Sprintf("%s (built %s, %s)", version, buildTime, replicate.UserAgent)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, ~/.config/replicate/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(predictionsCmd)
	rootCmd.AddCommand(filesCmd)
}

// initializeApp loads the configuration and builds the client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger = setupLogger(cfg.Logging)

	filters = filter.NewManager()
	if err := filters.RegisterAll(cfg.Filters); err != nil {
		return fmt.Errorf("invalid filter in config: %w", err)
	}

	client, err = cfg.NewClient(logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	logger.Debug().
		Str("config", cfg.File).
		Str("base_url", cfg.BaseURL).
		Int("max_retries", cfg.Retry.MaxRetries).
		Dur("request_timeout", cfg.Timeout.Request).
		Msg("Client ready")

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveFilter turns a --filter flag into a filter, nil when unset.
func resolveFilter(ref string) (*filter.Filter, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	f, err := filters.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	logger.Debug().Str("filter", f.Expression()).Msg("Filtering results")
	return f, nil
}
