package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/config"
	"github.com/finn-wa/grocy-trolley-sub000/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	storeCode      string
	nonInteractive bool
	stockFlag      bool
	cfg            *config.Config
	logger         *zerolog.Logger
	shutdown       func(context.Context) error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grocy-trolley",
	Short: "Grocy Trolley - import supermarket purchases into Grocy",
	Long: `A CLI tool for importing products from New Zealand supermarkets into a Grocy
inventory. Products from the trolley, saved lists, past orders, receipts and
scanned barcodes are matched against products imported earlier, created in
Grocy with the right quantity units, and optionally stocked.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return execute(rootCmd)
}

// execute runs cmd and flushes telemetry afterwards, including when the
// command failed.
func execute(cmd *cobra.Command) error {
	defer flushTelemetry()
	return cmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeCode, "store", "PNS", "Store code: PNS or NW")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; skip anything that needs a choice")
	rootCmd.PersistentFlags().BoolVar(&stockFlag, "stock", false, "Post stock for imported products without asking")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	if cfg == nil {
		return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
	}
	if cmd.Flags().Changed("non-interactive") {
		cfg.Import.NonInteractive = nonInteractive
	}
	if cmd.Flags().Changed("stock") {
		cfg.Import.Stock = stockFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var err error
	shutdown, err = telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}
	return nil
}

func flushTelemetry() {
	if shutdown == nil {
		return
	}
	fn := shutdown
	shutdown = nil
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil && logger != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Logs go to stderr so prompts and reports on stdout stay readable
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
