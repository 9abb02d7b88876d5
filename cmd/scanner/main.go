package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wms-platform/box-tracking-service/internal/scanner"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
)

const serviceName = "box-scanner"

type options struct {
	apiURL      string
	stationID   string
	operatorID  string
	catalogPath string
	logLevel    string
	debounce    time.Duration
	timeout     time.Duration
	noColor     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "scanner",
		Short: "Box tracking scan terminal",
		Long: `Scan terminal for the box tracking line.

The scan command runs the interactive station terminal against the API.
decode, encode and split work offline.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", getEnv("SCANNER_API_URL", "http://localhost:8030"), "box tracking API base URL")
	flags.StringVar(&opts.stationID, "station", getEnv("SCANNER_STATION", ""), "station this terminal scans for")
	flags.StringVar(&opts.operatorID, "operator", getEnv("SCANNER_OPERATOR", ""), "operator id sent with submissions")
	flags.StringVar(&opts.catalogPath, "catalog", getEnv("CATALOG_PATH", ""), "catalog file, built-in catalog when empty")
	flags.StringVar(&opts.logLevel, "log-level", getEnv("LOG_LEVEL", "warn"), "log level")
	flags.DurationVar(&opts.debounce, "debounce", scanner.DefaultDebounce, "quiescence window before a scan is looked up")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "API request timeout")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(encodeCmd())
	rootCmd.AddCommand(splitCmd(opts))
	rootCmd.AddCommand(scanCmd(opts))

	return rootCmd
}

func newLogger(opts *options) *logging.Logger {
	config := logging.DefaultConfig(serviceName)
	config.Level = logging.LogLevel(opts.logLevel)
	config.Output = os.Stderr
	return logging.New(config)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
