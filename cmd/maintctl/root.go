package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/timmy/linemaint/internal/apiclient"
	"github.com/timmy/linemaint/internal/config"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/reportstore"
)

// version is set at build time via -ldflags.
var version = "dev"

// app holds the global flags and the store built from them.
type app struct {
	configPath string
	baseURL    string
	output     string
	timeout    time.Duration
	verbose    bool

	stderr io.Writer
	store  *reportstore.HTTPStore
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "maintctl",
		Short: "Drive production line failure reports through their lifecycle",
		Long: "maintctl talks to the maintenance API: report failures, record the\n" +
			"technician's arrival, start and close repairs, and attach photos.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to config file (default ./configs/config.yaml)")
	f.StringVar(&a.baseURL, "base-url", "", "Maintenance API base URL (overrides config)")
	f.StringVarP(&a.output, "output", "o", "json", "Output format: json or yaml")
	f.DurationVar(&a.timeout, "timeout", 0, "Request timeout (overrides config)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newCreateCmd(a),
		newArrivedCmd(a),
		newStartCmd(a),
		newUpdateCmd(a),
		newCloseCmd(a),
		newUploadCmd(a),
		newDeleteCmd(a),
	)
	return rootCmd
}

// connect builds the HTTP store from config and flags.
func (a *app) connect(cmd *cobra.Command) error {
	if a.output != "json" && a.output != "yaml" {
		return fmt.Errorf("unsupported output format %q (want json or yaml)", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	clientCfg := cfg.GetClientConfig()
	if a.baseURL != "" {
		clientCfg.BaseURL = a.baseURL
	}
	if a.timeout > 0 {
		clientCfg.Timeout = a.timeout
	}

	// Failures reach the user as the "Error: ..." line; the log only adds
	// detail with -v.
	level := "error"
	if a.verbose {
		level = "debug"
	}
	log := logger.New(&logger.Config{
		Level:       level,
		Format:      "text",
		Output:      a.stderr,
		ServiceName: "maintctl",
	})

	client := apiclient.New(clientCfg, apiclient.WithLogger(log))
	a.store = reportstore.NewHTTPStore(client)
	cmd.SetContext(logger.SetComponent(log.WithContext(cmd.Context()), "maintctl"))

	log.WithField(logger.FieldURL, client.URL("/")).Debug("Connected")
	return nil
}
