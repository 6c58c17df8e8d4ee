package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwmkerr/shellrec/internal/config"
	"github.com/dwmkerr/shellrec/internal/console"
	"github.com/dwmkerr/shellrec/internal/mcp"
	"github.com/dwmkerr/shellrec/internal/scenario"
)

var version = "dev"

// exitConnect is the exit status for a connection-establishment failure,
// distinct from the generic failure status so wrappers can tell "start
// shellwright first" apart from a broken run.
const exitConnect = 2

type rootOptions struct {
	configPath  string
	contextName string
	serverURL   string
	outputDir   string
	host        string
	timeout     time.Duration
	verbose     bool
	noColor     bool

	settings *config.Settings
}

func (r *rootOptions) prepare() error {
	resolved, err := config.ResolveSettings(r.configPath, r.contextName, r.serverURL, r.outputDir, r.host, r.timeout)
	if err != nil {
		return err
	}
	r.settings = resolved
	return nil
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "shellrec",
		Short: "Records shellwright demos of the tmux save/restore cycle",
	}
	defaultConfig := os.Getenv("SHELLREC_CONFIG")
	if defaultConfig == "" {
		defaultConfig = config.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to shellrec config file (default $HOME/.shellrec/config)")
	rootCmd.PersistentFlags().StringVar(&opts.contextName, "context", "", "context name within the config (overrides currentContext)")
	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "shellwright endpoint URL (overrides config and SHELLWRIGHT_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.outputDir, "output", "", "artifact output directory (overrides config and SHELLWRIGHT_OUTPUT)")
	rootCmd.PersistentFlags().StringVar(&opts.host, "host", "", "SSH host alias for the demo machine (overrides config and DEMO_HOST)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-call timeout; defaults to config or 30s")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable wire-level debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable styled output")
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return opts.prepare()
	}

	rootCmd.AddCommand(newRecordCmd(opts))
	rootCmd.AddCommand(newDoctorCmd())

	if err := rootCmd.Execute(); err != nil {
		var connErr *mcp.ConnectError
		if errors.As(err, &connErr) {
			fmt.Fprintf(os.Stderr,
				"\nError: Cannot connect to shellwright at %s\nStart it first: npx -y @dwmkerr/shellwright --http --font-size 16 --cols 140 --rows 35\n",
				opts.settings.ServerURL)
			os.Exit(exitConnect)
		}
		log.Fatal(err)
	}
}

func newRecordCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record the save -> kill -> restore demo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Errors carry their own context; cobra's usage text would
			// only bury the diagnostic.
			cmd.SilenceUsage = true
			return runRecord(cmd.Context(), root.settings, root.verbose, root.noColor)
		},
	}
}

func runRecord(ctx context.Context, settings *config.Settings, verbose, noColor bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	con := console.New(os.Stdout, !noColor && console.StdoutIsTerminal())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	con.Info("shellwright", settings.ServerURL)
	con.Info("output", settings.OutputDir)
	con.Info("host", settings.Host)

	client := mcp.New(settings.ServerURL, mcp.WithLogger(logger))
	connectCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	err := client.Connect(connectCtx, "shellrec", version)
	cancel()
	if err != nil {
		return err
	}
	con.Success("Connected to shellwright")

	inv := scenario.NewInvoker(client, con)
	dl := scenario.NewDownloader(settings.OutputDir, con)
	director := scenario.NewDirector(inv, dl, con, settings.Host)
	if err := director.Run(ctx); err != nil {
		return err
	}

	con.Success(fmt.Sprintf("\nDemo recorded. Output in %s/", settings.OutputDir))
	return nil
}
