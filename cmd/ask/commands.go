package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/raumania/assistant/config"
	"github.com/raumania/assistant/internal/app"
	"github.com/raumania/assistant/internal/infrastructure/chatbot"
	"github.com/raumania/assistant/internal/observability"
)

var (
	cfgFile   string
	serverURL string
	verbose   bool
	noColor   bool
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ask",
	Short: "Raumania shop assistant",
	Long: `Ask questions about the Raumania fragrance catalog: prices, variants and
brands are answered from the catalog exports, anything else goes to the
configured language model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		return config.LoadEnvFile()
	},
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Load the catalog and print its counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "", "ask a running service at this URL instead of answering in-process")

	rootCmd.AddCommand(catalogCmd)
}

// cliLogger stays quiet unless --verbose is set
func cliLogger(cfg *config.Config) zerolog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	if cfg != nil && verbose && cfg.Log.Level != "" {
		level = cfg.Log.Level
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "raumania-ask",
	})
}

func build(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	// One-shot runs never need the file watcher
	cfg.Catalog.Watch = false
	return app.New(ctx, cfg, cliLogger(cfg))
}

func runAsk(parent context.Context, question string) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if serverURL != "" {
		sp := startSpinner("Asking " + serverURL)
		answer := chatbot.NewClient(serverURL, cliLogger(nil)).Ask(ctx, question)
		sp.Stop()
		printAnswer(answer, "remote")
		return nil
	}

	a, err := build(ctx)
	if err != nil {
		printError("Failed to initialize: %v", err)
		return err
	}
	defer a.Close()

	sp := startSpinner("Thinking")
	reply, err := a.Assistant.Ask(ctx, question)
	sp.Stop()

	if err != nil {
		printError("%v", err)
		printAnswer(chatbot.ConnectionFailedMessage, "error")
		return err
	}
	if reply.Text == "" {
		printAnswer(chatbot.NoAnswerMessage, string(reply.Route))
		return nil
	}
	printAnswer(reply.Text, string(reply.Route))
	if verbose {
		printInfo("intent=%s fragment=%q", reply.Intent, reply.Fragment)
	}
	return nil
}

func runCatalog(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	a, err := build(ctx)
	if err != nil {
		printError("Failed to initialize: %v", err)
		return err
	}
	defer a.Close()

	sp := startSpinner("Loading catalog")
	snap, err := a.Catalog.Reload(ctx)
	sp.Stop()
	if err != nil {
		printError("%v", err)
		return err
	}

	c := snap.Catalog
	printSuccess("Catalog loaded (version %s)", c.Version)
	fmt.Printf("  Products: %d listed, %d total\n", len(c.Products), c.TotalProducts)
	fmt.Printf("  Brands:   %d listed, %d total\n", len(c.Brands), c.TotalBrands)
	fmt.Printf("  Entries:  %d\n", len(c.Entries))
	return nil
}
