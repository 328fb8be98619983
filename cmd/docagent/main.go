package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docagent",
	Short: "Answer questions about a document store with a tool-calling model",
	Long: `docagent answers natural-language questions by letting a language model call
document search tools (findByKeyword, findBySimilarity, findByRelations)
served over JSON-RPC.

Without model credentials it runs in fallback mode: a single keyword search
for the question, whose result is printed.`,
	SilenceUsage: true,
}

var (
	verbose      bool
	configPath   string
	timeout      time.Duration
	providerName string
	modelName    string
	backendName  string
	maxTurns     int

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging to stderr")
	flags.StringVarP(&configPath, "config", "c", "", "Path to a config file (.yaml, .toml or .json)")
	flags.DurationVar(&timeout, "timeout", 60*time.Second, "Model request timeout")
	flags.StringVar(&providerName, "provider", "", "Model provider: azure, openai or stub (default: chosen from credentials)")
	flags.StringVar(&modelName, "model", "", "Model name for the openai provider")
	flags.StringVar(&backendName, "docstore", "", "Document backend: mock or sqlite")
	flags.IntVar(&maxTurns, "max-turns", 0, "Maximum model turns per question")

	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
	rootCmd.AddCommand(askCmd, robCmd, serveCmd, toolsCmd, versionCmd)
}

func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newDiagnosticLogger reports warnings and errors to stderr.
func newDiagnosticLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}
