package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/docagent/agent"
	"github.com/loopwork-ai/docagent/internal/console"
	"github.com/loopwork-ai/docagent/mcp"
)

var serverCmd string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question with the tool-calling loop",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		question := strings.Join(args, " ")
		out := cmd.OutOrStdout()
		reporter := console.New(out)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			client, err := a.client(ctx, serverCmd)
			if err != nil {
				return err
			}
			model, err := a.model()
			if err != nil {
				return err
			}
			if a.fallback() {
				fmt.Fprintln(out, "No model credentials found. Running a keyword search instead.")
			}

			loop := agent.NewLoop(client, model,
				agent.WithMaxTurns(a.cfg.MaxTurns),
				agent.WithLogger(a.logger),
				agent.WithReporter(reporter),
			)
			result, err := loop.Run(ctx, question)
			if err != nil {
				return err
			}
			if result.State == agent.StateFailed {
				return fmt.Errorf("model call failed: %w", result.Err)
			}
			return nil
		})
		return g.Wait()
	},
}

var robCmd = &cobra.Command{
	Use:   "rob [question]",
	Short: "Answer a question by classifying, searching once, then summarizing",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		question := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		client, err := a.client(ctx, serverCmd)
		if err != nil {
			return err
		}
		model, err := a.model()
		if err != nil {
			return err
		}
		if a.fallback() {
			fmt.Fprintln(out, "No model credentials found. Using a simulated answer.")
		}

		pipeline := agent.NewPipeline(client, model,
			agent.WithPipelineLogger(a.logger),
			agent.WithPipelineReporter(console.New(out)),
		)
		_, err = pipeline.Run(ctx, question)
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document tools over JSON-RPC on stdin and stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			server, err := a.server(ctx)
			if err != nil {
				return err
			}
			// Diagnostics always go to stderr so stdout carries only responses.
			logger := a.logger
			if !verbose {
				logger = newDiagnosticLogger()
			}
			transport := mcp.NewStdioTransport(os.Stdin, os.Stdout, logger)
			return transport.Run(ctx, server)
		})
		return g.Wait()
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool descriptors the server advertises",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		client, err := a.client(ctx, serverCmd)
		if err != nil {
			return err
		}
		if _, err := client.Initialize(ctx); err != nil {
			return err
		}
		tools, err := client.ListTools(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(mcp.ToolsListResponse{Tools: tools})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docagent %s\n", rootCmd.Version)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{askCmd, robCmd, toolsCmd} {
		cmd.Flags().StringVar(&serverCmd, "server-cmd", "", `Run the tool server as a subprocess (e.g. "docagent serve")`)
	}
}
