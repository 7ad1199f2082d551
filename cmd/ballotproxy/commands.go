package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ballotproxy/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ballotproxy",
		Short:         "Upgradeable voting service behind a delegating proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newWorkerCommand(), newCallCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and relay the outbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Println("ballotproxy api starting")
			app, err := bootstrap.BuildAPI(ctx)
			if err != nil {
				return fmt.Errorf("bootstrap api: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Printf("api shutdown close failed: %v", err)
				}
			}()
			return app.Run(ctx)
		},
	}
}

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Relay committed events from the outbox to the event bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Println("ballotproxy worker starting")
			app, err := bootstrap.BuildWorker(ctx)
			if err != nil {
				return fmt.Errorf("bootstrap worker: %w", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Printf("worker shutdown close failed: %v", err)
				}
			}()
			return app.Run(ctx)
		},
	}
}

const callExample = `  ballotproxy call --caller 0xowner createSession '{"duration_seconds":3600,"topics":["a","b"],"title":"poll"}'
  ballotproxy call --caller 0xvoter vote '{"session_id":1,"topic_index":0}'
  ballotproxy call getImplementation`

func newCallCommand() *cobra.Command {
	var caller string
	cmd := &cobra.Command{
		Use:     "call <method> [json-args]",
		Short:   "Submit one call to the proxy and print its receipt",
		Example: callExample,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload json.RawMessage
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("json-args must be valid JSON")
				}
				payload = json.RawMessage(args[1])
			}
			return runCall(cmd.Context(), cmd, caller, args[0], payload)
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "identity the call runs as")
	return cmd
}

func runCall(ctx context.Context, cmd *cobra.Command, caller string, method string, payload json.RawMessage) error {
	app, err := bootstrap.BuildCall(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap call: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("call close failed: %v", err)
		}
	}()

	receipt, err := app.Call(ctx, caller, method, payload)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(receipt)
}
