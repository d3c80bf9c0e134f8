package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/let-userName-Brian/exempla-ai/internal/adapter/inbound/api"
	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

func newAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Start the API server",
		Long: `Start the HTTP API server.

The server provides endpoints for:
- Health checks
- Submitting datasets for embedding and polling their status
- Chatting over an embedded dataset

SIGINT and SIGTERM stop the listener, mark running embeddings as
interrupted and wait for them to drain before exiting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPIServer(cmd.Context())
		},
	}
}

func runAPIServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	factory := NewServiceFactory(cfg)
	coordinator := factory.CreateShutdownCoordinator(ctx)

	services, err := factory.CreateRegistry(ctx, coordinator, true)
	if err != nil {
		factory.Close()
		return err
	}

	server, err := api.NewServerBuilder(cfg).
		WithHealthService(factory.CreateHealthService()).
		WithEmbeddingService(services.EmbeddingService()).
		WithChatService(services.ChatService()).
		WithErrorHandler(api.NewDefaultErrorHandler()).
		WithDefaultMiddleware().
		Build()
	if err != nil {
		factory.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	// The listener stops before draining; connections stay open until draining
	// runs have written their terminal status.
	if err := coordinator.RegisterShutdownHook("http-server", server.Shutdown); err != nil {
		return err
	}
	if err := coordinator.RegisterReleaseHook("connections", func(context.Context) error {
		factory.Close()
		return nil
	}); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Start(startCtx); err != nil {
		factory.Close()
		return err
	}

	slogger.Info(ctx, "API server started", slogger.Fields{
		"address":    server.Address(),
		"provider":   cfg.Embedding.Provider,
		"collection": cfg.Pipeline.Collection,
	})

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		select {
		case err := <-server.Errors():
			serveErr <- err
			stop()
		case <-runCtx.Done():
		}
	}()

	// Run exits the process once a signal has been handled.
	coordinator.Run(runCtx)
	factory.Close()
	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newAPICmd())
}
