package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the AetherNexus HTTP API. Indexing runs as background jobs;
search, graph and history endpoints are served under /api/v1.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server := api.NewServer(cfg.Addr(), a.APIDeps(), a.Logger)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "AetherNexus listening on http://%s\n", cfg.Addr())
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			a.Logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
		a.Logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("error during shutdown", "error", err)
			return err
		}
		a.Logger.Info("server stopped gracefully")
	}
	return nil
}
