package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/app"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aethernexus",
	Short: "AetherNexus - knowledge graph indexing and hybrid retrieval",
	Long: `AetherNexus extracts entities and relations from a project tree, stores
their embeddings and graph, and answers semantic and graph-expanded queries.

Configuration is read from aethernexus.yaml (working directory or
~/.aethernexus), a .env file and the environment.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("AetherNexus version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file")
}

// loadConfig reads configuration honoring --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp loads configuration and wires every component. Logs go to logOut.
func openApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app.App, error) {
	logger, closer, err := app.NewLogger(cfg, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.New(ctx, cfg, logger, closer, version)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// stderr is where CLI logs go so stdout stays machine-readable
var stderr io.Writer = os.Stderr
