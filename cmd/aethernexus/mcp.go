package main

import (
	"github.com/spf13/cobra"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/mcp"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP tools over stdio",
	Long: `Run AetherNexus as a Model Context Protocol server on stdin/stdout.
Logs are written to stderr; stdout is reserved for the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.Logger.Info("starting MCP server", "version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)
	return mcp.NewServer(a.MCPDeps(), a.Logger).Serve(ctx)
}
