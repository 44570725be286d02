package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
)

var (
	indexProjectID string
	indexForce     bool
	indexWorkers   int
	indexDelete    bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Index a project tree",
	Long: `Index every supported file under <path> and print the run statistics as JSON.

Unchanged files are skipped unless --force is given. Without --project-id a
random id is generated and printed.

Examples:
  aethernexus index ./myproject --project-id myproject
  aethernexus index ./myproject --project-id myproject --force
  aethernexus index --delete --project-id myproject`,
	Args: func(cmd *cobra.Command, args []string) error {
		if indexDelete {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexProjectID, "project-id", "", "Project id (default: random UUID)")
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "Re-index files whose content is unchanged")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "Concurrent files (default from config, then CPU count)")
	indexCmd.Flags().BoolVar(&indexDelete, "delete", false, "Delete the project's index instead of indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	if indexDelete {
		if indexProjectID == "" {
			return fmt.Errorf("--delete requires --project-id")
		}
		res, err := a.Indexer.DeleteIndex(ctx, indexProjectID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}

	projectID := indexProjectID
	if projectID == "" {
		projectID = uuid.NewString()
	}
	workers := indexWorkers
	if workers == 0 {
		workers = cfg.Indexing.Workers
	}

	stats, err := a.Indexer.IndexProject(ctx, args[0], projectID, &indexer.Options{
		Force:   indexForce,
		Workers: workers,
		OnProgress: func(processed, total int) {
			a.Logger.Debug("indexing progress", "project_id", projectID, "processed", processed, "total", total)
		},
	})
	if stats != nil {
		if perr := printJSON(cmd.OutOrStdout(), stats); perr != nil {
			return perr
		}
	}
	return err
}
