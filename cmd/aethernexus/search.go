package main

import (
	"github.com/spf13/cobra"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
)

var (
	searchMode      string
	searchProjectID string
	searchType      string
	searchLimit     int
	searchOffset    int
	searchThreshold float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed entities",
	Long: `Search indexed entities and print the response as JSON.

Modes:
  semantic  vector similarity (default)
  text      same as semantic
  graph     semantic seeds expanded with their graph neighbours

Examples:
  aethernexus search "user login"
  aethernexus search "user login" --mode graph --project-id myproject
  aethernexus search "config" --type function --threshold 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchMode, "mode", string(searcher.ModeSemantic), "Search mode: semantic, text or graph")
	searchCmd.Flags().StringVar(&searchProjectID, "project-id", "", "Restrict to one project")
	searchCmd.Flags().StringVar(&searchType, "type", "", "Restrict to one entity type")
	searchCmd.Flags().IntVar(&searchLimit, "limit", searcher.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "Results to skip")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", searcher.DefaultScoreThreshold, "Minimum similarity score")
}

func runSearch(cmd *cobra.Command, args []string) error {
	mode, err := searcher.ParseMode(searchMode)
	if err != nil {
		return err
	}

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

	threshold := searchThreshold
	resp, err := a.Searcher.Search(ctx, searcher.Request{
		Query:  args[0],
		Mode:   mode,
		Limit:  searchLimit,
		Offset: searchOffset,
		Filters: searcher.Filters{
			ProjectID:      searchProjectID,
			Type:           searchType,
			ScoreThreshold: &threshold,
		},
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
