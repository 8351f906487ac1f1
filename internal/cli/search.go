package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search an entity's memories by similarity",
		Long:  "Embed the query and rank the entity's current memories by cosine similarity. Requires an embedding provider.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("entity", "e", "", "Entity to search (required)")
	cmd.Flags().IntP("limit", "l", 10, "Max results")
	cmd.Flags().Float64("min-similarity", -1, "Minimum similarity (default: memory.min_similarity)")

	cmd.MarkFlagRequired("entity")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")
	minSim, _ := cmd.Flags().GetFloat64("min-similarity")
	query := strings.Join(args, " ")

	if minSim < 0 {
		_, cfg, err := loadConfig()
		if err != nil {
			exitErr("load config", err)
		}
		minSim = cfg.Memory.MinSimilarity
	}

	rt, stop := openRuntime(cmd)
	defer stop()

	results, err := rt.Memory().SearchLongTermMemories(cmd.Context(), entity, query, limit, minSim)
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	if formatFlag == "text" {
		for _, r := range results {
			fmt.Printf("%.3f  %s  %s\n", r.Similarity, r.ID, r.Content)
		}
		return
	}
	printJSON(results)
}
