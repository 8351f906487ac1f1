package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/memory"
	"github.com/rcliao/agentcore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List long-term memories",
		Long: "List long-term memories by confidence. With --entity and without --peek the read counts as " +
			"a retrieval and updates access bookkeeping.",
		Run: runList,
	}

	cmd.Flags().StringP("entity", "e", "", "Filter by entity")
	cmd.Flags().StringP("category", "c", "", "Filter by category")
	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("peek", false, "Do not update access bookkeeping")
	cmd.Flags().Bool("all", false, "Include superseded memories (implies --peek)")
	cmd.Flags().Bool("ids-only", false, "Only output memory ids")

	RootCmd.AddCommand(cmd)

	entities := &cobra.Command{
		Use:   "entities",
		Short: "List entities with current memory counts",
		Run:   runEntities,
	}
	RootCmd.AddCommand(entities)
}

func runList(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	peek, _ := cmd.Flags().GetBool("peek")
	all, _ := cmd.Flags().GetBool("all")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	rt, stop := openRuntime(cmd)
	defer stop()

	var (
		mems []model.LongTermMemory
		err  error
	)
	if entity != "" && category == "" && !peek && !all {
		mems, err = rt.Memory().GetLongTermMemories(cmd.Context(), entity, limit)
	} else {
		mems, err = rt.Memory().PeekLongTermMemories(cmd.Context(), memory.ListParams{
			EntityID:          entity,
			Category:          model.Category(category),
			Limit:             limit,
			IncludeSuperseded: all,
		})
	}
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, m := range mems {
			fmt.Println(m.ID)
		}
		return
	}
	if formatFlag == "text" {
		for _, m := range mems {
			fmt.Printf("%s  %-10s %.2f  %s\n", m.ID, m.Category, m.Confidence, m.Content)
		}
		return
	}
	printJSON(mems)
}

type entityCount struct {
	EntityID string `json:"entity_id"`
	Memories int    `json:"memories"`
}

func runEntities(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	mems, err := rt.Memory().PeekLongTermMemories(cmd.Context(), memory.ListParams{})
	if err != nil {
		exitErr("entities", err)
	}
	counts := map[string]int{}
	for _, m := range mems {
		counts[m.EntityID]++
	}
	out := make([]entityCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, entityCount{EntityID: id, Memories: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	printJSON(out)
}
