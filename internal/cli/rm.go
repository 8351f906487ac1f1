package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/model"
)

func init() {
	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a long-term memory",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}
	RootCmd.AddCommand(rm)

	supersede := &cobra.Command{
		Use:   "supersede <id> [content]",
		Short: "Replace a long-term memory with a corrected one",
		Long: "Store a replacement for the memory and mark the old one superseded. The replacement keeps the " +
			"old entity; category and confidence default to the old values.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSupersede,
	}
	supersede.Flags().StringP("category", "c", "", "Category of the replacement")
	supersede.Flags().Float64("confidence", -1, "Confidence of the replacement")
	RootCmd.AddCommand(supersede)
}

func runRm(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	if err := rt.Memory().DeleteLongTermMemory(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q}`+"\n", args[0])
}

func runSupersede(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	confidence, _ := cmd.Flags().GetFloat64("confidence")

	content := readContent(args[1:])
	if content == "" {
		exitErr("supersede", fmt.Errorf("content required (pass as argument or pipe to stdin)"))
	}

	rt, stop := openRuntime(cmd)
	defer stop()

	old, err := rt.Memory().LongTermMemory(cmd.Context(), args[0])
	if err != nil {
		exitErr("supersede", err)
	}
	next := model.LongTermMemory{
		EntityID:   old.EntityID,
		Category:   old.Category,
		Content:    content,
		Confidence: old.Confidence,
		Source:     "cli",
	}
	if category != "" {
		next.Category = model.Category(category)
	}
	if confidence >= 0 {
		next.Confidence = confidence
	}

	m, err := rt.Memory().SupersedeLongTermMemory(cmd.Context(), old.ID, next)
	if err != nil {
		exitErr("supersede", err)
	}
	fmt.Printf(`{"ok":true,"id":%q,"supersedes":%q}`+"\n", m.ID, old.ID)
}
