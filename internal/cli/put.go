package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a long-term memory",
		Long:  "Store a long-term memory about an entity. Content is taken from the arguments or from stdin when piped.",
		Run:   runPut,
	}

	cmd.Flags().StringP("entity", "e", "", "Entity the memory is about (required)")
	cmd.Flags().StringP("category", "c", string(model.CategorySemantic), "Category: semantic, episodic or procedural")
	cmd.Flags().Float64("confidence", 0.8, "Confidence in [0,1]")
	cmd.Flags().String("source", "cli", "Source recorded with the memory")
	cmd.Flags().String("meta", "", "JSON object stored as metadata")

	cmd.MarkFlagRequired("entity")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	category, _ := cmd.Flags().GetString("category")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	source, _ := cmd.Flags().GetString("source")
	meta, _ := cmd.Flags().GetString("meta")

	content := readContent(args)
	if content == "" {
		exitErr("put", fmt.Errorf("content required (pass as argument or pipe to stdin)"))
	}

	var metadata map[string]any
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			exitErr("parse --meta", err)
		}
	}

	rt, stop := openRuntime(cmd)
	defer stop()

	m, err := rt.Memory().StoreLongTermMemory(cmd.Context(), model.LongTermMemory{
		EntityID:   entity,
		Category:   model.Category(category),
		Content:    content,
		Confidence: confidence,
		Source:     source,
		Metadata:   metadata,
	})
	if err != nil {
		exitErr("put", err)
	}
	fmt.Printf(`{"ok":true,"id":%q,"entity":%q,"category":%q}`+"\n", m.ID, m.EntityID, m.Category)
}
