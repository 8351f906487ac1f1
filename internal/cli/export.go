package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories and summaries as JSON",
		Long:  "Export every long-term memory (superseded included) and session summary of the agent. Filter by entity with -e.",
		Run:   runExport,
	}

	cmd.Flags().StringP("entity", "e", "", "Filter by entity")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")

	rt, stop := openRuntime(cmd)
	defer stop()

	exp, err := rt.Memory().ExportAll(cmd.Context(), entity)
	if err != nil {
		exitErr("export", err)
	}
	printJSON(exp)
}
