package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a long-term memory by id",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	m, err := rt.Memory().LongTermMemory(cmd.Context(), args[0])
	if err != nil {
		exitErr("get", err)
	}
	printJSON(m)
}
