package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/collab"
	"github.com/rcliao/agentcore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics for the agent",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)

	migrations := &cobra.Command{
		Use:   "migrations [plugin...]",
		Short: "Show the last applied schema migration per plugin",
		Run:   runMigrations,
	}
	RootCmd.AddCommand(migrations)
}

func runStats(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	stats, err := rt.Memory().Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}

func runMigrations(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	plugins := args
	if len(plugins) == 0 {
		plugins = rt.Plugins()
	}
	out := make([]collab.Migration, 0, len(plugins))
	for _, p := range plugins {
		m, err := rt.Store().GetLastMigration(cmd.Context(), p)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			exitErr("migrations", err)
		}
		out = append(out, *m)
	}
	printJSON(out)
}
