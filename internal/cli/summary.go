package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	summary := &cobra.Command{
		Use:   "summary <room>",
		Short: "Show the current session summary of a room",
		Args:  cobra.ExactArgs(1),
		Run:   runSummary,
	}
	RootCmd.AddCommand(summary)

	messages := &cobra.Command{
		Use:   "messages <room>",
		Short: "Show the most recent messages of a room",
		Args:  cobra.ExactArgs(1),
		Run:   runMessages,
	}
	messages.Flags().IntP("limit", "l", 10, "Max messages")
	RootCmd.AddCommand(messages)
}

func runSummary(cmd *cobra.Command, args []string) {
	rt, stop := openRuntime(cmd)
	defer stop()

	sum, err := rt.Memory().GetCurrentSessionSummary(cmd.Context(), args[0])
	if err != nil {
		exitErr("summary", err)
	}
	if formatFlag == "text" {
		fmt.Println(sum.Summary)
		return
	}
	printJSON(sum)
}

func runMessages(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	rt, stop := openRuntime(cmd)
	defer stop()

	msgs, err := rt.Memory().RecentMessages(cmd.Context(), args[0], limit)
	if err != nil {
		exitErr("messages", err)
	}
	if formatFlag == "text" {
		for _, m := range msgs {
			fmt.Printf("%s  %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"), m.EntityID, m.Text)
		}
		return
	}
	printJSON(msgs)
}
