package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rcliao/agentcore/internal/agent"
	"github.com/rcliao/agentcore/internal/capability"
	"github.com/rcliao/agentcore/internal/model"
	"github.com/rcliao/agentcore/internal/state"
)

func init() {
	ctxCmd := &cobra.Command{
		Use:   "context [text]",
		Short: "Compose the state providers would build for a message",
		Long:  "Compose state for a message without appending it to the room log.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}
	ctxCmd.Flags().StringP("entity", "e", "", "Speaker entity id (default: random)")
	ctxCmd.Flags().StringP("room", "r", "", "Room id (default: random)")
	ctxCmd.Flags().StringSliceP("providers", "p", nil, "Providers to run (default: all public)")
	RootCmd.AddCommand(ctxCmd)

	turn := &cobra.Command{
		Use:   "turn [text]",
		Short: "Process a message as a full turn",
		Long:  "Append the message to its room, compose state, run the requested actions and then the evaluators.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTurn,
	}
	turn.Flags().StringP("entity", "e", "", "Speaker entity id (required)")
	turn.Flags().StringP("room", "r", "", "Room id (required)")
	turn.Flags().StringSliceP("providers", "p", nil, "Providers to run (default: all public)")
	turn.Flags().StringSliceP("actions", "a", nil, "Actions to dispatch in order")
	turn.Flags().Bool("skip-evaluators", false, "Do not run evaluators")
	turn.MarkFlagRequired("entity")
	turn.MarkFlagRequired("room")
	RootCmd.AddCommand(turn)
}

type composed struct {
	MessageID string            `json:"message_id"`
	Providers []string          `json:"providers"`
	Values    map[string]any    `json:"values,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Text      string            `json:"text"`
}

func describeState(msgID string, st *state.State) composed {
	out := composed{
		MessageID: msgID,
		Providers: st.Providers(),
		Values:    st.Values(),
		Text:      st.Text(),
	}
	for name, err := range st.Errors() {
		if out.Errors == nil {
			out.Errors = map[string]string{}
		}
		out.Errors[name] = err.Error()
	}
	return out
}

func runContext(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	room, _ := cmd.Flags().GetString("room")
	providers, _ := cmd.Flags().GetStringSlice("providers")

	if entity == "" {
		entity = uuid.NewString()
	}
	if room == "" {
		room = uuid.NewString()
	}

	rt, stop := openRuntime(cmd)
	defer stop()

	msg := &model.Message{
		ID:        uuid.NewString(),
		AgentID:   rt.AgentID(),
		EntityID:  entity,
		RoomID:    room,
		Text:      strings.Join(args, " "),
		CreatedAt: time.Now().UTC(),
	}
	st, err := rt.Compose(cmd.Context(), msg, providers, nil, nil)
	if err != nil {
		exitErr("context", err)
	}

	if formatFlag == "text" {
		fmt.Println(st.Text())
		return
	}
	printJSON(describeState(msg.ID, st))
}

type invocationOut struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

func describeInvocations(invs []capability.Invocation) []invocationOut {
	out := make([]invocationOut, 0, len(invs))
	for _, inv := range invs {
		o := invocationOut{Name: inv.Name, Status: inv.Status.String(), Duration: inv.Duration.String()}
		if inv.Result != nil {
			o.Text = inv.Result.Text
			if inv.Result.Err != nil {
				o.Error = inv.Result.Err.Error()
			}
		}
		out = append(out, o)
	}
	return out
}

func runTurn(cmd *cobra.Command, args []string) {
	entity, _ := cmd.Flags().GetString("entity")
	room, _ := cmd.Flags().GetString("room")
	providers, _ := cmd.Flags().GetStringSlice("providers")
	actions, _ := cmd.Flags().GetStringSlice("actions")
	skipEval, _ := cmd.Flags().GetBool("skip-evaluators")

	rt, stop := openRuntime(cmd)
	defer stop()

	res, err := rt.ProcessMessage(cmd.Context(), model.Message{
		EntityID: entity,
		RoomID:   room,
		Text:     strings.Join(args, " "),
	}, agent.TurnOptions{
		Providers:      providers,
		Actions:        actions,
		SkipEvaluators: skipEval,
	})
	if err != nil {
		exitErr("turn", err)
	}

	printJSON(struct {
		State       composed        `json:"state"`
		Actions     []invocationOut `json:"actions"`
		Evaluations []invocationOut `json:"evaluations"`
	}{
		State:       describeState(res.Message.ID, res.State),
		Actions:     describeInvocations(res.Actions),
		Evaluations: describeInvocations(res.Evaluations),
	})
}
