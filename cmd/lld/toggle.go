package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

// pauseSetter updates an agent's pause flag.
type pauseSetter interface {
	SetAgentPaused(ctx context.Context, agentID string, paused bool) (models.ToggleResult, error)
}

func newToggleCmd(opts *globalOptions, use string, paused bool) *cobra.Command {
	short := "Resume an agent"
	if paused {
		short = "Pause an agent"
	}

	return &cobra.Command{
		Use:   use + " <agent-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := opts.openManager(cmd, false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			ctx, cancel := commandContext(cmd)
			defer cancel()

			return setPaused(ctx, cmd.OutOrStdout(), mgr, args[0], paused)
		},
	}
}

// setPaused runs the toggle mutation and reports the outcome. Matching no
// agent is an error so scripts can detect typos.
func setPaused(ctx context.Context, w io.Writer, src pauseSetter, agentID string, paused bool) error {
	result, err := src.SetAgentPaused(ctx, agentID, paused)
	if err != nil {
		return err
	}
	if result.AffectedRows == 0 {
		return fmt.Errorf("no agent with id %q", agentID)
	}

	verb := "resumed"
	if paused {
		verb = "paused"
	}
	for _, a := range result.Agents {
		name := a.AgentName
		if name == "" {
			name = a.AgentID
		}
		fmt.Fprintf(w, "Agent %s %s\n", name, verb)
	}
	if len(result.Agents) == 0 {
		fmt.Fprintf(w, "Agent %s %s\n", agentID, verb)
	}
	return nil
}
