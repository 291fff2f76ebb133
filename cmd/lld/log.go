package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

// completionLogger records chat completions.
type completionLogger interface {
	LogChatCompletion(ctx context.Context, in models.NewChatCompletion) (models.ChatCompletion, error)
}

// logFlags are the record fields accepted on the command line.
type logFlags struct {
	file     string
	request  string
	response string
	model    string
	agent    string
	cost     string
	start    string
	end      string
}

func newLogCmd(opts *globalOptions) *cobra.Command {
	var f logFlags

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a chat completion",
		Long: `Record one chat completion. The record is read as JSON from --file
("-" for stdin) with the keys request, response, model_id, agent_name, cost,
start_time and end_time; field flags override the file.

Unreachable or failing endpoints are retried (insertAttempts, insertRetryDelay).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := buildCompletion(cmd.InOrStdin(), f, cmd.Flags().Changed)
			if err != nil {
				return err
			}

			mgr, err := opts.openManager(cmd, false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			ctx, cancel := commandContext(cmd)
			defer cancel()

			return logCompletion(ctx, cmd.OutOrStdout(), mgr, in)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.file, "file", "", `JSON record to read ("-" for stdin)`)
	flags.StringVar(&f.request, "request", "", "request payload")
	flags.StringVar(&f.response, "response", "", "response payload")
	flags.StringVar(&f.model, "model", "", "model id")
	flags.StringVar(&f.agent, "agent", "", "agent name")
	flags.StringVar(&f.cost, "cost", "", "cost in dollars")
	flags.StringVar(&f.start, "start", "", "start time (RFC 3339)")
	flags.StringVar(&f.end, "end", "", "end time (RFC 3339)")

	return cmd
}

// buildCompletion assembles the record from the JSON file, if any, and the
// flags that were set.
func buildCompletion(stdin io.Reader, f logFlags, changed func(string) bool) (models.NewChatCompletion, error) {
	var in models.NewChatCompletion

	if f.file != "" {
		r := stdin
		if f.file != "-" {
			file, err := os.Open(f.file)
			if err != nil {
				return in, fmt.Errorf("failed to open record: %w", err)
			}
			defer file.Close()
			r = file
		}
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return in, fmt.Errorf("failed to parse record: %w", err)
		}
	}

	if changed("request") {
		in.Request = f.request
	}
	if changed("response") {
		in.Response = f.response
	}
	if changed("model") {
		in.ModelID = f.model
	}
	if changed("agent") {
		in.AgentName = f.agent
	}
	if changed("cost") {
		cost, err := decimal.NewFromString(f.cost)
		if err != nil {
			return in, fmt.Errorf("invalid --cost value %q: %w", f.cost, err)
		}
		in.Cost = cost
	}
	for _, t := range []struct {
		name  string
		value string
		dst   **time.Time
	}{
		{"start", f.start, &in.StartTime},
		{"end", f.end, &in.EndTime},
	} {
		if !changed(t.name) {
			continue
		}
		ts, err := models.ParseTimestamp(t.value)
		if err != nil {
			return in, fmt.Errorf("invalid --%s value: %w", t.name, err)
		}
		*t.dst = &ts.Time
	}

	if in.Request == "" && in.Response == "" {
		return in, errors.New("nothing to record: pass --request/--response or --file")
	}
	return in, nil
}

func logCompletion(ctx context.Context, w io.Writer, src completionLogger, in models.NewChatCompletion) error {
	stored, err := src.LogChatCompletion(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Logged chat completion #%d\n", stored.ID)
	return nil
}
