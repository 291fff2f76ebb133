// Package format renders records for non-interactive output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

// Formats lists the accepted output format names.
var Formats = []string{"table", "plain", "json", "jsonl"}

// previewWidth bounds request/response previews in table and plain output.
const previewWidth = 60

// WriteCompletions writes chat completions to w in the requested format.
func WriteCompletions(w io.Writer, items []models.ChatCompletion, includeHeader bool, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeCompletionsTable(w, items, includeHeader)
	case "plain":
		return writeCompletionsPlain(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	case "jsonl":
		return writeJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteAgents writes agent statuses to w in the requested format.
func WriteAgents(w io.Writer, items []models.AgentStatus, includeHeader bool, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeAgentsTable(w, items, includeHeader)
	case "plain":
		return writeAgentsPlain(w, items, includeHeader)
	case "json":
		return writeJSON(w, items)
	case "jsonl":
		return writeJSONL(w, items)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeCompletionsPlain(w io.Writer, items []models.ChatCompletion, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "id\tstart_time\tend_time\ttotal_time_ms\tcost\tmodel_id\tagent_name\trequest\tresponse"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := strings.Join([]string{
			strconv.FormatInt(item.ID, 10),
			item.StartTime.Display(),
			item.EndTime.Display(),
			formatMillis(item.TotalTime),
			item.Cost.String(),
			item.ModelID,
			item.AgentName,
			preview(string(item.Request)),
			preview(string(item.Response)),
		}, "\t")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeCompletionsTable(w io.Writer, items []models.ChatCompletion, includeHeader bool) error {
	tw := newTableWriter(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignCenter},
		{Number: 5, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 6, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 7, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: previewWidth},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"ID", "Start", "Total (ms)", "Cost", "Model", "Agent", "Request"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.ID,
			item.StartTime.Display(),
			formatMillis(item.TotalTime),
			"$" + item.Cost.String(),
			item.ModelID,
			orDash(item.AgentName),
			preview(string(item.Request)),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "(no records)", "-", "-", "-", "-", "-"})
	} else {
		tw.AppendFooter(table.Row{"", "Total", "", "$" + models.TotalCost(items).String(), "", "", fmt.Sprintf("%d records", len(items))})
	}

	_ = tw.Render()
	return nil
}

func writeAgentsPlain(w io.Writer, items []models.AgentStatus, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "agent_id\tagent_name\tstatus\tpause_message\tcreated_at\tupdated_at"); err != nil {
			return err
		}
	}

	for _, item := range items {
		line := strings.Join([]string{
			item.AgentID,
			item.AgentName,
			item.StatusLabel(),
			escapeNewlines(item.MessageOrDash()),
			item.CreatedAt.Display(),
			item.UpdatedAt.Display(),
		}, "\t")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeAgentsTable(w io.Writer, items []models.AgentStatus, includeHeader bool) error {
	tw := newTableWriter(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignCenter},
		{Number: 4, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 40},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Agent ID", "Name", "Status", "Pause Message", "Created", "Updated"})
	}

	for _, item := range items {
		tw.AppendRow(table.Row{
			item.AgentID,
			orDash(item.AgentName),
			item.StatusLabel(),
			escapeNewlines(item.MessageOrDash()),
			item.CreatedAt.Display(),
			item.UpdatedAt.Display(),
		})
	}

	if len(items) == 0 {
		tw.AppendRow(table.Row{"-", "No agent status records found.", "-", "-", "-", "-"})
	}

	_ = tw.Render()
	return nil
}

func newTableWriter(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateHeader = true
	tw.Style().Options.DrawBorder = true
	return tw
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}

// preview collapses a payload to a single bounded line.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > previewWidth {
		return string(r[:previewWidth-1]) + "…"
	}
	return s
}

func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
