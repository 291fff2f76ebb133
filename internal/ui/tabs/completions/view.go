package completions

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

const (
	chartHeight    = 6
	sparklineWidth = 24
)

// View renders the completions tab.
func (m *Model) View() string {
	sections := []string{m.renderHeader()}
	if m.showChart {
		sections = append(sections, m.renderChart())
	}
	sections = append(sections, m.viewport.View(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// layout sizes the viewport to the space left by the header, chart and
// footer, and loads the rendered cards into it.
func (m *Model) layout() {
	used := lipgloss.Height(m.renderHeader()) + 1
	if m.showChart {
		used += lipgloss.Height(m.renderChart())
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-used)
	m.viewport.SetContent(strings.Join(m.cards, "\n"))
}

func (m *Model) contentWidth() int {
	return max(20, m.width-4)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.MarginBottom(0).Render("Chat Completions")

	cursorLine := styles.HelpStyle.Render("Cursor ")
	if m.input.Focused() {
		cursorLine += styles.FocusedStyle.Render("> ") + m.input.View()
	} else {
		cursorLine += styles.BlurredStyle.Render("  ") + m.input.View()
	}
	if m.inputErr != "" {
		cursorLine += "  " + styles.ErrorTextStyle.Render(m.inputErr)
	}

	items := m.controller.Items()
	stats := []string{
		components.RenderStat("records", len(items)),
		components.RenderStat("total cost", styles.CostStyle.Render(formatCost(models.TotalCost(items).String()))),
		components.RenderStat("cursor", cursorLabel(m.controller.Cursor())),
	}
	if len(items) > 0 {
		_, latency := chartSeries(items)
		stats = append(stats, components.RenderStat("latency", components.RenderSparkline(latency, sparklineWidth)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		cursorLine,
		strings.Join(stats, styles.HelpSeparatorStyle.Render("  │  ")),
	)
}

func (m *Model) renderChart() string {
	items := m.controller.Items()
	cost, latency := chartSeries(items)
	chartWidth := max(20, (m.width-24)/2)

	return components.RenderSideBySide(
		components.RenderLineChart(cost, chartWidth, chartHeight, "Cost per request ($)", asciigraph.Green),
		components.RenderLineChart(latency, chartWidth, chartHeight, "Total time (ms)", asciigraph.Blue),
		m.width,
	)
}

func (m *Model) renderFooter() string {
	switch {
	case m.controller.Fetching():
		return m.spinner.ViewWithLabel()
	case m.controller.Err() != nil:
		retry := "  (r to retry)"
		if m.controller.LastMode() == paging.Append {
			retry = "  (m to retry)"
		}
		return styles.ErrorTextStyle.Render("Error: "+m.controller.Err().Error()) +
			styles.HelpStyle.Render(retry)
	case m.controller.Exhausted() && m.controller.Len() == 0:
		return styles.HelpStyle.Render(fmt.Sprintf("No chat completions at or below cursor %s.", cursorLabel(m.controller.Cursor())))
	case m.controller.Exhausted():
		return styles.HelpStyle.Render("end of results")
	default:
		return styles.HelpStyle.Render("scroll down or press m for more")
	}
}

// renderCard renders one chat completion as a bordered card.
func renderCard(c models.ChatCompletion, width int) string {
	inner := max(20, width-8)

	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render(fmt.Sprintf("#%d", c.ID)))
	rows = append(rows, renderField("Start", c.StartTime.Display()))
	rows = append(rows, renderField("End", c.EndTime.Display()))
	rows = append(rows, renderField("Total time", fmt.Sprintf("%.0f ms", c.TotalTime)))
	rows = append(rows, renderField("Model", orDash(c.ModelID)))
	rows = append(rows, renderField("Agent", orDash(c.AgentName)))
	rows = append(rows, styles.LabelStyle.Render("Cost")+styles.CostStyle.Render(formatCost(c.Cost.String())))
	rows = append(rows, "")
	rows = append(rows, styles.SubTitleStyle.MarginBottom(0).Render("Request"))
	rows = append(rows, components.RenderPayload(models.FormatPayload(string(c.Request)), inner))
	rows = append(rows, "")
	rows = append(rows, styles.SubTitleStyle.MarginBottom(0).Render("Response"))
	rows = append(rows, components.RenderPayload(models.FormatPayload(string(c.Response)), inner))

	return styles.CardStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func renderField(label, value string) string {
	return styles.LabelStyle.Render(label) + styles.ValueStyle.Render(value)
}

// chartSeries returns per-record cost and latency, oldest first.
func chartSeries(items []models.ChatCompletion) (cost, latency []float64) {
	cost = make([]float64, 0, len(items))
	latency = make([]float64, 0, len(items))
	for _, c := range items {
		cost = append(cost, c.Cost.InexactFloat64())
		latency = append(latency, c.TotalTime)
	}
	slices.Reverse(cost)
	slices.Reverse(latency)
	return cost, latency
}

func cursorLabel(cursor int64) string {
	if cursor >= paging.MaxCursor {
		return "latest"
	}
	return fmt.Sprintf("%d", cursor)
}

func formatCost(amount string) string {
	return "$" + amount
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
