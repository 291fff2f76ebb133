// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string, color asciigraph.AnsiColor) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	// asciigraph needs two points to draw a line.
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(color),
	)
}

// RenderSideBySide places two charts next to each other when the width
// allows it, otherwise stacks them.
func RenderSideBySide(left, right string, width int) string {
	if lipgloss.Width(left)+lipgloss.Width(right)+4 > width {
		return lipgloss.JoinVertical(lipgloss.Left, left, "", right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Sample values to fit width
	var result strings.Builder
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := int((val / maxVal) * float64(len(sparkChars)-1))
		normalized = max(0, min(normalized, len(sparkChars)-1))
		result.WriteRune(sparkChars[normalized])
	}

	return result.String()
}

// RenderStat renders a "label value" pair for summary lines.
func RenderStat(label string, value any) string {
	return styles.HelpStyle.Render(label+" ") + styles.ValueStyle.Render(fmt.Sprint(value))
}
