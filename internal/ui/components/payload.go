package components

import (
	"strings"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

// RenderPayload renders a request or response body within width columns.
// Structured payloads are shown as an indented code block; anything else is
// wrapped as plain text with its line breaks kept. Only a zero-length body is
// shown as "(empty)"; whitespace is rendered as is.
func RenderPayload(p models.Payload, width int) string {
	if p.Text == "" {
		return styles.HelpStyle.Render("(empty)")
	}

	width = max(width, 20)
	text := strings.ReplaceAll(p.Text, "\t", "    ")

	if p.Structured {
		return styles.CodeBlockStyle.Width(width).Render(text)
	}
	return styles.RawTextStyle.Width(width).Render(text)
}
