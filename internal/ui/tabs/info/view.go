package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderContent() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderCacheCard(),
		m.renderAuditCard(),
		m.renderAboutCard(),
	)
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, cache and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

// renderConfigCard renders the effective configuration. The API key is
// always masked.
func (m *Model) renderConfigCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Configuration"))

	if cfg := m.config; cfg != nil {
		configFile := cfg.ConfigFile
		if configFile == "" {
			configFile = "(none)"
		}
		rows = append(rows,
			renderRow("Endpoint", cfg.EndpointURL),
			renderRow("API Key", cfg.MaskedAPIKey()),
			renderRow("Key Header", cfg.APIKeyHeader),
			renderRow("Page Size", fmt.Sprintf("%d", cfg.PageSize)),
			renderRow("Agent Page Size", fmt.Sprintf("%d", cfg.AgentPageSize)),
			renderRow("Debounce", cfg.DebounceDelay.String()),
			renderRow("Scroll Threshold", fmt.Sprintf("%d rows", cfg.ScrollThreshold)),
			renderRow("Request Timeout", cfg.RequestTimeout.String()),
			renderRow("Cache TTL", cfg.CacheTTL.String()),
			renderRow("Database", cfg.DatabasePath),
			renderRow("Config File", configFile),
			renderRow("Pause Alerts", fmt.Sprintf("%t", cfg.NotifyOnPause)),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	rows = append(rows, "", styles.HelpStyle.Render("Press 'c' to copy the endpoint"))

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderCacheCard() string {
	hitRate := "-"
	if total := m.stats.Hits + m.stats.Misses; total > 0 {
		hitRate = fmt.Sprintf("%.0f%%", float64(m.stats.Hits)/float64(total)*100)
	}

	rows := []string{
		styles.CardTitleStyle.Render("Query Cache"),
		renderRow("Entries", fmt.Sprintf("%d", m.stats.Entries)),
		renderRow("Hits", fmt.Sprintf("%d", m.stats.Hits)),
		renderRow("Misses", fmt.Sprintf("%d", m.stats.Misses)),
		renderRow("Hit Rate", hitRate),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderAuditCard lists the most recent pause/resume attempts.
func (m *Model) renderAuditCard() string {
	rows := []string{styles.CardTitleStyle.Render("Recent Toggles")}

	switch {
	case m.auditErr != nil:
		rows = append(rows, styles.ErrorTextStyle.Render("Audit journal unavailable: "+m.auditErr.Error()))
	case len(m.audit) == 0:
		rows = append(rows, styles.HelpStyle.Render("No toggles recorded yet"))
	}

	for _, a := range m.audit {
		action := "resume"
		if a.Paused {
			action = "pause"
		}

		outcome := styles.SuccessTextStyle.Render(fmt.Sprintf("%d row(s)", a.AffectedRows))
		if !a.Succeeded() {
			outcome = styles.ErrorTextStyle.Render(a.ErrorKind + ": " + a.Error)
		} else if a.AffectedRows == 0 {
			outcome = styles.WarningTextStyle.Render("no match")
		}

		rows = append(rows, fmt.Sprintf("%s  %-7s %-20s %s",
			styles.HelpStyle.Render(a.Timestamp.Local().Format("01-02 15:04:05")),
			action,
			a.AgentID,
			outcome,
		))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About " + version.Name),
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", version.Platform()),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderRow renders a key-value row.
func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	return labelStyle.Render(label+":") + " " + styles.ValueStyle.Render(value)
}
