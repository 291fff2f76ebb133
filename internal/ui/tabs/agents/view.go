package agents

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

// View renders the agents tab.
func (m *Model) View() string {
	if !m.loaded && m.err == nil {
		return styles.CenterBoth(m.spinner.ViewWithLabel(), m.width, m.height)
	}

	sections := []string{m.renderTitle()}

	switch {
	case m.confirming != nil:
		sections = append(sections, m.renderConfirm())
	case len(m.agents) == 0:
		sections = append(sections, m.renderEmptyState())
	default:
		sections = append(sections, m.renderTable(), m.renderSelected())
	}

	if m.err != nil {
		sections = append(sections, styles.ErrorTextStyle.Render("Error: "+m.err.Error())+
			styles.HelpStyle.Render("  (r to retry)"))
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.MarginBottom(0).Render("Agent Status")

	summary := fmt.Sprintf("Showing %d records on page %d", len(m.agents), m.pager.Page)
	if m.fetching {
		summary += "  " + m.spinner.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render(summary), "")
}

func (m *Model) renderTable() string {
	return styles.CardStyle.Width(max(60, m.width-6)).Render(m.table.View())
}

// renderSelected shows the badge and message of the highlighted agent.
func (m *Model) renderSelected() string {
	agent, ok := m.selected()
	if !ok {
		return ""
	}

	badge := styles.GetStatusStyle(agent.IsPaused).Render(agent.StatusLabel())
	line := badge + " " + styles.ValueStyle.Render(agentLabel(agent))
	if agent.AgentID == m.toggling {
		line += "  " + styles.StatusPendingStyle.Render("updating...")
	}
	if agent.PauseMessage != "" {
		line += "  " + styles.HelpStyle.Render(agent.PauseMessage)
	}
	return line
}

func (m *Model) renderEmptyState() string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.SubTitleStyle.Render("No agent status records found."),
		styles.HelpStyle.Render("Press r to refresh or [ to go back a page."),
		"",
	)
	return styles.CardStyle.Width(max(40, m.width-6)).Render(content)
}

// renderConfirm renders the pause/resume confirmation dialog.
func (m *Model) renderConfirm() string {
	agent := *m.confirming
	action := "Pause"
	if agent.IsPaused {
		action = "Resume"
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		styles.WarningTextStyle.Bold(true).Render(action+" agent?"),
		"",
		styles.ValueStyle.Render(agentLabel(agent)),
		styles.HelpStyle.Render(agent.AgentID),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			styles.ButtonActiveStyle.Render(" (Y)es "),
			"  ",
			styles.ButtonInactiveStyle.Render(" (N)o "),
		),
		"",
	)

	return styles.CenterHorizontal(
		styles.ModalContentStyle.Width(50).Render(content),
		m.width,
	)
}

// renderFooter renders the footer with keyboard shortcuts.
func (m *Model) renderFooter() string {
	var shortcuts []string
	if m.confirming != nil {
		shortcuts = []string{
			styles.HelpKeyStyle.Render("y") + " " + styles.HelpDescStyle.Render("confirm"),
			styles.HelpKeyStyle.Render("n") + " " + styles.HelpDescStyle.Render("cancel"),
		}
	} else {
		shortcuts = []string{
			styles.HelpKeyStyle.Render("p") + " " + styles.HelpDescStyle.Render("pause/resume"),
			styles.HelpKeyStyle.Render("[ ]") + " " + styles.HelpDescStyle.Render("page"),
			styles.HelpKeyStyle.Render("0") + " " + styles.HelpDescStyle.Render("first"),
			styles.HelpKeyStyle.Render("r") + " " + styles.HelpDescStyle.Render("refresh"),
		}
	}

	footer := ""
	for i, s := range shortcuts {
		if i > 0 {
			footer += styles.HelpSeparatorStyle.Render(" | ")
		}
		footer += s
	}

	return lipgloss.NewStyle().
		MarginTop(1).
		Foreground(styles.TextMuted).
		Render(footer)
}
