// Package info provides the info tab: effective configuration, cache
// statistics, recent toggle attempts and version details.
package info

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/app"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

const auditLimit = 10

// Source provides the data shown on the info tab. *services.Manager
// implements it.
type Source interface {
	Config() *config.Config
	CacheStats() graphql.CacheStats
	RecentAudit(limit int) ([]models.ToggleAudit, error)
}

// keyMap defines the key bindings specific to the info tab.
type keyMap struct {
	Refresh key.Binding
	Copy    key.Binding
	Up      key.Binding
	Down    key.Binding
}

// defaultKeyMap returns the default key bindings for the info tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy endpoint"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// snapshotMsg carries a fresh read of the info sources.
type snapshotMsg struct {
	cfg      *config.Config
	auditErr error
	audit    []models.ToggleAudit
	stats    graphql.CacheStats
}

// Model represents the info tab state.
type Model struct {
	state    *app.State
	source   Source
	copy     func(string) error
	keys     keyMap
	viewport viewport.Model

	config   *config.Config
	stats    graphql.CacheStats
	audit    []models.ToggleAudit
	auditErr error

	width  int
	height int
}

// New creates a new info model.
func New(state *app.State, source Source) *Model {
	return &Model{
		state:    state,
		source:   source,
		copy:     clipboard.WriteAll,
		config:   source.Config(),
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init loads the first snapshot.
func (m *Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m *Model) refreshCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		audit, err := source.RecentAudit(auditLimit)
		return snapshotMsg{
			cfg:      source.Config(),
			stats:    source.CacheStats(),
			audit:    audit,
			auditErr: err,
		}
	}
}

// Update handles messages for the info tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.refreshCmd()
		case key.Matches(msg, m.keys.Copy):
			return m, m.copyEndpoint()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.config = msg.cfg
		m.stats = msg.stats
		m.audit = msg.audit
		m.auditErr = msg.auditErr
		m.viewport.SetContent(m.renderContent())

	case app.TabSwitchMsg:
		if msg.Tab == app.TabInfo {
			return m, m.refreshCmd()
		}

	case app.ServiceEventMsg:
		return m, m.refreshCmd()
	}

	return m, nil
}

func (m *Model) copyEndpoint() tea.Cmd {
	if m.config == nil || m.config.EndpointURL == "" {
		return app.Notify(app.NotificationWarning, "No endpoint configured")
	}
	if err := m.copy(m.config.EndpointURL); err != nil {
		return app.Notify(app.NotificationError, "Copy failed: "+err.Error())
	}
	return app.Notify(app.NotificationSuccess, "Endpoint copied to clipboard")
}

// SetSize sets the available size for the info tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.viewport.SetContent(m.renderContent())
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Refresh,
		m.keys.Copy,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Refresh, m.keys.Copy},
		{m.keys.Up, m.keys.Down},
	}
}
