// Package agents provides the agent status tab: a paged table of agents with
// a pause/resume toggle.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/app"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/components"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

const resourceName = "agents"

// Source fetches agent statuses and toggles pause flags. *services.Manager
// implements it.
type Source interface {
	FetchAgentStatuses(ctx context.Context, limit, offset int, policy graphql.FetchPolicy) ([]models.AgentStatus, error)
	SetAgentPaused(ctx context.Context, agentID string, paused bool) (models.ToggleResult, error)
}

// keyMap defines the key bindings specific to the agents tab.
type keyMap struct {
	Toggle  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Next    key.Binding
	Prev    key.Binding
	First   key.Binding
	Refresh key.Binding
}

// defaultKeyMap returns the default key bindings for the agents tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause/resume"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "Y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
		Next: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev page"),
		),
		First: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "first page"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

// agentsLoadedMsg carries one page of agent statuses.
type agentsLoadedMsg struct {
	err    error
	agents []models.AgentStatus
	pager  paging.OffsetPager
	seq    uint64
}

// toggleDoneMsg carries the result of a pause flag update.
type toggleDoneMsg struct {
	err    error
	agent  models.AgentStatus
	result models.ToggleResult
	paused bool
}

// Model represents the agents tab state.
type Model struct {
	state  *app.State
	source Source

	table   table.Model
	spinner components.LoadingSpinner
	keys    keyMap

	pager  paging.OffsetPager
	agents []models.AgentStatus
	err    error
	seq    uint64
	cancel context.CancelFunc

	// toggling is the id of the agent whose toggle is in flight.
	toggling     string
	toggleCancel context.CancelFunc
	confirming   *models.AgentStatus

	width  int
	height int

	fetching bool
	loaded   bool
	closed   bool
}

// New creates a new agents model.
func New(state *app.State, source Source, cfg *config.Config) *Model {
	t := table.New(
		table.WithColumns(columnsFor(100)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Subtle).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Primary)
	s.Selected = s.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.BgAccent).
		Bold(true)
	t.SetStyles(s)

	return &Model{
		state:   state,
		source:  source,
		table:   t,
		spinner: components.NewSpinner("Loading agents..."),
		keys:    defaultKeyMap(),
		pager:   paging.NewOffsetPager(cfg.AgentPageSize),
	}
}

// Init loads the first page.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchCmd(m.pager.First(), graphql.CacheFirst),
		m.spinner.Tick(),
	)
}

// fetchCmd loads the page described by pager. The pager becomes current only
// when the page arrives.
func (m *Model) fetchCmd(pager paging.OffsetPager, policy graphql.FetchPolicy) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.seq++
	m.fetching = true
	m.state.BeginLoading(resourceName)

	seq := m.seq
	source := m.source
	return func() tea.Msg {
		agents, err := source.FetchAgentStatuses(ctx, pager.Limit, pager.Offset(), policy)
		return agentsLoadedMsg{seq: seq, pager: pager, agents: agents, err: err}
	}
}

// toggleCmd flips the pause flag of agent.
func (m *Model) toggleCmd(agent models.AgentStatus) tea.Cmd {
	if m.toggling != "" {
		return app.Notify(app.NotificationInfo, "toggle already in progress")
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.toggleCancel = cancel
	m.toggling = agent.AgentID
	m.updateTableData()

	paused := !agent.IsPaused
	source := m.source
	return func() tea.Msg {
		result, err := source.SetAgentPaused(ctx, agent.AgentID, paused)
		return toggleDoneMsg{agent: agent, paused: paused, result: result, err: err}
	}
}

// Update handles messages for the agents tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.confirming != nil {
			return m, m.handleConfirmKey(msg)
		}
		return m, m.handleKeyMsg(msg)

	case agentsLoadedMsg:
		return m, m.handleLoaded(msg)

	case toggleDoneMsg:
		return m, m.handleToggleDone(msg)

	case app.ServiceEventMsg:
		return m, m.handleServiceEvent(msg.Event)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		agent, ok := m.selected()
		if !ok {
			return nil
		}
		if m.toggling != "" {
			return app.Notify(app.NotificationInfo, "toggle already in progress")
		}
		m.confirming = &agent
		return nil

	case key.Matches(msg, m.keys.Next):
		if m.fetching || !m.pager.HasNext(len(m.agents)) {
			return nil
		}
		return m.fetchCmd(m.pager.Next(), graphql.CacheFirst)

	case key.Matches(msg, m.keys.Prev):
		if m.fetching || !m.pager.HasPrev() {
			return nil
		}
		return m.fetchCmd(m.pager.Prev(), graphql.CacheFirst)

	case key.Matches(msg, m.keys.First):
		if !m.pager.HasPrev() {
			return nil
		}
		return m.fetchCmd(m.pager.First(), graphql.CacheFirst)

	case key.Matches(msg, m.keys.Refresh):
		return m.fetchCmd(m.pager, graphql.NetworkOnly)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		agent := *m.confirming
		m.confirming = nil
		return m.toggleCmd(agent)
	case key.Matches(msg, m.keys.Cancel):
		m.confirming = nil
	}
	return nil
}

func (m *Model) handleLoaded(msg agentsLoadedMsg) tea.Cmd {
	if msg.seq != m.seq {
		return nil
	}
	m.fetching = false
	m.state.EndLoading(resourceName)

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		m.err = msg.err
		return app.Notify(app.NotificationError, app.DescribeError(msg.err))
	}

	m.err = nil
	m.loaded = true
	m.pager = msg.pager
	m.agents = msg.agents
	m.updateTableData()
	if m.table.Cursor() >= len(m.agents) {
		m.table.SetCursor(max(0, len(m.agents)-1))
	}
	return nil
}

func (m *Model) handleToggleDone(msg toggleDoneMsg) tea.Cmd {
	m.toggling = ""
	m.toggleCancel = nil
	m.updateTableData()

	name := agentLabel(msg.agent)
	switch {
	case msg.err != nil:
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		return app.Notify(app.NotificationError, app.DescribeError(msg.err))
	case msg.result.AffectedRows == 0:
		return app.Notify(app.NotificationWarning, fmt.Sprintf("No agent matched %s; nothing changed", name))
	case msg.paused:
		return app.Notify(app.NotificationSuccess, fmt.Sprintf("Agent %s paused", name))
	default:
		return app.Notify(app.NotificationSuccess, fmt.Sprintf("Agent %s resumed", name))
	}
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.ConfigReloadedEvent:
		if e.Config != nil && e.Config.AgentPageSize != m.pager.Limit && e.Config.AgentPageSize > 0 {
			return m.fetchCmd(paging.NewOffsetPager(e.Config.AgentPageSize), graphql.CacheFirst)
		}
	case services.QueriesInvalidatedEvent:
		for _, q := range e.Queries {
			if q == graphql.AgentStatuses.Name {
				return m.fetchCmd(m.pager, graphql.NetworkOnly)
			}
		}
	}
	return nil
}

// selected returns the agent under the table cursor.
func (m *Model) selected() (models.AgentStatus, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.agents) {
		return models.AgentStatus{}, false
	}
	return m.agents[i], true
}

// updateTableData rebuilds the table rows from the current page.
func (m *Model) updateTableData() {
	rows := make([]table.Row, 0, len(m.agents))
	for _, a := range m.agents {
		status := a.StatusLabel()
		if a.AgentID == m.toggling {
			status += " ..."
		}
		rows = append(rows, table.Row{
			a.AgentID,
			orDash(a.AgentName),
			status,
			a.MessageOrDash(),
			a.CreatedAt.Display(),
			a.UpdatedAt.Display(),
		})
	}
	m.table.SetRows(rows)
}

// columnsFor sizes the columns to width, giving the slack to the message.
// fixed covers the other columns, cell padding and the card frame.
func columnsFor(width int) []table.Column {
	const fixed = 18 + 18 + 10 + 19 + 19 + 12 + 10
	messageWidth := min(max(width-fixed, 16), 60)

	return []table.Column{
		{Title: "Agent ID", Width: 18},
		{Title: "Name", Width: 18},
		{Title: "Status", Width: 10},
		{Title: "Pause Message", Width: messageWidth},
		{Title: "Created", Width: 19},
		{Title: "Updated", Width: 19},
	}
}

// SetSize sets the available size for the agents tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(3, height-10))
	m.table.SetColumns(columnsFor(width))
}

// CapturesInput reports whether a confirmation prompt is open.
func (m *Model) CapturesInput() bool {
	return m.confirming != nil
}

// Close cancels in-flight requests.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	if m.toggleCancel != nil {
		m.toggleCancel()
	}
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.confirming != nil {
		return []key.Binding{m.keys.Confirm, m.keys.Cancel}
	}
	return []key.Binding{
		m.keys.Toggle,
		m.keys.Prev,
		m.keys.Next,
		m.keys.Refresh,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Toggle, m.keys.Confirm, m.keys.Cancel},
		{m.keys.Prev, m.keys.Next, m.keys.First, m.keys.Refresh},
	}
}

func agentLabel(a models.AgentStatus) string {
	if a.AgentName != "" {
		return a.AgentName
	}
	return a.AgentID
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
