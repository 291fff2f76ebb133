// Package completions provides the chat completions tab: an infinitely
// scrolling list of logged LLM exchanges with a debounced cursor input.
package completions

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/app"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/debounce"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/scroll"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/components"
)

const resourceName = "completions"

// Source fetches chat completion pages. *services.Manager implements it.
type Source interface {
	FetchChatCompletions(ctx context.Context, cursor int64, limit int, policy graphql.FetchPolicy) ([]models.ChatCompletion, error)
}

// keyMap defines the key bindings specific to the completions tab.
type keyMap struct {
	Cursor   key.Binding
	Apply    key.Binding
	Cancel   key.Binding
	Refresh  key.Binding
	LoadMore key.Binding
	Chart    key.Binding
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
}

// defaultKeyMap returns the default key bindings for the completions tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Cursor: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "set cursor"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply cursor"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave input"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		LoadMore: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "load more"),
		),
		Chart: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "toggle chart"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "bottom"),
		),
	}
}

// pageLoadedMsg carries the response to one controller request.
type pageLoadedMsg struct {
	err   error
	items []models.ChatCompletion
	seq   uint64
}

// cursorInputMsg carries a debounced cursor value.
type cursorInputMsg struct {
	text string
}

// Model represents the completions tab state.
type Model struct {
	state  *app.State
	source Source

	controller *paging.Controller[models.ChatCompletion]
	debouncer  *debounce.Debouncer
	sentinel   *scroll.Sentinel
	cancel     context.CancelFunc

	keys     keyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  components.LoadingSpinner

	cards     []string
	cardWidth int
	inputErr  string

	width  int
	height int

	resetPending bool
	showChart    bool
	closed       bool
}

// New creates a new completions model.
func New(state *app.State, source Source, cfg *config.Config) *Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "latest"
	input.CharLimit = 20
	input.Width = 20

	return &Model{
		state:      state,
		source:     source,
		controller: paging.NewController[models.ChatCompletion](cfg.PageSize),
		debouncer:  debounce.New(cfg.DebounceDelay),
		sentinel:   scroll.NewSentinel(cfg.ScrollThreshold),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
		input:      input,
		spinner:    components.NewSpinner("Loading page..."),
	}
}

// Init starts the first page load and the cursor input listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.startCmd(),
		m.waitForCursorCmd(),
		m.spinner.Tick(),
	)
}

// startCmd requests the newest page.
func (m *Model) startCmd() tea.Cmd {
	m.resetPending = true
	return m.fetchCmd(m.controller.Start(), graphql.CacheFirst)
}

// fetchCmd runs req in the background. A newer request cancels the context of
// the previous one; its late response is dropped by sequence number anyway.
func (m *Model) fetchCmd(req paging.Request, policy graphql.FetchPolicy) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state.BeginLoading(resourceName)

	source := m.source
	return func() tea.Msg {
		items, err := source.FetchChatCompletions(ctx, req.Cursor, req.Limit, policy)
		return pageLoadedMsg{seq: req.Seq, items: items, err: err}
	}
}

// waitForCursorCmd waits for the next debounced cursor value. It yields nil
// once the debouncer is closed.
func (m *Model) waitForCursorCmd() tea.Cmd {
	ch := m.debouncer.C()
	return func() tea.Msg {
		text, ok := <-ch
		if !ok {
			return nil
		}
		return cursorInputMsg{text: text}
	}
}

// Update handles messages for the completions tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input.Focused() {
			return m, m.handleInputKey(msg)
		}
		return m, m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, tea.Batch(cmd, m.observeScroll())

	case pageLoadedMsg:
		return m, m.handlePage(msg)

	case cursorInputMsg:
		return m, tea.Batch(m.applyCursor(msg.text), m.waitForCursorCmd())

	case app.ServiceEventMsg:
		return m, m.handleServiceEvent(msg.Event)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Apply):
		m.debouncer.Flush()
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Cancel):
		m.input.Blur()
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.debouncer.Push(m.input.Value())
	}
	return cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cursor):
		return m.input.Focus()

	case key.Matches(msg, m.keys.Refresh):
		m.resetPending = true
		m.inputErr = ""
		return m.fetchCmd(m.controller.Refresh(), graphql.NetworkOnly)

	case key.Matches(msg, m.keys.LoadMore):
		return m.loadMore()

	case key.Matches(msg, m.keys.Chart):
		m.showChart = !m.showChart
		m.layout()
		return m.observeScroll()

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m.observeScroll()

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m.observeScroll()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return tea.Batch(cmd, m.observeScroll())
}

// applyCursor resolves a debounced input value and restarts the list from
// it. Invalid input is reported inline and keeps the current cursor.
func (m *Model) applyCursor(text string) tea.Cmd {
	cursor, err := debounce.ResolveCursor(text)
	if err != nil {
		m.inputErr = fmt.Sprintf("Invalid cursor %q: enter a non-negative integer", text)
		return nil
	}

	m.inputErr = ""
	m.resetPending = true
	req := m.controller.Reset(cursor)
	m.refreshContent(true)
	return m.fetchCmd(req, graphql.CacheFirst)
}

func (m *Model) loadMore() tea.Cmd {
	req, ok := m.controller.LoadMore()
	if !ok {
		return nil
	}
	return m.fetchCmd(req, graphql.CacheFirst)
}

// observeScroll feeds the viewport position to the sentinel and loads the
// next page when the view just came near the bottom.
func (m *Model) observeScroll() tea.Cmd {
	if m.sentinel.Observe(m.viewport.YOffset, m.viewport.Height, m.viewport.TotalLineCount()) {
		return m.loadMore()
	}
	return nil
}

func (m *Model) handlePage(msg pageLoadedMsg) tea.Cmd {
	outcome := m.controller.Complete(msg.seq, msg.items, msg.err)
	if outcome == paging.Stale {
		return nil
	}
	m.state.EndLoading(resourceName)

	if outcome == paging.Failed {
		m.refreshContent(m.resetPending)
		m.resetPending = false
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		return app.Notify(app.NotificationError, app.DescribeError(msg.err))
	}

	full := m.resetPending
	m.resetPending = false
	m.refreshContent(full)
	if full {
		m.viewport.GotoTop()
	}

	// The new content may still leave the view near the bottom.
	m.sentinel.Rearm()
	return m.observeScroll()
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.ConfigReloadedEvent:
		if e.Config != nil {
			m.controller.SetPageSize(e.Config.PageSize)
			m.debouncer.SetDelay(e.Config.DebounceDelay)
			m.sentinel.SetThreshold(e.Config.ScrollThreshold)
		}
	case services.QueriesInvalidatedEvent:
		for _, q := range e.Queries {
			if q == graphql.ChatCompletions.Name {
				m.resetPending = true
				return m.fetchCmd(m.controller.Refresh(), graphql.NetworkOnly)
			}
		}
	}
	return nil
}

// refreshContent renders cards for the accumulated records. Unless full is
// set only records added since the last call are rendered.
func (m *Model) refreshContent(full bool) {
	items := m.controller.Items()
	width := m.contentWidth()
	if full || width != m.cardWidth || len(m.cards) > len(items) {
		m.cards = m.cards[:0]
		m.cardWidth = width
	}
	for _, item := range items[len(m.cards):] {
		m.cards = append(m.cards, renderCard(item, width))
	}
	m.layout()
}

// SetSize sets the available size for the completions tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.refreshContent(false)
}

// CapturesInput reports whether the cursor input has focus.
func (m *Model) CapturesInput() bool {
	return m.input.Focused()
}

// Close cancels the in-flight request and releases the debounce timer and
// scroll sentinel.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	m.debouncer.Close()
	m.sentinel.Detach()
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Cursor,
		m.keys.Refresh,
		m.keys.LoadMore,
		m.keys.Chart,
		m.keys.Bottom,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Cursor, m.keys.Apply, m.keys.Cancel},
		{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.Bottom},
		{m.keys.Refresh, m.keys.LoadMore, m.keys.Chart},
	}
}
