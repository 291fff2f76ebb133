package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabCompletions is the ID for the chat completions tab.
	TabCompletions TabID = iota
	// TabAgents is the ID for the agent status tab.
	TabAgents
	// TabInfo is the ID for the info tab.
	TabInfo

	tabCount
)

// String returns the display name of the TabID.
func (t TabID) String() string {
	switch t {
	case TabCompletions:
		return "Completions"
	case TabAgents:
		return "Agents"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Key returns the stable lowercase name used by flags and persisted state.
func (t TabID) Key() string {
	return strings.ToLower(t.String())
}

// ParseTabID resolves a tab name as accepted by the --tab flag.
func ParseTabID(name string) (TabID, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t := TabCompletions; t < tabCount; t++ {
		if t.Key() == name {
			return t, true
		}
	}
	return 0, false
}

// TabNames returns the keys of all tabs in display order.
func TabNames() []string {
	names := make([]string, 0, int(tabCount))
	for t := TabCompletions; t < tabCount; t++ {
		names = append(names, t.Key())
	}
	return names
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs with a text input. While
// CapturesInput reports true, keys go to the tab instead of the global
// bindings, except ctrl+c.
type InputCapturer interface {
	CapturesInput() bool
}

// Closer is implemented by tabs that hold timers or in-flight requests.
type Closer interface {
	Close()
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Escape    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setTabKeys(km)
	km = setActionKeys(km)
	return km
}

func setTabKeys(k KeyMap) KeyMap {
	k.Tab1 = key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "completions"))
	k.Tab2 = key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "agents"))
	k.Tab3 = key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info"))
	k.NextTab = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
	k.ForceQuit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Tab bar styles
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	// Content styles
	Content lipgloss.Style
	Toast   lipgloss.Style

	// Common styles
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)

	return s
}

// Model is the main application model.
type Model struct {
	// Shared state
	state    *State
	services *services.Manager
	styles   Styles
	keymap   KeyMap

	// Service subscription
	eventChannel chan services.ServiceEvent

	// Tab management
	tabs []Tab

	// UI components
	spinner spinner.Model

	activeTab TabID

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool
	closed   bool
}

// NewModel initializes a new application model. mgr may be nil in tests.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabCompletions,
		tabs:      make([]Tab, int(tabCount)),
		state:     NewState(),
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model, indexed by TabID.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// SetActiveTab selects the tab shown first.
func (m *Model) SetActiveTab(tab TabID) {
	if tab >= 0 && int(tab) < len(m.tabs) {
		m.activeTab = tab
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model. Key and mouse input goes to
// the active tab only; every other message reaches all tabs so background
// fetches land in the tab that issued them.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd, handled := m.handleKeyMsg(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if !handled {
			cmds = append(cmds, m.updateActiveTab(msg))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		return m, m.updateActiveTab(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	cmds = append(cmds, m.updateAllTabs(msg)...)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearNotificationsMsg:
		m.state.ClearAllNotifications()
	case StartLoadingMsg:
		m.state.BeginLoading(msg.Resource)
	case StopLoadingMsg:
		m.state.EndLoading(msg.Resource)
	case ErrorMsg:
		text := DescribeError(msg.Error)
		if msg.Context != "" {
			text = msg.Context + ": " + text
		}
		cmds = append(cmds, notifyErrorCmd(text))
	case TabSwitchMsg:
		cmds = append(cmds, m.switchTab(msg.Tab))
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) switchTab(tab TabID) tea.Cmd {
	if tab < 0 || int(tab) >= len(m.tabs) {
		return nil
	}
	m.activeTab = tab
	m.updateTabSizes()
	if m.services != nil {
		return saveActiveTabCmd(m.services, tab)
	}
	return nil
}

func tabSwitchCmd(tab TabID) tea.Cmd {
	return func() tea.Msg { return TabSwitchMsg{Tab: tab} }
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateAllTabs(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	for i, tab := range m.tabs {
		if tab == nil {
			continue
		}
		var cmd tea.Cmd
		m.tabs[i], cmd = tab.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-3)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) activeCapturesInput() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	c, ok := m.tabs[m.activeTab].(InputCapturer)
	return ok && c.CapturesInput()
}

// handleKeyMsg handles global keybindings. It reports whether the key was
// consumed; unconsumed keys go to the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		return m.quit(), true
	}
	if m.activeCapturesInput() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}
		return nil, false

	case key.Matches(msg, m.keymap.Tab1):
		return tabSwitchCmd(TabCompletions), true

	case key.Matches(msg, m.keymap.Tab2):
		return tabSwitchCmd(TabAgents), true

	case key.Matches(msg, m.keymap.Tab3):
		return tabSwitchCmd(TabInfo), true

	case key.Matches(msg, m.keymap.NextTab):
		if m.showHelp || len(m.tabs) == 0 {
			return nil, true
		}
		return tabSwitchCmd(TabID((int(m.activeTab) + 1) % len(m.tabs))), true

	case key.Matches(msg, m.keymap.PrevTab):
		if m.showHelp || len(m.tabs) == 0 {
			return nil, true
		}
		return tabSwitchCmd(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs))), true
	}

	return nil, m.showHelp
}

func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

// Close releases every tab's timers and in-flight requests. It is safe to
// call more than once.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, tab := range m.tabs {
		if c, ok := tab.(Closer); ok {
			c.Close()
		}
	}
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.ConfigReloadedEvent:
		return notifyInfoCmd("Configuration reloaded")

	case services.AgentPauseFlippedEvent:
		var cmds []tea.Cmd
		for _, flip := range e.Flips {
			cmds = append(cmds, notifyWarningCmd(describeFlip(flip)))
		}
		return tea.Batch(cmds...)

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func describeFlip(flip models.PauseFlip) string {
	name := flip.Agent.AgentName
	if name == "" {
		name = flip.Agent.AgentID
	}
	if flip.Agent.IsPaused {
		return fmt.Sprintf("Agent %s was paused elsewhere", name)
	}
	return fmt.Sprintf("Agent %s was resumed elsewhere", name)
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	mainLines = padLines(mainLines, y+len(overlayLines))

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

// padLines extends lines with blank rows up to n so overlays on a short view
// stay visible.
func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i := range m.tabs {
		name := TabID(i).String()
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)
	startY := 2
	mainLines = padLines(mainLines, startY+len(toastLines))

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-3        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("General"))
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		tabHelp := m.tabs[m.activeTab].ShortHelp()
		if len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.activeTab)))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.activeTab,
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}
