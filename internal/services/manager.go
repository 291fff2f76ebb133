// Package services provides service orchestration for the TUI.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/db"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services/records"
)

type (
	// ConfigReloadedEvent is emitted after the config file changed and the
	// new configuration was applied.
	ConfigReloadedEvent struct {
		Config *config.Config
	}

	// QueriesInvalidatedEvent is emitted after a mutation made cached query
	// results stale. Views showing one of Queries refetch network-only.
	QueriesInvalidatedEvent struct {
		Mutation string
		Queries  []string
	}

	// AgentPauseFlippedEvent is emitted when a fetch shows agents whose paused
	// flag changed since they were last seen.
	AgentPauseFlippedEvent struct {
		Flips []models.PauseFlip
	}

	// ErrorEvent is emitted when an error occurs in a background service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (ConfigReloadedEvent) isServiceEvent()     {}
func (QueriesInvalidatedEvent) isServiceEvent() {}
func (AgentPauseFlippedEvent) isServiceEvent()  {}
func (ErrorEvent) isServiceEvent()              {}

// Notifier shows a desktop notification.
type Notifier func(title, body string) error

func desktopNotify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNotifier replaces the desktop notifier.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// WithConfigOverrides registers a function applied to every reloaded
// configuration, so command-line flags keep precedence over the file.
func WithConfigOverrides(fn func(*config.Config)) Option {
	return func(m *Manager) { m.overrides = fn }
}

// WithoutConfigWatch disables reloading the config file on change.
func WithoutConfigWatch() Option {
	return func(m *Manager) { m.watch = false }
}

// Manager orchestrates services and event routing.
type Manager struct {
	cfg         *config.Config
	client      *graphql.Client
	records     *records.Service
	database    *db.DB
	watcher     *config.Watcher
	notify      Notifier
	overrides   func(*config.Config)
	stopChan    chan struct{}
	knownPaused map[string]bool
	subscribers []chan ServiceEvent
	mu          sync.RWMutex
	closeOnce   sync.Once
	watch       bool
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:         cfg,
		notify:      desktopNotify,
		stopChan:    make(chan struct{}),
		knownPaused: make(map[string]bool),
		watch:       true,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.client = graphql.NewClient(clientOptions(cfg))
	m.records = records.New(m.client)

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if m.watch && cfg.ConfigFile != "" {
		m.watcher, err = config.NewWatcher(cfg.ConfigFile, m.overrides)
		if err != nil {
			// Reload is a convenience; run without it
			logger.Warn("config watch disabled", "error", err)
		} else {
			go m.routeEvents()
		}
	}

	return m, nil
}

func clientOptions(cfg *config.Config) graphql.Options {
	return graphql.Options{
		Endpoint:     cfg.EndpointURL,
		APIKey:       cfg.APIKey,
		APIKeyHeader: cfg.APIKeyHeader,
		Timeout:      cfg.RequestTimeout,
		CacheTTL:     cfg.CacheTTL,

		RetryAttempts: cfg.InsertAttempts,
		RetryDelay:    cfg.InsertRetryDelay,
	}
}

// routeEvents applies config reloads and forwards them to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case ev := <-m.watcher.Events():
			m.handleReload(ev)
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleReload(ev config.ReloadEvent) {
	if ev.Err != nil {
		m.broadcast(ErrorEvent{Service: "config", Error: ev.Err})
		return
	}

	cfg := ev.Config
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()

	m.client.Reconfigure(clientOptions(cfg))
	m.broadcast(ConfigReloadedEvent{Config: cfg})
}

// Config returns the configuration currently in effect.
func (m *Manager) Config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// FetchChatCompletions returns one cursor page of chat completions.
func (m *Manager) FetchChatCompletions(ctx context.Context, cursor int64, limit int, policy graphql.FetchPolicy) ([]models.ChatCompletion, error) {
	page, err := m.records.ChatCompletions(ctx, cursor, limit, policy)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("chat completions fetch failed", "cursor", cursor, "error", err)
		}
		return nil, err
	}
	return page, nil
}

// FetchAgentStatuses returns one offset page of agent statuses and notifies
// about agents whose paused flag changed behind our back.
func (m *Manager) FetchAgentStatuses(ctx context.Context, limit, offset int, policy graphql.FetchPolicy) ([]models.AgentStatus, error) {
	page, err := m.records.AgentStatuses(ctx, limit, offset, policy)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("agent status fetch failed", "offset", offset, "error", err)
		}
		return nil, err
	}

	m.checkPauseFlips(page)
	return page, nil
}

func (m *Manager) checkPauseFlips(page []models.AgentStatus) {
	m.mu.Lock()
	flips := models.DetectPauseFlips(m.knownPaused, page)
	for _, a := range page {
		m.knownPaused[a.AgentID] = a.IsPaused
	}
	notifyEnabled := m.cfg.NotifyOnPause
	m.mu.Unlock()

	if len(flips) == 0 {
		return
	}

	m.broadcast(AgentPauseFlippedEvent{Flips: flips})

	if !notifyEnabled {
		return
	}
	for _, f := range flips {
		title := fmt.Sprintf("Agent %s: %s", f.Agent.StatusLabel(), agentLabel(f.Agent))
		body := "Resumed by another client."
		if f.Agent.IsPaused {
			body = "Paused by another client: " + f.Agent.MessageOrDash()
		}
		if err := m.notify(title, body); err != nil {
			logger.Debug("desktop notification failed", "error", err)
		}
	}
}

func agentLabel(a models.AgentStatus) string {
	if a.AgentName != "" {
		return a.AgentName
	}
	return a.AgentID
}

// SetAgentPaused sets an agent's paused flag, records the attempt in the
// audit journal and, on success, announces the invalidated queries.
func (m *Manager) SetAgentPaused(ctx context.Context, agentID string, paused bool) (models.ToggleResult, error) {
	requestID := uuid.NewString()
	ctx = graphql.WithRequestID(ctx, requestID)

	result, invalidated, err := m.records.SetAgentPaused(ctx, agentID, paused)

	audit := &models.ToggleAudit{
		RequestID:    requestID,
		AgentID:      agentID,
		Paused:       paused,
		AffectedRows: result.AffectedRows,
		ErrorKind:    graphql.Kind(err),
	}
	if err != nil {
		audit.Error = err.Error()
	}
	if dbErr := m.database.InsertToggleAudit(audit); dbErr != nil {
		logger.Error("failed to record toggle", "agent_id", agentID, "error", dbErr)
	}

	if err != nil {
		logger.Warn("toggle failed", "agent_id", agentID, "paused", paused, "request_id", requestID, "error", err)
		return models.ToggleResult{}, err
	}

	logger.Info("toggle applied", "agent_id", agentID, "paused", paused, "affected_rows", result.AffectedRows, "request_id", requestID)

	m.mu.Lock()
	for _, a := range result.Agents {
		m.knownPaused[a.AgentID] = a.IsPaused
	}
	m.mu.Unlock()

	if len(invalidated) > 0 {
		m.broadcast(QueriesInvalidatedEvent{Mutation: graphql.SetAgentPaused.Name, Queries: invalidated})
	}

	return result, nil
}

// LogChatCompletion records a chat completion. Transport failures are retried
// up to the configured number of attempts.
func (m *Manager) LogChatCompletion(ctx context.Context, in models.NewChatCompletion) (models.ChatCompletion, error) {
	stored, invalidated, err := m.records.InsertChatCompletion(ctx, in)
	if err != nil {
		logger.Error("failed to log chat completion", "model_id", in.ModelID, "agent", in.AgentName, "error", err)
		return models.ChatCompletion{}, err
	}

	logger.Info("chat completion logged", "id", stored.ID, "model_id", stored.ModelID, "cost", stored.Cost.String())
	if len(invalidated) > 0 {
		m.broadcast(QueriesInvalidatedEvent{Mutation: graphql.InsertChatCompletion.Name, Queries: invalidated})
	}
	return stored, nil
}

// RecentAudit returns the latest toggle attempts.
func (m *Manager) RecentAudit(limit int) ([]models.ToggleAudit, error) {
	return m.database.RecentToggleAudits(limit)
}

// SaveActiveTab persists the active tab name.
func (m *Manager) SaveActiveTab(name string) error {
	return m.database.SetUIState(db.KeyActiveTab, name)
}

// LoadActiveTab returns the persisted tab name, if any.
func (m *Manager) LoadActiveTab() (string, bool) {
	name, ok, err := m.database.GetUIState(db.KeyActiveTab)
	if err != nil {
		logger.Warn("failed to load active tab", "error", err)
		return "", false
	}
	return name, ok
}

// CacheStats returns the query cache counters.
func (m *Manager) CacheStats() graphql.CacheStats {
	return m.client.CacheStats()
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel. The
// command yields nil once the channel is closed.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ev
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if m.watcher != nil {
			if err := m.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		if m.database != nil {
			if err := m.database.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})

	return errors.Join(errs...)
}
