// Package main is the entry point for the llmlog dashboard. Without a
// subcommand it runs the interactive TUI; subcommands print records for
// scripts and toggle agent pause flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/app"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/services"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/tabs/agents"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/tabs/completions"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/ui/tabs/info"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/version"
)

const (
	minWidth  = 80
	minHeight = 20
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPath string
	endpoint   string
	pageSize   int
	debounce   time.Duration
	logLevel   string

	debounceSet bool
}

// overrides returns the flag values as a config override. It is applied on
// load and again on every config file reload.
func (o *globalOptions) overrides() func(*config.Config) {
	return func(cfg *config.Config) {
		if o.endpoint != "" {
			cfg.EndpointURL = o.endpoint
		}
		if o.pageSize > 0 {
			cfg.PageSize = o.pageSize
		}
		if o.debounceSet {
			cfg.DebounceDelay = o.debounce
		}
		if o.logLevel != "" {
			cfg.LogLevel = o.logLevel
		}
	}
}

// openManager loads configuration, starts logging and creates the service
// manager. watch enables config hot reload.
func (o *globalOptions) openManager(cmd *cobra.Command, watch bool) (*services.Manager, error) {
	o.debounceSet = cmd.Flags().Changed("debounce")

	cfg, err := config.LoadWith(o.configPath, o.overrides())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.LogPath, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	opts := []services.Option{services.WithConfigOverrides(o.overrides())}
	if !watch {
		opts = append(opts, services.WithoutConfigWatch())
	}
	mgr, err := services.NewManager(cfg, opts...)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, nil
}

func closeManager(mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", err)
	}
	logger.Close()
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var tab string

	root := &cobra.Command{
		Use:   "lld",
		Short: "Browse LLM chat-completion logs and pause or resume agents",
		Long: `lld is a terminal dashboard for a GraphQL backend that stores LLM
chat-completion logs and agent pause flags.

Keyboard shortcuts:
  1-3, Tab/Shift+Tab  Switch tabs (Completions, Agents, Info)
  /                   Set the completions cursor
  m, End              Load more completions
  g                   Toggle the cost/latency chart
  p, Space            Pause or resume the selected agent
  [ ]                 Previous/next agent page
  r                   Refresh
  ?                   Toggle help
  q, Ctrl+C           Quit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts, tab)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to the YAML config file")
	flags.StringVar(&opts.endpoint, "endpoint", "", "GraphQL endpoint URL")
	flags.IntVar(&opts.pageSize, "page-size", 0, "chat completions per page")
	flags.DurationVar(&opts.debounce, "debounce", 0, "cursor input debounce delay")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.Flags().StringVar(&tab, "tab", "", "tab to open ("+strings.Join(app.TabNames(), ", ")+")")

	root.AddCommand(newCompletionsCmd(opts))
	root.AddCommand(newAgentsCmd(opts))
	root.AddCommand(newToggleCmd(opts, "pause", true))
	root.AddCommand(newToggleCmd(opts, "resume", false))
	root.AddCommand(newLogCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lld: %v\n", err)
		os.Exit(1)
	}
}

// runTUI runs the interactive dashboard.
func runTUI(cmd *cobra.Command, opts *globalOptions, tab string) error {
	startTab, err := parseStartTab(tab)
	if err != nil {
		return err
	}
	if !isTerminal(os.Stdout) {
		return errors.New("the dashboard needs an interactive terminal; use the completions or agents commands for scripted output")
	}

	mgr, err := opts.openManager(cmd, true)
	if err != nil {
		return err
	}
	defer closeManager(mgr)

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && (w < minWidth || h < minHeight) {
		logger.Warn("terminal is smaller than recommended", "width", w, "height", h)
	}

	model := app.NewModel(mgr)
	state := model.GetState()
	cfg := mgr.Config()
	model.SetTabs([]app.Tab{
		completions.New(state, mgr, cfg),
		agents.New(state, mgr, cfg),
		info.New(state, mgr),
	})
	model.SetActiveTab(resolveStartTab(startTab, mgr))
	defer model.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	logger.Info("dashboard started", "version", version.GetVersion(), "endpoint", cfg.EndpointURL)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// parseStartTab validates the --tab flag. An empty value means "restore".
func parseStartTab(name string) (*app.TabID, error) {
	if name == "" {
		return nil, nil
	}
	id, ok := app.ParseTabID(name)
	if !ok {
		return nil, fmt.Errorf("unknown tab %q (want one of %s)", name, strings.Join(app.TabNames(), ", "))
	}
	return &id, nil
}

// activeTabStore is the part of the manager that remembers the last tab.
type activeTabStore interface {
	LoadActiveTab() (string, bool)
}

// resolveStartTab picks the flag value, else the remembered tab, else the
// completions tab.
func resolveStartTab(flag *app.TabID, store activeTabStore) app.TabID {
	if flag != nil {
		return *flag
	}
	if name, ok := store.LoadActiveTab(); ok {
		if id, ok := app.ParseTabID(name); ok {
			return id
		}
	}
	return app.TabCompletions
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// commandContext returns a context canceled on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
