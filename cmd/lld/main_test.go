package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/app"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/config"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/graphql"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/paging"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/version"
)

type fakeCompletions struct {
	err     error
	cursors []int64
	newest  int64
}

func (f *fakeCompletions) FetchChatCompletions(_ context.Context, cursor int64, limit int, policy graphql.FetchPolicy) ([]models.ChatCompletion, error) {
	if policy != graphql.NetworkOnly {
		return nil, errors.New("scripted output must not use the cache")
	}
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.ChatCompletion
	for id := min(cursor, f.newest); id >= 1 && len(out) < limit; id-- {
		out = append(out, models.ChatCompletion{ID: id})
	}
	return out, nil
}

func TestCollectCompletions(t *testing.T) {
	tests := []struct {
		name        string
		newest      int64
		cursor      int64
		limit       int
		pages       int
		wantIDs     []int64
		wantCursors []int64
	}{
		{
			name:        "three pages",
			newest:      100,
			cursor:      paging.MaxCursor,
			limit:       2,
			pages:       3,
			wantIDs:     []int64{100, 99, 98, 97, 96, 95},
			wantCursors: []int64{paging.MaxCursor, 98, 96},
		},
		{
			name:        "from cursor",
			newest:      100,
			cursor:      50,
			limit:       3,
			pages:       1,
			wantIDs:     []int64{50, 49, 48},
			wantCursors: []int64{50},
		},
		{
			name:        "stops at end of data",
			newest:      3,
			cursor:      paging.MaxCursor,
			limit:       2,
			pages:       10,
			wantIDs:     []int64{3, 2, 1},
			wantCursors: []int64{paging.MaxCursor, 1},
		},
		{
			name:        "empty",
			newest:      0,
			cursor:      paging.MaxCursor,
			limit:       2,
			pages:       5,
			wantIDs:     []int64{},
			wantCursors: []int64{paging.MaxCursor},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeCompletions{newest: tt.newest}
			items, err := collectCompletions(context.Background(), src, tt.cursor, tt.limit, tt.pages)
			if err != nil {
				t.Fatalf("collectCompletions() failed: %v", err)
			}

			got := make([]int64, 0, len(items))
			for _, c := range items {
				got = append(got, c.ID)
			}
			if !equalInts(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			if !equalInts(src.cursors, tt.wantCursors) {
				t.Errorf("cursors = %v, want %v", src.cursors, tt.wantCursors)
			}
		})
	}
}

func TestCollectCompletions_Error(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeCompletions{newest: 10, err: boom}
	if _, err := collectCompletions(context.Background(), src, paging.MaxCursor, 5, 2); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func equalInts(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type fakeSetter struct {
	err    error
	result models.ToggleResult
	calls  []bool
}

func (f *fakeSetter) SetAgentPaused(_ context.Context, _ string, paused bool) (models.ToggleResult, error) {
	f.calls = append(f.calls, paused)
	return f.result, f.err
}

func TestSetPaused(t *testing.T) {
	tests := []struct {
		name    string
		setter  *fakeSetter
		paused  bool
		want    string
		wantErr string
	}{
		{
			name:   "pause",
			setter: &fakeSetter{result: models.ToggleResult{AffectedRows: 1, Agents: []models.AgentStatus{{AgentID: "a-1", AgentName: "planner", IsPaused: true}}}},
			paused: true,
			want:   "Agent planner paused\n",
		},
		{
			name:   "resume without returning rows",
			setter: &fakeSetter{result: models.ToggleResult{AffectedRows: 1}},
			want:   "Agent a-1 resumed\n",
		},
		{
			name:    "no match",
			setter:  &fakeSetter{},
			paused:  true,
			wantErr: `no agent with id "a-1"`,
		},
		{
			name:    "backend error",
			setter:  &fakeSetter{err: &graphql.QueryError{Op: "SetAgentPaused", Errors: []graphql.Error{{Message: "denied"}}}},
			wantErr: "denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := setPaused(context.Background(), &out, tt.setter, "a-1", tt.paused)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("setPaused() failed: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
			if len(tt.setter.calls) != 1 || tt.setter.calls[0] != tt.paused {
				t.Errorf("calls = %v", tt.setter.calls)
			}
		})
	}
}

type fakeLogger struct {
	err   error
	calls []models.NewChatCompletion
}

func (f *fakeLogger) LogChatCompletion(_ context.Context, in models.NewChatCompletion) (models.ChatCompletion, error) {
	f.calls = append(f.calls, in)
	if f.err != nil {
		return models.ChatCompletion{}, f.err
	}
	return models.ChatCompletion{ID: 42, Request: models.Text(in.Request)}, nil
}

func TestBuildCompletion(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		stdin   string
		flags   logFlags
		set     []string
		want    models.NewChatCompletion
		wantErr string
	}{
		{
			name:  "flags",
			flags: logFlags{request: "hi", response: "hello", model: "gpt-4o", agent: "planner", cost: "0.0125", start: "2026-03-01T10:00:00Z"},
			set:   []string{"request", "response", "model", "agent", "cost", "start"},
			want:  models.NewChatCompletion{Request: "hi", Response: "hello", ModelID: "gpt-4o", AgentName: "planner", Cost: decimal.RequireFromString("0.0125"), StartTime: &start},
		},
		{
			name:  "stdin",
			stdin: `{"request":"q","response":"a","cost":0.5,"model_id":"m","start_time":"2026-03-01T10:00:00Z"}`,
			flags: logFlags{file: "-"},
			set:   []string{"file"},
			want:  models.NewChatCompletion{Request: "q", Response: "a", ModelID: "m", Cost: decimal.RequireFromString("0.5"), StartTime: &start},
		},
		{
			name:  "flags override stdin",
			stdin: `{"request":"q","response":"a","agent_name":"old"}`,
			flags: logFlags{file: "-", agent: "new"},
			set:   []string{"file", "agent"},
			want:  models.NewChatCompletion{Request: "q", Response: "a", AgentName: "new"},
		},
		{
			name:    "empty record",
			flags:   logFlags{model: "m"},
			set:     []string{"model"},
			wantErr: "nothing to record",
		},
		{
			name:    "bad json",
			stdin:   `{"request":`,
			flags:   logFlags{file: "-"},
			set:     []string{"file"},
			wantErr: "failed to parse record",
		},
		{
			name:    "bad cost",
			flags:   logFlags{request: "hi", cost: "cheap"},
			set:     []string{"request", "cost"},
			wantErr: "--cost",
		},
		{
			name:    "bad end",
			flags:   logFlags{request: "hi", end: "yesterday"},
			set:     []string{"request", "end"},
			wantErr: "--end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := func(name string) bool {
				for _, s := range tt.set {
					if s == name {
						return true
					}
				}
				return false
			}
			got, err := buildCompletion(strings.NewReader(tt.stdin), tt.flags, changed)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildCompletion() failed: %v", err)
			}
			if got.Request != tt.want.Request || got.Response != tt.want.Response ||
				got.ModelID != tt.want.ModelID || got.AgentName != tt.want.AgentName {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if !got.Cost.Equal(tt.want.Cost) {
				t.Errorf("cost = %s, want %s", got.Cost, tt.want.Cost)
			}
			if (got.StartTime == nil) != (tt.want.StartTime == nil) ||
				(got.StartTime != nil && !got.StartTime.Equal(*tt.want.StartTime)) {
				t.Errorf("start = %v, want %v", got.StartTime, tt.want.StartTime)
			}
			if got.EndTime != nil {
				t.Errorf("end = %v, want nil", got.EndTime)
			}
		})
	}
}

func TestLogCompletion(t *testing.T) {
	tests := []struct {
		name    string
		logger  *fakeLogger
		want    string
		wantErr string
	}{
		{name: "stored", logger: &fakeLogger{}, want: "Logged chat completion #42\n"},
		{name: "backend error", logger: &fakeLogger{err: errors.New("gateway down")}, wantErr: "gateway down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := logCompletion(context.Background(), &out, tt.logger, models.NewChatCompletion{Request: "hi"})
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("logCompletion() failed: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
			if len(tt.logger.calls) != 1 || tt.logger.calls[0].Request != "hi" {
				t.Errorf("calls = %+v", tt.logger.calls)
			}
		})
	}
}

type fakeStore struct {
	name string
	ok   bool
}

func (f fakeStore) LoadActiveTab() (string, bool) { return f.name, f.ok }

func TestStartTab(t *testing.T) {
	if _, err := parseStartTab("bogus"); err == nil {
		t.Error("unknown tab should be rejected")
	}

	flag, err := parseStartTab("agents")
	if err != nil {
		t.Fatalf("parseStartTab() failed: %v", err)
	}
	if got := resolveStartTab(flag, fakeStore{name: "info", ok: true}); got != app.TabAgents {
		t.Errorf("flag should win, got %v", got)
	}

	flag, _ = parseStartTab("")
	if got := resolveStartTab(flag, fakeStore{name: "info", ok: true}); got != app.TabInfo {
		t.Errorf("remembered tab should be restored, got %v", got)
	}
	if got := resolveStartTab(flag, fakeStore{name: "gone", ok: true}); got != app.TabCompletions {
		t.Errorf("unknown remembered tab should fall back, got %v", got)
	}
	if got := resolveStartTab(flag, fakeStore{}); got != app.TabCompletions {
		t.Errorf("default tab = %v", got)
	}
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"table", "JSON", "jsonl", "plain"} {
		if err := checkFormat(f); err != nil {
			t.Errorf("checkFormat(%q) = %v", f, err)
		}
	}
	if err := checkFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}

func TestGlobalOverrides(t *testing.T) {
	opts := &globalOptions{endpoint: "http://localhost/v1/graphql", pageSize: 7, debounce: 0, debounceSet: true}
	cfg := &config.Config{EndpointURL: "https://other", PageSize: 30, DebounceDelay: time.Second}

	opts.overrides()(cfg)
	if cfg.EndpointURL != "http://localhost/v1/graphql" || cfg.PageSize != 7 || cfg.DebounceDelay != 0 {
		t.Errorf("cfg = %+v", cfg)
	}

	cfg = &config.Config{PageSize: 30, DebounceDelay: time.Second}
	(&globalOptions{}).overrides()(cfg)
	if cfg.PageSize != 30 || cfg.DebounceDelay != time.Second {
		t.Error("unset flags must not override")
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
}

func TestRootCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), version.Name) {
		t.Errorf("version output = %q", out.String())
	}

	for _, name := range []string{"completions", "agents", "pause", "resume", "log", "version"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q missing", name)
		}
	}

	root = newRootCmd()
	root.SetArgs([]string{"completions", "--cursor", "-1"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--cursor") {
		t.Errorf("negative cursor err = %v", err)
	}

	root = newRootCmd()
	root.SetArgs([]string{"--tab", "bogus"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "unknown tab") {
		t.Errorf("bad tab err = %v", err)
	}
}
