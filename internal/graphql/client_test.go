package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type recordedRequest struct {
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	apiKey        string
	requestID     string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, req recordedRequest)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req recordedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		req.apiKey = r.Header.Get("x-hasura-admin-secret")
		req.requestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		handler(w, req)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func newTestClient(endpoint string) *Client {
	return NewClient(Options{
		Endpoint:     endpoint,
		APIKey:       "secret",
		APIKeyHeader: "x-hasura-admin-secret",
		Timeout:      2 * time.Second,
		CacheTTL:     time.Minute,
	})
}

func TestQuery_SendsDocumentAndHeaders(t *testing.T) {
	var got recordedRequest
	srv, _ := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		got = req
		_, _ = w.Write([]byte(`{"data":{"chat_completions":[{"id":5}]}}`))
	})

	c := newTestClient(srv.URL)
	var out struct {
		ChatCompletions []struct {
			ID int64 `json:"id"`
		} `json:"chat_completions"`
	}

	vars := map[string]any{"cursor": 10, "limit": 30}
	if err := c.Query(context.Background(), ChatCompletions, vars, &out, NetworkOnly); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}

	if len(out.ChatCompletions) != 1 || out.ChatCompletions[0].ID != 5 {
		t.Errorf("decoded %+v", out)
	}
	if got.OperationName != "ChatCompletions" {
		t.Errorf("operationName = %q", got.OperationName)
	}
	if !strings.Contains(got.Query, "_lte: $cursor") {
		t.Errorf("query document missing cursor bound: %s", got.Query)
	}
	if got.Variables["limit"] != float64(30) {
		t.Errorf("limit variable = %v", got.Variables["limit"])
	}
	if got.apiKey != "secret" {
		t.Errorf("api key header = %q", got.apiKey)
	}
	if got.requestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestQuery_CacheFirst(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		_, _ = w.Write([]byte(`{"data":{"agent_status":[]}}`))
	})

	c := newTestClient(srv.URL)
	vars := map[string]any{"limit": 100, "offset": 0}

	for i := 0; i < 3; i++ {
		if err := c.Query(context.Background(), AgentStatuses, vars, nil, CacheFirst); err != nil {
			t.Fatalf("Query() failed: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}

	if err := c.Query(context.Background(), AgentStatuses, vars, nil, NetworkOnly); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2 after network-only", calls.Load())
	}

	other := map[string]any{"limit": 100, "offset": 100}
	if err := c.Query(context.Background(), AgentStatuses, other, nil, CacheFirst); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3 for different variables", calls.Load())
	}

	stats := c.CacheStats()
	if stats.Hits != 2 || stats.Entries != 2 {
		t.Errorf("stats = %+v, want 2 hits and 2 entries", stats)
	}
}

func TestMutate_InvalidatesPolicyQueries(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		switch req.OperationName {
		case "SetAgentPaused":
			_, _ = w.Write([]byte(`{"data":{"update_agent_status":{"affected_rows":1,"returning":[]}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	})

	c := newTestClient(srv.URL)
	agentVars := map[string]any{"limit": 100, "offset": 0}
	chatVars := map[string]any{"cursor": 1, "limit": 30}
	_ = c.Query(context.Background(), AgentStatuses, agentVars, nil, CacheFirst)
	_ = c.Query(context.Background(), ChatCompletions, chatVars, nil, CacheFirst)

	var out struct {
		Update struct {
			AffectedRows int `json:"affected_rows"`
		} `json:"update_agent_status"`
	}
	invalidated, err := c.Mutate(context.Background(), SetAgentPaused, map[string]any{"agentId": "a1", "isPaused": true}, &out)
	if err != nil {
		t.Fatalf("Mutate() failed: %v", err)
	}
	if out.Update.AffectedRows != 1 {
		t.Errorf("affected_rows = %d", out.Update.AffectedRows)
	}
	if len(invalidated) != 1 || invalidated[0] != "AgentStatuses" {
		t.Errorf("invalidated = %v, want [AgentStatuses]", invalidated)
	}

	before := calls.Load()
	_ = c.Query(context.Background(), AgentStatuses, agentVars, nil, CacheFirst)
	_ = c.Query(context.Background(), ChatCompletions, chatVars, nil, CacheFirst)
	if calls.Load() != before+1 {
		t.Errorf("calls after mutation = %d, want only AgentStatuses refetched", calls.Load()-before)
	}
}

func TestQuery_BackendErrors(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"field not found","extensions":{"code":"validation-failed"}}]}`))
	})

	c := newTestClient(srv.URL)
	err := c.Query(context.Background(), ChatCompletions, nil, nil, NetworkOnly)
	if err == nil {
		t.Fatal("expected error")
	}

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("error type = %T, want *QueryError", err)
	}
	if !IsQuery(err) || IsTransport(err) {
		t.Error("IsQuery/IsTransport misclassified backend error")
	}
	if !strings.Contains(err.Error(), "field not found (validation-failed)") {
		t.Errorf("Error() = %q", err.Error())
	}
	if Kind(err) != "backend" {
		t.Errorf("Kind() = %q", Kind(err))
	}
}

func TestQuery_HTTPStatusError(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	c := newTestClient(srv.URL)
	err := c.Query(context.Background(), ChatCompletions, nil, nil, NetworkOnly)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if te.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", te.StatusCode)
	}
	if Kind(err) != "transport" {
		t.Errorf("Kind() = %q", Kind(err))
	}
}

func TestQuery_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(url)
	err := c.Query(context.Background(), ChatCompletions, nil, nil, NetworkOnly)
	if !IsTransport(err) {
		t.Fatalf("error = %v, want transport error", err)
	}
}

func TestQuery_ErrorsAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		if fail.Load() {
			_, _ = w.Write([]byte(`{"errors":[{"message":"boom"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	c := newTestClient(srv.URL)
	if err := c.Query(context.Background(), AgentStatuses, nil, nil, CacheFirst); err == nil {
		t.Fatal("expected error")
	}
	fail.Store(false)
	if err := c.Query(context.Background(), AgentStatuses, nil, nil, CacheFirst); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestQuery_ContextCanceled(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	c := newTestClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Query(ctx, ChatCompletions, nil, nil, NetworkOnly)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestReconfigure_ClearsCacheOnEndpointChange(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	c := newTestClient(srv.URL)
	_ = c.Query(context.Background(), AgentStatuses, nil, nil, CacheFirst)

	c.Reconfigure(Options{Endpoint: srv.URL, APIKey: "new", APIKeyHeader: "x-hasura-admin-secret", Timeout: time.Second, CacheTTL: time.Minute})
	_ = c.Query(context.Background(), AgentStatuses, nil, nil, CacheFirst)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want cache kept for same endpoint", calls.Load())
	}

	c.Reconfigure(Options{Endpoint: srv.URL + "/", Timeout: time.Second, CacheTTL: time.Minute})
	if c.CacheStats().Entries != 0 {
		t.Error("cache should be cleared when the endpoint changes")
	}
	if c.Endpoint() != srv.URL+"/" {
		t.Errorf("Endpoint() = %q", c.Endpoint())
	}
}

func TestCache_TTL(t *testing.T) {
	c := NewCache(50 * time.Millisecond)

	c.Set("Q", map[string]any{"a": 1}, json.RawMessage(`{}`))
	if _, ok := c.Get("Q", map[string]any{"a": 1}); !ok {
		t.Fatal("fresh entry missing")
	}

	time.Sleep(150 * time.Millisecond)
	if _, ok := c.Get("Q", map[string]any{"a": 1}); ok {
		t.Error("expired entry returned")
	}
}

func TestCache_SetTTLDropsEntries(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("Q", nil, json.RawMessage(`1`))

	c.SetTTL(time.Minute)
	if _, ok := c.Get("Q", nil); !ok {
		t.Error("unchanged ttl should keep entries")
	}

	c.SetTTL(time.Hour)
	if _, ok := c.Get("Q", nil); ok {
		t.Error("entry survived a ttl change")
	}
}

func TestCache_Bounded(t *testing.T) {
	c := NewCache(0)
	for i := 0; i < maxCacheEntries+10; i++ {
		c.Set("Q", map[string]any{"page": i}, json.RawMessage(`{}`))
	}

	if got := c.Stats().Entries; got != maxCacheEntries {
		t.Errorf("Entries = %d, want %d", got, maxCacheEntries)
	}
	if _, ok := c.Get("Q", map[string]any{"page": 0}); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("Q", map[string]any{"page": maxCacheEntries + 9}); !ok {
		t.Error("newest entry missing")
	}
}

func TestCache_InvalidateByOperation(t *testing.T) {
	c := NewCache(0)
	c.Set("A", map[string]any{"page": 1}, json.RawMessage(`1`))
	c.Set("A", map[string]any{"page": 2}, json.RawMessage(`2`))
	c.Set("B", nil, json.RawMessage(`3`))

	if n := c.Invalidate("A"); n != 2 {
		t.Errorf("Invalidate() = %d, want 2", n)
	}
	if _, ok := c.Get("B", nil); !ok {
		t.Error("unrelated entry was dropped")
	}
	if n := c.Invalidate(); n != 0 {
		t.Errorf("Invalidate() with no names = %d", n)
	}
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	a := cacheKey("Q", map[string]any{"x": 1, "y": 2})
	b := cacheKey("Q", map[string]any{"y": 2, "x": 1})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if cacheKey("Q", nil) == cacheKey("R", nil) {
		t.Error("different operations share a key")
	}
}

func TestWithRequestID(t *testing.T) {
	var got recordedRequest
	srv, _ := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		got = req
		_, _ = w.Write([]byte(`{"data":{}}`))
	})

	c := newTestClient(srv.URL)
	ctx := WithRequestID(context.Background(), "fixed-id")
	if err := c.Query(ctx, AgentStatuses, nil, nil, NetworkOnly); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if got.requestID != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want fixed-id", got.requestID)
	}
}

func newRetryClient(endpoint string, attempts int) *Client {
	return NewClient(Options{
		Endpoint:      endpoint,
		APIKeyHeader:  "x-hasura-admin-secret",
		Timeout:       2 * time.Second,
		RetryAttempts: attempts,
		RetryDelay:    5 * time.Millisecond,
	})
}

func TestMutate_RetriesInsertUntilSuccess(t *testing.T) {
	var seen atomic.Int32
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		if seen.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`upstream unavailable`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"insert_chat_completions_one":{"id":7}}}`))
	})

	c := newRetryClient(srv.URL, 3)
	var out struct {
		Inserted struct {
			ID int64 `json:"id"`
		} `json:"insert_chat_completions_one"`
	}
	vars := map[string]any{"object": map[string]any{"request": "q"}}

	invalidated, err := c.Mutate(context.Background(), InsertChatCompletion, vars, &out)
	if err != nil {
		t.Fatalf("Mutate() failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
	if out.Inserted.ID != 7 {
		t.Errorf("decoded id = %d, want 7", out.Inserted.ID)
	}
	if len(invalidated) != 1 || invalidated[0] != ChatCompletions.Name {
		t.Errorf("invalidated = %v", invalidated)
	}
}

func TestMutate_RetryOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		op        Operation
		attempts  int
		wantCalls int32
		wantQuery bool
	}{
		{"InsertGivesUp", http.StatusBadGateway, `bad gateway`, InsertChatCompletion, 3, 3, false},
		{"SingleAttempt", http.StatusBadGateway, `bad gateway`, InsertChatCompletion, 1, 1, false},
		{"BackendErrorIsFinal", http.StatusOK, `{"errors":[{"message":"constraint violation"}]}`, InsertChatCompletion, 3, 1, true},
		{"ClientErrorIsFinal", http.StatusBadRequest, `bad request`, InsertChatCompletion, 3, 1, false},
		{"ToggleNeverRetried", http.StatusServiceUnavailable, `down`, SetAgentPaused, 3, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			c := newRetryClient(srv.URL, tt.attempts)
			_, err := c.Mutate(context.Background(), tt.op, nil, nil)
			if err == nil {
				t.Fatal("Mutate() should fail")
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("server calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if IsQuery(err) != tt.wantQuery {
				t.Errorf("IsQuery(%v) = %v, want %v", err, IsQuery(err), tt.wantQuery)
			}
			if !tt.wantQuery && !IsTransport(err) {
				t.Errorf("err = %v, want transport error", err)
			}
		})
	}
}

func TestQuery_ReadsAreNotRetried(t *testing.T) {
	srv, calls := newTestServer(t, func(w http.ResponseWriter, req recordedRequest) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := newRetryClient(srv.URL, 3)
	if err := c.Query(context.Background(), ChatCompletions, nil, nil, NetworkOnly); err == nil {
		t.Fatal("Query() should fail")
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}
