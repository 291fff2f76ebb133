package db

import (
	"testing"
	"time"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

func TestInsertToggleAudit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	audit := &models.ToggleAudit{
		Timestamp:    ts,
		RequestID:    "req-1",
		AgentID:      "agent-7",
		Paused:       true,
		AffectedRows: 1,
	}
	if err := db.InsertToggleAudit(audit); err != nil {
		t.Fatalf("InsertToggleAudit() failed: %v", err)
	}
	if audit.ID == 0 {
		t.Error("ID was not set")
	}

	failed := &models.ToggleAudit{
		RequestID: "req-2",
		AgentID:   "agent-7",
		ErrorKind: "transport",
		Error:     "connection refused",
	}
	if err := db.InsertToggleAudit(failed); err != nil {
		t.Fatalf("InsertToggleAudit() failed: %v", err)
	}

	audits, err := db.RecentToggleAudits(10)
	if err != nil {
		t.Fatalf("RecentToggleAudits() failed: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("len = %d, want 2", len(audits))
	}

	// newest first
	if audits[0].RequestID != "req-2" || audits[0].Succeeded() {
		t.Errorf("audits[0] = %+v", audits[0])
	}
	if audits[0].Error != "connection refused" {
		t.Errorf("Error = %q", audits[0].Error)
	}
	if audits[0].Timestamp.IsZero() {
		t.Error("default timestamp not filled in")
	}

	got := audits[1]
	if !got.Paused || got.AffectedRows != 1 || !got.Succeeded() {
		t.Errorf("audits[1] = %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
}

func TestRecentToggleAudits_Limit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for i := 0; i < 5; i++ {
		if err := db.InsertToggleAudit(&models.ToggleAudit{RequestID: "r", AgentID: "a"}); err != nil {
			t.Fatalf("InsertToggleAudit() failed: %v", err)
		}
	}

	audits, err := db.RecentToggleAudits(3)
	if err != nil {
		t.Fatalf("RecentToggleAudits() failed: %v", err)
	}
	if len(audits) != 3 {
		t.Errorf("len = %d, want 3", len(audits))
	}
}

func TestPruneToggleAudit(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for i := 0; i < 5; i++ {
		_ = db.InsertToggleAudit(&models.ToggleAudit{RequestID: "r", AgentID: "a"})
	}
	if err := db.pruneToggleAudit(2); err != nil {
		t.Fatalf("pruneToggleAudit() failed: %v", err)
	}

	audits, _ := db.RecentToggleAudits(10)
	if len(audits) != 2 {
		t.Errorf("len = %d after prune, want 2", len(audits))
	}
}

func TestUIState(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if _, ok, err := db.GetUIState(KeyActiveTab); err != nil || ok {
		t.Fatalf("GetUIState() on empty table = ok %v, err %v", ok, err)
	}

	if err := db.SetUIState(KeyActiveTab, "agents"); err != nil {
		t.Fatalf("SetUIState() failed: %v", err)
	}
	if err := db.SetUIState(KeyActiveTab, "info"); err != nil {
		t.Fatalf("SetUIState() overwrite failed: %v", err)
	}

	value, ok, err := db.GetUIState(KeyActiveTab)
	if err != nil || !ok {
		t.Fatalf("GetUIState() = ok %v, err %v", ok, err)
	}
	if value != "info" {
		t.Errorf("GetUIState() = %q, want info", value)
	}
}

func TestSQLTime_Scan(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{"Time", want},
		{"String", "2024-05-01 12:30:00"},
		{"Bytes", []byte("2024-05-01T12:30:00Z")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st sqlTime
			if err := st.Scan(tt.src); err != nil {
				t.Fatalf("Scan() failed: %v", err)
			}
			if !st.Equal(want) {
				t.Errorf("Scan() = %v, want %v", st.Time, want)
			}
		})
	}

	var st sqlTime
	if err := st.Scan(nil); err != nil || !st.IsZero() {
		t.Errorf("Scan(nil) = %v, %v", st.Time, err)
	}
	if err := st.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
	if err := st.Scan("nope"); err == nil {
		t.Error("Scan(garbage) should fail")
	}
}
