package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Text holds a payload column that the backend may return either as a JSON
// string or as a structured JSON value (json/jsonb columns). Structured
// values are kept as their raw JSON text.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

// ChatCompletion is one logged LLM request/response exchange.
type ChatCompletion struct {
	StartTime Timestamp       `json:"start_time"`
	EndTime   Timestamp       `json:"end_time"`
	Cost      decimal.Decimal `json:"cost"`
	Request   Text            `json:"request"`
	Response  Text            `json:"response"`
	ModelID   string          `json:"model_id"`
	AgentName string          `json:"agent_name"`
	TotalTime float64         `json:"total_time"`
	ID        int64           `json:"id"`
}

// CursorID returns the identifier used for cursor pagination.
func (c ChatCompletion) CursorID() int64 {
	return c.ID
}

// TotalCost sums the cost of every record.
func TotalCost(records []ChatCompletion) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Cost)
	}
	return total
}

// NewChatCompletion is a chat completion to be recorded. Unset times are
// left to the backend's column defaults.
type NewChatCompletion struct {
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Cost      decimal.Decimal `json:"cost"`
	Request   string          `json:"request"`
	Response  string          `json:"response"`
	ModelID   string          `json:"model_id,omitempty"`
	AgentName string          `json:"agent_name,omitempty"`
}

// MarshalJSON encodes Cost as a JSON number, which numeric columns require.
func (n NewChatCompletion) MarshalJSON() ([]byte, error) {
	type plain NewChatCompletion
	return json.Marshal(struct {
		plain
		Cost json.Number `json:"cost"`
	}{plain: plain(n), Cost: json.Number(n.Cost.String())})
}
