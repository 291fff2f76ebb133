package models

import (
	"bytes"
	"encoding/json"
)

// Payload is a request or response body prepared for display.
type Payload struct {
	Text       string
	Structured bool
}

// FormatPayload pretty-prints raw when it is valid JSON and otherwise returns
// it verbatim. It never fails.
func FormatPayload(raw string) Payload {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return Payload{Text: raw}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return Payload{Text: raw}
	}
	return Payload{Text: buf.String(), Structured: true}
}
