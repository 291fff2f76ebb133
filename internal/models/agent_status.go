package models

// AgentStatus is the pause flag and metadata of one agent.
type AgentStatus struct {
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
	AgentID      string    `json:"agent_id"`
	AgentName    string    `json:"agent_name"`
	PauseMessage string    `json:"pause_message"`
	IsPaused     bool      `json:"is_paused"`
}

// StatusLabel returns the badge text for the pause flag.
func (a AgentStatus) StatusLabel() string {
	if a.IsPaused {
		return "PAUSED"
	}
	return "ACTIVE"
}

// MessageOrDash returns the pause message, or "-" when there is none.
func (a AgentStatus) MessageOrDash() string {
	if a.PauseMessage == "" {
		return "-"
	}
	return a.PauseMessage
}

// ToggleResult is the outcome of a pause-flag update mutation.
type ToggleResult struct {
	Agents       []AgentStatus `json:"returning"`
	AffectedRows int           `json:"affected_rows"`
}

// PauseFlip records an agent whose paused flag changed since it was last seen.
type PauseFlip struct {
	Agent     AgentStatus
	WasPaused bool
}

// DetectPauseFlips compares a snapshot against the last known paused flag of
// each agent and returns the agents whose flag differs. Agents not in known
// are ignored.
func DetectPauseFlips(known map[string]bool, next []AgentStatus) []PauseFlip {
	var flips []PauseFlip
	for _, a := range next {
		was, ok := known[a.AgentID]
		if ok && was != a.IsPaused {
			flips = append(flips, PauseFlip{Agent: a, WasPaused: was})
		}
	}
	return flips
}
