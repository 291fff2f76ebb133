package db

const (
	// timeLayout is the text form timestamps are stored in, compatible with
	// SQLite's date functions.
	timeLayout = "2006-01-02 15:04:05"

	// KeyActiveTab is the ui_state key holding the last active tab.
	KeyActiveTab = "active_tab"

	// maxAuditRows bounds the toggle_audit table.
	maxAuditRows = 1000
)
