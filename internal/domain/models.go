package domain

import "time"

// Domain contains core models shared by the journal, publishers and the monitor.

// CheckOutcome records the result of one status check against one profile.
type CheckOutcome struct {
	Profile      string    `json:"profile"`
	Hostname     string    `json:"hostname"`
	Port         int       `json:"port"`
	OK           bool      `json:"ok"`
	ZosmfVersion string    `json:"zosmf_version,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Message      string    `json:"message,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	CheckedAt    time.Time `json:"checked_at"`
}
