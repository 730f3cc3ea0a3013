package ui

import "github.com/linuxmatters/lullwave/internal/session"

// SnapshotMsg carries a new session state
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// CommandDoneMsg reports the outcome of a key command
type CommandDoneMsg struct {
	Status string // shown on success
	Err    error
}

// SessionEndedMsg indicates the session loop has exited
type SessionEndedMsg struct{}
