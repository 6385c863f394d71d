package tui

// Message types for the TUI

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg signals to clear the status message
type ClearStatusMsg struct{}

// StatusMsg shows a transient message in the footer
type StatusMsg struct {
	Message string
	IsError bool
}
