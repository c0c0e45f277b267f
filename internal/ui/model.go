// Package ui renders short-lived notifications below the control surface.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hlsplay/hlsplay/style"
)

// Lifetime is how long a notification stays on screen.
const Lifetime = 3 * time.Second

// Model holds the notification currently shown, if any.
type Model struct {
	notification string
	seq          int
}

// Notification replaces the current notification.
type Notification string

// ClearNotificationMsg clears the notification it was scheduled for.
type ClearNotificationMsg struct {
	seq int
}

// Notify returns a command that shows msg.
func Notify(msg string) tea.Cmd {
	return func() tea.Msg {
		return Notification(msg)
	}
}

func clearAfter(seq int) tea.Cmd {
	return tea.Tick(Lifetime, func(time.Time) tea.Msg {
		return ClearNotificationMsg{seq: seq}
	})
}

// Update handles Notification and ClearNotificationMsg and ignores anything else.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case Notification:
		m.notification = string(msg)
		m.seq++
		return clearAfter(m.seq)
	case ClearNotificationMsg:
		// a newer notification owns the screen
		if msg.seq == m.seq {
			m.notification = ""
		}
	}
	return nil
}

// View appends the notification to the last line of mainContent.
func (m *Model) View(mainContent string) string {
	if m.notification == "" {
		return mainContent
	}

	lines := strings.Split(mainContent, "\n")
	lines[len(lines)-1] += "  " + style.Faint(m.notification)
	return strings.Join(lines, "\n")
}
