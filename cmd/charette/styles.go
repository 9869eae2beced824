package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	facilitatorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// renderUser styles a user name by role.
func renderUser(name string, role models.Role) string {
	if role.CanFacilitate() {
		return facilitatorStyle.Render(name)
	}
	return userStyle.Render(name)
}

// renderMessage formats one chat line.
func renderMessage(m models.Message) string {
	ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
	return fmt.Sprintf("%s %s: %s", dimStyle.Render(ts), renderUser(m.UserName, m.Role), m.Text)
}

// renderPhase shows the phase as "Name (n/6)".
func renderPhase(i int) string {
	return phaseStyle.Render(fmt.Sprintf("%s (%d/%d)", phase.Name(i), i+1, phase.Count()))
}

// roomLabel names a room of sess for display.
func roomLabel(sess *models.Session, roomID string) string {
	if !models.IsBreakout(roomID) {
		return "Main Room"
	}
	if sess != nil {
		if r := sess.Room(roomID); r != nil {
			return r.Name
		}
	}
	return roomID
}

// renderSession prints the full description of a charette.
func renderSession(sess *models.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render(sess.Title))
	fmt.Fprintf(&b, "  %s\n", idStyle.Render(sess.ID))
	if sess.Description != "" {
		fmt.Fprintf(&b, "  %s\n", sess.Description)
	}
	fmt.Fprintf(&b, "  Phase: %s\n", renderPhase(sess.CurrentPhase))
	fmt.Fprintf(&b, "  Breakout time: %d min\n", sess.Metadata.BreakoutRoomTime)

	for _, field := range []struct{ label, value string }{
		{"Scope", sess.Metadata.Scope},
		{"Stakeholders", sess.Metadata.Stakeholders},
		{"Objectives", sess.Metadata.Objectives},
		{"Constraints", sess.Metadata.Constraints},
		{"Timeframe", sess.Metadata.Timeframe},
		{"Desired outcomes", sess.Metadata.DesiredOutcomes},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "  %s: %s\n", field.label, field.value)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", headerStyle.Render(fmt.Sprintf("Participants (%d)", len(sess.Participants))))
	for _, p := range sess.Participants {
		fmt.Fprintf(&b, "  %s %s\n", renderUser(p.UserName, p.Role), dimStyle.Render(string(p.Role)))
	}

	if len(sess.BreakoutRooms) > 0 {
		fmt.Fprintf(&b, "\n%s\n", headerStyle.Render(fmt.Sprintf("Breakout rooms (%d)", len(sess.BreakoutRooms))))
		for _, r := range sess.BreakoutRooms {
			fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render(r.Name), idStyle.Render(r.ID))
			for _, q := range r.Questions {
				fmt.Fprintf(&b, "    ? %s\n", q)
			}
			if len(r.Participants) > 0 {
				fmt.Fprintf(&b, "    %s\n", dimStyle.Render(strings.Join(r.Participants, ", ")))
			}
		}
	}

	return b.String()
}
