package export

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// MarkdownExporter exports transcripts as a readable Markdown document.
type MarkdownExporter struct{}

// Export writes t to w.
func (e *MarkdownExporter) Export(t *Transcript, w io.Writer) error {
	s := t.Session

	_, _ = fmt.Fprintf(w, "# %s\n\n", s.Title)
	if s.Description != "" {
		_, _ = fmt.Fprintf(w, "%s\n\n", s.Description)
	}
	_, _ = fmt.Fprintf(w, "**Phase:** %s  \n", t.Phase)
	_, _ = fmt.Fprintf(w, "**Participants:** %d  \n", len(s.Participants))
	_, _ = fmt.Fprintf(w, "**Breakout time:** %d min\n\n", s.Metadata.BreakoutRoomTime)

	for _, field := range []struct{ label, value string }{
		{"Scope", s.Metadata.Scope},
		{"Stakeholders", s.Metadata.Stakeholders},
		{"Objectives", s.Metadata.Objectives},
		{"Constraints", s.Metadata.Constraints},
		{"Timeframe", s.Metadata.Timeframe},
		{"Desired outcomes", s.Metadata.DesiredOutcomes},
	} {
		if field.value != "" {
			_, _ = fmt.Fprintf(w, "- **%s:** %s\n", field.label, field.value)
		}
	}

	for _, room := range t.Rooms {
		_, _ = fmt.Fprintf(w, "\n---\n\n## %s\n\n", room.Name)
		if r := s.Room(room.ID); r != nil && len(r.Questions) > 0 {
			for _, q := range r.Questions {
				_, _ = fmt.Fprintf(w, "> %s\n", q)
			}
			_, _ = fmt.Fprintln(w)
		}
		if len(room.Messages) == 0 {
			_, _ = fmt.Fprintf(w, "_No messages._\n")
			continue
		}
		for _, m := range room.Messages {
			ts := time.UnixMilli(m.Timestamp).UTC().Format("15:04:05")
			_, _ = fmt.Fprintf(w, "**%s** (%s, %s): %s\n\n", m.UserName, m.Role, ts, escapeMarkdown(m.Text))
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers in free text.
func escapeMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "\\*\\*")
	return strings.ReplaceAll(text, "__", "\\_\\_")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
