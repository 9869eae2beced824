package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eldtechnologies/charette/internal/phase"
)

// CharettePreview is a short listing entry.
type CharettePreview struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Phase        string `json:"phase"`
	Participants int    `json:"participants"`
	CreatedAt    string `json:"createdAt"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalCharettes     int               `json:"totalCharettes"`
	TotalParticipants  int               `json:"totalParticipants"`
	TotalBreakoutRooms int               `json:"totalBreakoutRooms"`
	ByPhase            map[string]int    `json:"byPhase"`
	LastActivity       string            `json:"lastActivity"`
	Recent             []CharettePreview `json:"recent"`
}

// Stats returns aggregate figures over all charettes.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		h.fail(w, r, err, "collect stats")
		return
	}

	resp := StatsResponse{
		TotalCharettes: len(sessions),
		ByPhase:        make(map[string]int),
		LastActivity:   "no activity yet",
		Recent:         []CharettePreview{},
	}

	var latest time.Time
	for _, s := range sessions {
		resp.TotalParticipants += len(s.Participants)
		resp.TotalBreakoutRooms += len(s.BreakoutRooms)
		resp.ByPhase[phase.Name(s.CurrentPhase)]++
		if s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	if !latest.IsZero() {
		resp.LastActivity = formatTimeAgo(latest)
	}

	// Sessions are listed oldest first
	for i := len(sessions) - 1; i >= 0 && len(resp.Recent) < 5; i-- {
		s := sessions[i]
		resp.Recent = append(resp.Recent, CharettePreview{
			ID:           s.ID,
			Title:        s.Title,
			Phase:        s.PhaseName(),
			Participants: len(s.Participants),
			CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	h.JSON(w, http.StatusOK, resp)
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	default:
		return plural(int(diff.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
