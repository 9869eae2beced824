package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/charette/internal/analysis"
	"github.com/eldtechnologies/charette/internal/models"
)

// SearchResult represents a single search result.
type SearchResult struct {
	MessageID string `json:"id"`
	RoomID    string `json:"roomId"`
	RoomName  string `json:"roomName"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	Score     int    `json:"score"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// maxQueryTokens bounds the work of a single search.
const maxQueryTokens = 5

// Search finds messages across every room of a charette that share words
// with the query, best matches first.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	// Parse query
	query := r.URL.Query().Get("q")
	if query == "" {
		h.Error(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if len(query) > 100 {
		h.Error(w, http.StatusBadRequest, "query too long (max 100 chars)")
		return
	}

	// Parse limit
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	tokens := analysis.Tokenize(query)
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	if len(tokens) == 0 {
		h.JSON(w, http.StatusOK, SearchResponse{Query: query, Results: []SearchResult{}})
		return
	}

	ctx := r.Context()
	sess, err := h.svc.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "search")
		return
	}

	rooms := []models.BreakoutRoom{{ID: models.MainRoom, Name: "Main Room"}}
	rooms = append(rooms, sess.BreakoutRooms...)

	results := []SearchResult{}
	for _, room := range rooms {
		messages, err := h.svc.ListMessages(ctx, sess.ID, room.ID, 0)
		if err != nil {
			h.fail(w, r, err, "search")
			return
		}
		for _, m := range messages {
			score := matchScore(tokens, m.Text)
			if score == 0 {
				continue
			}
			results = append(results, SearchResult{
				MessageID: m.ID,
				RoomID:    room.ID,
				RoomName:  room.Name,
				UserName:  m.UserName,
				Text:      m.Text,
				Timestamp: m.Timestamp,
				Score:     score,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Timestamp > results[j].Timestamp
	})

	total := len(results)
	if len(results) > limit {
		results = results[:limit]
	}

	h.JSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: results,
		Total:   total,
	})
}

// matchScore counts the query tokens present in text.
func matchScore(tokens []string, text string) int {
	words := make(map[string]bool)
	for _, w := range analysis.Tokenize(text) {
		words[w] = true
	}
	score := 0
	for _, t := range tokens {
		if words[t] {
			score++
		}
	}
	return score
}
