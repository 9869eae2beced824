// Package analysis turns a room's discussion into an AnalysisResult.
package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// Analyzer produces insights for a room. Implementations may call out to an
// external service; Fixed is the built-in fallback.
type Analyzer interface {
	Analyze(ctx context.Context, session *models.Session, roomID string, messages []models.Message) (*models.AnalysisResult, error)
}

var wordRegex = regexp.MustCompile(`[a-z0-9]+`)

// stopWords are common words excluded from keywords
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"to": true, "of": true, "in": true, "for": true, "on": true,
	"it": true, "that": true, "this": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "like": true,
	"we": true, "i": true, "you": true, "they": true, "our": true,
	"should": true, "could": true, "would": true, "can": true, "not": true,
}

// phaseSummaries is the per-phase framing line of a fixed analysis.
var phaseSummaries = [...]string{
	"Participants are framing the problem and getting to know the scope.",
	"The group is gathering facts and observations.",
	"The group is looking for patterns in the collected data.",
	"The group is proposing and building on ideas.",
	"The group is converging on a shared direction.",
	"The group is preparing the final report.",
}

// Fixed derives a deterministic analysis from message statistics.
type Fixed struct {
	// MaxKeywords bounds the keyword list. Zero means 5.
	MaxKeywords int
	// Now is used for GeneratedAt. Nil means time.Now.
	Now func() time.Time
}

// NewFixed creates the fallback analyzer.
func NewFixed() *Fixed {
	return &Fixed{}
}

// Analyze implements Analyzer.
func (f *Fixed) Analyze(ctx context.Context, session *models.Session, roomID string, messages []models.Message) (*models.AnalysisResult, error) {
	if session == nil {
		return nil, fmt.Errorf("analyze: %w", models.ErrNotFound)
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	result := &models.AnalysisResult{
		CharetteID:    session.ID,
		RoomID:        roomID,
		Phase:         phase.Name(session.CurrentPhase),
		MessageCount:  len(messages),
		Contributions: make(map[string]int),
		Keywords:      Keywords(messages, f.maxKeywords()),
		GeneratedAt:   now().UnixMilli(),
	}
	for _, m := range messages {
		result.Contributions[m.UserName]++
	}
	result.Summary = summarize(session.CurrentPhase, result)
	return result, nil
}

func (f *Fixed) maxKeywords() int {
	if f.MaxKeywords <= 0 {
		return 5
	}
	return f.MaxKeywords
}

// Keywords returns the most frequent non-stop words, ties broken by first appearance.
func Keywords(messages []models.Message, max int) []string {
	counts := make(map[string]int)
	first := make(map[string]int)
	var order int

	for _, m := range messages {
		for _, w := range words(m.Text) {
			if _, ok := first[w]; !ok {
				first[w] = order
				order++
			}
			counts[w]++
		}
	}

	ranked := make([]string, 0, len(counts))
	for w := range counts {
		ranked = append(ranked, w)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return first[ranked[i]] < first[ranked[j]]
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// words returns the lower-cased tokens of text that can be keywords.
func words(text string) []string {
	all := wordRegex.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, w := range all {
		if len(w) >= 3 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Tokenize returns the distinct keyword tokens of text in order of appearance.
func Tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words(text) {
		if !seen[w] {
			seen[w] = true
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func summarize(p int, r *models.AnalysisResult) string {
	if r.MessageCount == 0 {
		return "No discussion yet."
	}

	line := ""
	if phase.Valid(p) {
		line = phaseSummaries[p] + " "
	}
	line += fmt.Sprintf("%d messages from %d participants.", r.MessageCount, len(r.Contributions))
	if len(r.Keywords) > 0 {
		line += " Recurring themes: " + strings.Join(r.Keywords, ", ") + "."
	}
	return line
}
