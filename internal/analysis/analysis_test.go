package analysis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/eldtechnologies/charette/internal/models"
)

func TestKeywords(t *testing.T) {
	messages := []models.Message{
		{Text: "Parking downtown is scarce"},
		{Text: "More parking and more trees"},
		{Text: "Trees and PARKING, please"},
	}

	got := Keywords(messages, 3)
	want := []string{"parking", "more", "trees"}
	if !slices.Equal(got, want) {
		t.Fatalf("Keywords() = %v, want %v", got, want)
	}
}

func TestFixedAnalyze(t *testing.T) {
	f := &Fixed{Now: func() time.Time { return time.UnixMilli(42) }}
	sess := &models.Session{ID: "s1", CurrentPhase: 3}
	messages := []models.Message{
		{UserName: "Alice", Text: "bike lanes on main street"},
		{UserName: "Bob", Text: "bike parking near the station"},
		{UserName: "Alice", Text: "bike share"},
	}

	res, err := f.Analyze(context.Background(), sess, "main", messages)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Phase != "Ideation" {
		t.Errorf("expected Ideation, got %q", res.Phase)
	}
	if res.MessageCount != 3 || res.Contributions["Alice"] != 2 || res.Contributions["Bob"] != 1 {
		t.Errorf("unexpected counts: %+v", res)
	}
	if len(res.Keywords) == 0 || res.Keywords[0] != "bike" {
		t.Errorf("expected bike as top keyword, got %v", res.Keywords)
	}
	if res.GeneratedAt != 42 {
		t.Errorf("expected injected clock, got %d", res.GeneratedAt)
	}
	if !strings.Contains(res.Summary, "3 messages from 2 participants") {
		t.Errorf("unexpected summary %q", res.Summary)
	}
}

func TestFixedAnalyzeEmpty(t *testing.T) {
	res, err := NewFixed().Analyze(context.Background(), &models.Session{ID: "s1"}, "main", nil)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Summary != "No discussion yet." || len(res.Keywords) != 0 {
		t.Fatalf("unexpected result for empty room: %+v", res)
	}

	if _, err := NewFixed().Analyze(context.Background(), nil, "main", nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for nil session, got %v", err)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The Parking lot, the parking GARAGE and us")
	want := []string{"parking", "lot", "garage"}
	if !slices.Equal(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	if len(Tokenize("a an to")) != 0 {
		t.Error("expected stop words and short words to be dropped")
	}
}
