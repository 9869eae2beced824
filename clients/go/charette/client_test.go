package charette

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/api"
	charettesvc "github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/handlers"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/session"
)

var _ session.Remote = (*Client)(nil)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	svc := charettesvc.NewMemoryService(zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), svc, api.Options{
		Checks:       map[string]handlers.Pinger{"store": svc},
		PollInterval: 2 * time.Second,
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestClientScenario(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	sess, err := c.CreateSession(ctx, models.SessionFields{
		Title:    "Park redesign",
		Metadata: models.Metadata{Scope: "North lot", BreakoutRoomTime: 10},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sess.CurrentPhase != 0 {
		t.Errorf("expected phase 0, got %d", sess.CurrentPhase)
	}

	if err := c.AddParticipant(ctx, sess.ID, "Alice", models.RoleParticipant); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	first, err := c.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, "Trees along the path")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if first.ID == "" || first.Timestamp == 0 {
		t.Errorf("expected server-assigned id and timestamp, got %+v", first)
	}
	second, err := c.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, "More benches")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	all, err := c.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(all))
	}

	newer, err := c.ListMessages(ctx, sess.ID, models.MainRoom, first.Timestamp)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(newer) != 1 || newer[0].ID != second.ID {
		t.Errorf("expected only the second message after the cursor, got %+v", newer)
	}

	rooms, err := c.CreateBreakoutRooms(ctx, sess.ID, 2, []string{"Q1"})
	if err != nil {
		t.Fatalf("CreateBreakoutRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}

	if err := c.JoinRoom(ctx, sess.ID, rooms[0].ID, "Alice"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	got, err := c.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.BreakoutRooms[0].HasParticipant("Alice") {
		t.Errorf("expected Alice in %s", rooms[0].ID)
	}

	if err := c.LeaveRoom(ctx, sess.ID, rooms[0].ID, "Alice"); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
	got, _ = c.GetSession(ctx, sess.ID)
	if got.BreakoutRooms[0].HasParticipant("Alice") {
		t.Errorf("expected Alice to have left %s", rooms[0].ID)
	}
}

func TestClientAdvancePhaseRequiresFacilitator(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	sess, err := c.CreateSession(ctx, models.SessionFields{Title: "Phases"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	c.Role = models.RoleParticipant
	if _, err := c.AdvancePhase(ctx, sess.ID, phase.Next); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	c.Role = models.RoleProjectManager
	p, err := c.AdvancePhase(ctx, sess.ID, phase.Next)
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}
	if p != 1 {
		t.Errorf("expected phase 1, got %d", p)
	}

	p, err = c.AdvancePhase(ctx, sess.ID, phase.Previous)
	if err != nil {
		t.Fatalf("AdvancePhase failed: %v", err)
	}
	if p != 0 {
		t.Errorf("expected phase 0, got %d", p)
	}
	p, _ = c.AdvancePhase(ctx, sess.ID, phase.Previous)
	if p != 0 {
		t.Errorf("expected phase to stay at 0, got %d", p)
	}
}

func TestClientErrorsMatchSentinels(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	if _, err := c.GetSession(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.CreateSession(ctx, models.SessionFields{}); !errors.Is(err, models.ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}

	sess, _ := c.CreateSession(ctx, models.SessionFields{Title: "Errors"})
	_, err := c.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, "   ")
	if !errors.Is(err, models.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if errors.Is(err, models.ErrNotFound) {
		t.Errorf("validation error should not match ErrNotFound")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Errorf("expected a 400 APIError, got %v", err)
	}
}

func TestClientInfoAndHealth(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	info, err := c.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if len(info.Phases) != phase.Count() {
		t.Errorf("expected %d phases, got %d", phase.Count(), len(info.Phases))
	}
	if info.PollInterval() != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %s", info.PollInterval())
	}

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

func TestClientSearch(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	sess, _ := c.CreateSession(ctx, models.SessionFields{Title: "Search"})
	c.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, "Plant oak trees")
	c.SendMessage(ctx, sess.ID, models.MainRoom, "Bob", models.RoleParticipant, "Add a fountain")

	resp, err := c.Search(ctx, sess.ID, "oak trees", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].UserName != "Alice" {
		t.Errorf("expected Alice's message, got %+v", resp.Results)
	}
}

func TestControllerOverHTTP(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	sess, err := c.CreateSession(ctx, models.SessionFields{Title: "Live"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	rooms, err := c.CreateBreakoutRooms(ctx, sess.ID, 1, nil)
	if err != nil {
		t.Fatalf("CreateBreakoutRooms failed: %v", err)
	}

	ctl := session.NewController(c, session.Options{Interval: 10 * time.Millisecond}, zerolog.Nop())
	defer ctl.Close(ctx)

	if err := ctl.Open(ctx, sess.ID, "Alice", models.RoleParticipant); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := ctl.Send(ctx, "hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	other := NewClient(c.BaseURL)
	if _, err := other.SendMessage(ctx, sess.ID, models.MainRoom, "Bob", models.RoleParticipant, "hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	waitFor(t, "Bob's message", func() bool { return len(ctl.View().Messages) == 2 })

	if err := ctl.SwitchRoom(ctx, rooms[0].ID); err != nil {
		t.Fatalf("SwitchRoom failed: %v", err)
	}
	if v := ctl.View(); v.RoomID != rooms[0].ID || len(v.Messages) != 0 {
		t.Errorf("expected empty view of %s, got room %s with %d messages", rooms[0].ID, v.RoomID, len(v.Messages))
	}

	got, err := other.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.BreakoutRooms[0].HasParticipant("Alice") {
		t.Errorf("expected Alice in %s after switching", rooms[0].ID)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
