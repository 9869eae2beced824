package charette_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/store"
)

func newService(t *testing.T) *charette.Service {
	t.Helper()
	return charette.NewMemoryService(zerolog.Nop())
}

// TestScenario walks the end-to-end flow a facilitator and a participant go through.
func TestScenario(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, err := svc.CreateSession(ctx, models.SessionFields{Title: "Downtown Revitalization"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Downtown Revitalization" || list[0].CurrentPhase != 0 {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := svc.AddParticipant(ctx, sess.ID, "Alice", models.RoleParticipant); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	msgs, err := svc.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %d", len(msgs))
	}

	if _, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, "Hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	msgs, _ = svc.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if len(msgs) != 1 || msgs[0].Text != "Hello" || msgs[0].UserName != "Alice" || msgs[0].RoomID != models.MainRoom {
		t.Fatalf("unexpected messages: %+v", msgs)
	}

	if _, err := svc.CreateBreakoutRooms(ctx, sess.ID, 2, []string{"Q1"}); err != nil {
		t.Fatalf("CreateBreakoutRooms failed: %v", err)
	}
	sess, _ = svc.GetSession(ctx, sess.ID)
	if len(sess.BreakoutRooms) != 2 {
		t.Fatalf("expected 2 breakout rooms, got %d", len(sess.BreakoutRooms))
	}

	room0, room1 := sess.BreakoutRooms[0].ID, sess.BreakoutRooms[1].ID
	if err := svc.JoinRoom(ctx, sess.ID, room0, "Alice"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if err := svc.JoinRoom(ctx, sess.ID, room1, "Alice"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	sess, _ = svc.GetSession(ctx, sess.ID)
	if sess.Room(room0).HasParticipant("Alice") {
		t.Fatal("Alice should no longer be in room 0")
	}

	var current int
	for i := 0; i < 6; i++ {
		if current, err = svc.AdvancePhase(ctx, sess.ID, phase.Next); err != nil {
			t.Fatalf("AdvancePhase failed: %v", err)
		}
	}
	if current != 5 {
		t.Fatalf("expected phase 5, got %d", current)
	}
	if current, _ = svc.AdvancePhase(ctx, sess.ID, phase.Next); current != 5 {
		t.Fatalf("seventh advance moved past terminal: %d", current)
	}
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	if _, err := svc.CreateSession(ctx, models.SessionFields{Title: "  "}); !errors.Is(err, models.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	sess, err := svc.CreateSession(ctx, models.SessionFields{Title: "Parks"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad role", svc.AddParticipant(ctx, sess.ID, "Bob", models.Role("admin")), models.ErrInvalidRole},
		{"empty user", svc.AddParticipant(ctx, sess.ID, " ", models.RoleParticipant), models.ErrEmptyUserName},
		{"join without user", svc.JoinRoom(ctx, sess.ID, "r", ""), models.ErrEmptyUserName},
		{"unknown charette", svc.AddParticipant(ctx, "missing", "Bob", models.RoleParticipant), models.ErrNotFound},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	if _, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Bob", models.RoleParticipant, "   "); !errors.Is(err, models.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, sess.ID, "no-such-room", "Bob", models.RoleParticipant, "hi"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown room, got %v", err)
	}
	if _, err := svc.CreateBreakoutRooms(ctx, sess.ID, 0, nil); !errors.Is(err, models.ErrInvalidRoomCount) {
		t.Errorf("expected ErrInvalidRoomCount, got %v", err)
	}
	if _, err := svc.AdvancePhase(ctx, sess.ID, phase.Direction("up")); !errors.Is(err, models.ErrInvalidDirection) {
		t.Errorf("expected ErrInvalidDirection, got %v", err)
	}
	if current, err := svc.AdvancePhase(ctx, sess.ID, phase.Previous); err != nil || current != 0 {
		t.Errorf("previous at 0: got %d, %v", current, err)
	}
}

func TestDeleteAndAnalyze(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, _ := svc.CreateSession(ctx, models.SessionFields{Title: "Transit"})
	for _, text := range []string{"more buses downtown", "buses at night"} {
		if _, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleAnalyst, text); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	res, err := svc.Analyze(ctx, sess.ID, models.MainRoom)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.MessageCount != 2 || res.Keywords[0] != "buses" {
		t.Fatalf("unexpected analysis: %+v", res)
	}

	if err := svc.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, sess.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ListMessages(ctx, sess.ID, models.MainRoom, 0); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for messages of a deleted charette, got %v", err)
	}
}

func TestLongRoomIsReadCompletely(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, _ := svc.CreateSession(ctx, models.SessionFields{Title: "Long discussion"})
	total := store.DefaultMessageLimit + 10
	for i := 0; i < total; i++ {
		if _, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Alice", models.RoleParticipant, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	msgs, err := svc.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != total || msgs[total-1].Text != fmt.Sprintf("m%d", total-1) {
		t.Fatalf("expected all %d messages, got %d", total, len(msgs))
	}

	res, err := svc.Analyze(ctx, sess.ID, models.MainRoom)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.MessageCount != total {
		t.Fatalf("expected analysis over %d messages, got %d", total, res.MessageCount)
	}
}

func TestLongMessageKeepsValidUTF8(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sess, _ := svc.CreateSession(ctx, models.SessionFields{Title: "Accents"})

	// One ASCII byte puts every two-byte rune boundary off the limit.
	text := "a" + strings.Repeat("é", charette.MaxMessageLength)
	msg, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Zoé", models.RoleParticipant, text)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(msg.Text) > charette.MaxMessageLength {
		t.Errorf("expected at most %d bytes, got %d", charette.MaxMessageLength, len(msg.Text))
	}
	if len(msg.Text) != charette.MaxMessageLength-1 {
		t.Errorf("expected the split rune to be dropped, got %d bytes", len(msg.Text))
	}
	if !utf8.ValidString(msg.Text) {
		t.Error("stored text is not valid UTF-8")
	}

	short, err := svc.SendMessage(ctx, sess.ID, models.MainRoom, "Zoé", models.RoleParticipant, "café")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if short.Text != "café" {
		t.Errorf("short text should be unchanged, got %q", short.Text)
	}
}
