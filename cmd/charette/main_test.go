package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/session"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	svc := charette.NewMemoryService(zerolog.Nop())

	if err := runDemo(context.Background(), svc, &out); err != nil {
		t.Fatalf("runDemo failed: %v\n%s", err, out.String())
	}
	if strings.Contains(out.String(), "✗") {
		t.Errorf("demo reported a failed check:\n%s", out.String())
	}
	if !strings.Contains(out.String(), models.Phases[len(models.Phases)-1]) {
		t.Errorf("expected the final phase in the summary:\n%s", out.String())
	}
}

func TestDemoModeCommands(t *testing.T) {
	out, err := execute(t, "--demo", "create", "--title", "Riverfront", "--scope", "East bank")
	if err != nil {
		t.Fatalf("create failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Riverfront") || !strings.Contains(out, "East bank") {
		t.Errorf("unexpected create output:\n%s", out)
	}

	sessions, err := demoService().ListSessions(context.Background())
	if err != nil || len(sessions) == 0 {
		t.Fatalf("expected the created charette in the demo store, got %v (%v)", sessions, err)
	}
	id := sessions[len(sessions)-1].ID

	if out, err = execute(t, "--demo", "post", id, "Boardwalk", "please", "--user", "Alice"); err != nil {
		t.Fatalf("post failed: %v\n%s", err, out)
	}
	if out, err = execute(t, "--demo", "history", id); err != nil || !strings.Contains(out, "Boardwalk please") {
		t.Errorf("expected the posted message in history, got %v:\n%s", err, out)
	}

	if out, err = execute(t, "--demo", "phase", id, "next", "--role", "participant"); err == nil {
		t.Errorf("expected a participant to be refused a phase change:\n%s", out)
	}
	if out, err = execute(t, "--demo", "phase", id, "next", "--role", "analyst"); err != nil {
		t.Fatalf("phase failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, models.Phases[1]) {
		t.Errorf("expected phase %q in output:\n%s", models.Phases[1], out)
	}

	if out, err = execute(t, "--demo", "export", id, "--format", "yaml"); err != nil {
		t.Fatalf("export failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Boardwalk please") || !strings.Contains(out, "title: Riverfront") {
		t.Errorf("unexpected yaml export:\n%s", out)
	}

	if _, err = execute(t, "--demo", "export", id, "--format", "csv"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
	if _, err = execute(t, "--demo", "post", id, "   ", "--user", "Alice"); err == nil {
		t.Error("expected an error for an empty message")
	}
}

func TestWatcherHandle(t *testing.T) {
	ctx := context.Background()
	svc := charette.NewMemoryService(zerolog.Nop())
	sess, err := seedDemo(ctx, svc)
	if err != nil {
		t.Fatalf("seedDemo failed: %v", err)
	}

	ctl := session.NewController(svc, session.Options{Interval: 20 * time.Millisecond}, zerolog.Nop())
	var out bytes.Buffer
	w := newWatcher(&out, ctl)
	ctl.OnChange(w.render)

	if err := ctl.Open(ctx, sess.ID, "Bob", models.RoleParticipant); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if w.handle(ctx, "I like the bakery") {
		t.Fatal("a message should not quit")
	}
	msgs, _ := svc.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if len(msgs) != 2 || msgs[1].Text != "I like the bakery" {
		t.Errorf("expected Bob's message to be stored, got %+v", msgs)
	}

	room := sess.BreakoutRooms[0]
	w.handle(ctx, "/room "+room.ID)
	if got := ctl.View().RoomID; got != room.ID {
		t.Errorf("expected active room %s, got %s", room.ID, got)
	}

	w.handle(ctx, "/next")
	if v := ctl.View(); v.Phase != 0 {
		t.Errorf("a participant should not change the phase, got %d", v.Phase)
	}

	w.handle(ctx, "/bogus")
	if !w.handle(ctx, "/quit") {
		t.Error("expected /quit to quit")
	}
	ctl.Close(ctx)

	text := out.String()
	for _, want := range []string{"Main Room", "Welcome!", room.Name, session.ErrNotFacilitator.Error(), "unknown command /bogus"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := parseRole(""); err != nil || r != models.RoleParticipant {
		t.Errorf("expected participant for empty role, got %q (%v)", r, err)
	}
	if _, err := parseRole("wizard"); err == nil {
		t.Error("expected an error for an unknown role")
	}
}
