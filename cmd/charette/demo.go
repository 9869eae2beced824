package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/session"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted charette and check its behavior",
	Long: `Create a charette, post, open breakout rooms, move between them and walk
through every phase, checking each result.

Runs against an in-process store unless --url is given explicitly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := session.Remote(demoService())
		if cmd.Flags().Changed("url") && !demoMode {
			remote = connect(models.RoleProjectManager)
		}
		return runDemo(cmd.Context(), remote, cmd.OutOrStdout())
	},
}

// seedDemo creates a sample charette with two breakout rooms.
func seedDemo(ctx context.Context, remote session.Remote) (*models.Session, error) {
	sess, err := remote.CreateSession(ctx, models.SessionFields{
		Title:       "Downtown Revitalization",
		Description: "Shaping the future of Main Street",
		Metadata: models.Metadata{
			Scope:            "Main Street between 1st and 5th",
			Stakeholders:     "Residents, shop owners, city planning",
			Objectives:       "A walkable, lively downtown",
			Timeframe:        "Two years",
			BreakoutRoomTime: models.DefaultBreakoutMinutes,
		},
		CreatedBy: "Facilitator",
	})
	if err != nil {
		return nil, fmt.Errorf("create demo charette: %w", err)
	}
	if err := remote.AddParticipant(ctx, sess.ID, "Facilitator", models.RoleProjectManager); err != nil {
		return nil, err
	}
	if _, err := remote.CreateBreakoutRooms(ctx, sess.ID, 2, []string{
		"What works well downtown today?",
		"What would bring you downtown more often?",
	}); err != nil {
		return nil, err
	}
	if _, err := remote.SendMessage(ctx, sess.ID, models.MainRoom, "Facilitator", models.RoleProjectManager,
		"Welcome! Introduce yourself, then pick a breakout room with /room."); err != nil {
		return nil, err
	}
	return remote.GetSession(ctx, sess.ID)
}

// runDemo walks the scripted charette and fails on the first unexpected result.
func runDemo(ctx context.Context, remote session.Remote, out io.Writer) error {
	check := func(ok bool, format string, args ...interface{}) error {
		line := fmt.Sprintf(format, args...)
		if !ok {
			fmt.Fprintf(out, "%s %s\n", errorStyle.Render("✗"), line)
			return fmt.Errorf("demo failed: %s", line)
		}
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("✓"), line)
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render("Charette demo"))

	sess, err := remote.CreateSession(ctx, models.SessionFields{Title: "Downtown Revitalization"})
	if err != nil {
		return err
	}
	sessions, err := remote.ListSessions(ctx)
	if err != nil {
		return err
	}
	var listed *models.Session
	for i := range sessions {
		if sessions[i].ID == sess.ID {
			listed = &sessions[i]
		}
	}
	if err := check(listed != nil && listed.CurrentPhase == 0, "created %q at phase 0", sess.Title); err != nil {
		return err
	}

	ctl := session.NewController(remote, session.Options{Interval: 250 * time.Millisecond}, logger)
	if err := ctl.Open(ctx, sess.ID, "Alice", models.RoleProjectManager); err != nil {
		return err
	}
	defer ctl.Close(context.Background())

	msgs, err := remote.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if err != nil {
		return err
	}
	if err := check(len(msgs) == 0, "Alice joined; main room is empty"); err != nil {
		return err
	}

	if _, err := ctl.Send(ctx, "Hello"); err != nil {
		return err
	}
	if err := check(len(ctl.View().Messages) == 1, "Alice's message shows immediately"); err != nil {
		return err
	}
	msgs, err = remote.ListMessages(ctx, sess.ID, models.MainRoom, 0)
	if err != nil {
		return err
	}
	stored := len(msgs) == 1 && msgs[0].Text == "Hello" && msgs[0].UserName == "Alice" && msgs[0].RoomID == models.MainRoom
	if err := check(stored, "store holds exactly one message from Alice in main"); err != nil {
		return err
	}

	rooms, err := ctl.CreateBreakoutRooms(ctx, 2, []string{"Q1"})
	if err != nil {
		return err
	}
	if err := check(len(ctl.View().Session.BreakoutRooms) == 2, "created %d breakout rooms", len(rooms)); err != nil {
		return err
	}

	if err := ctl.SwitchRoom(ctx, rooms[0].ID); err != nil {
		return err
	}
	if err := ctl.SwitchRoom(ctx, rooms[1].ID); err != nil {
		return err
	}
	got, err := remote.GetSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	moved := !got.BreakoutRooms[0].HasParticipant("Alice") && got.BreakoutRooms[1].HasParticipant("Alice")
	if err := check(moved, "Alice moved from %s to %s", rooms[0].Name, rooms[1].Name); err != nil {
		return err
	}

	current, err := ctl.AdvancePhase(ctx, phase.Previous)
	if err != nil {
		return err
	}
	if err := check(current == 0, "previous at the first phase stays at %s", phase.Name(current)); err != nil {
		return err
	}
	for i := 0; i < phase.Count(); i++ {
		if current, err = ctl.AdvancePhase(ctx, phase.Next); err != nil {
			return err
		}
	}
	if err := check(current == phase.Terminal(), "%d× next reaches %s", phase.Count(), phase.Name(current)); err != nil {
		return err
	}
	if current, err = ctl.AdvancePhase(ctx, phase.Next); err != nil {
		return err
	}
	if err := check(current == phase.Terminal(), "next at the last phase stays at %s", phase.Name(current)); err != nil {
		return err
	}

	final, err := remote.GetSession(ctx, sess.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, renderSession(final))
	return nil
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
