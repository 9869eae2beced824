package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	client "github.com/eldtechnologies/charette/clients/go/charette"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/session"
	"github.com/eldtechnologies/charette/internal/timer"
)

var (
	watchUser     string
	watchRole     string
	watchRoom     string
	watchInterval time.Duration
	watchFull     bool
)

const watchHelp = `Commands:
  /room <id|main>   switch room
  /rooms            list breakout rooms
  /next, /prev      change phase (analyst, project_manager)
  /timer [stop]     start or stop the breakout countdown
  /quit             leave
Anything else is sent as a message.`

var watchCmd = &cobra.Command{
	Use:   "watch [charette-id]",
	Short: "Join a charette and follow it live",
	Long: `Join a charette, print messages as they arrive and send every line typed.

` + watchHelp + `

In demo mode the charette id may be omitted; a sample charette is created.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		role, err := parseRole(watchRole)
		if err != nil {
			return err
		}
		remote := connect(role)

		var sessionID string
		switch {
		case len(args) == 1:
			sessionID = args[0]
		case demoMode:
			sess, err := seedDemo(ctx, remote)
			if err != nil {
				return err
			}
			sessionID = sess.ID
		default:
			return errors.New("a charette id is required unless --demo is set")
		}

		opts := session.Options{Interval: watchInterval}
		if watchFull {
			opts.Mode = session.Full
		}
		if c, ok := remote.(*client.Client); ok && opts.Interval == 0 {
			if info, err := c.Info(ctx); err == nil {
				opts.Interval = info.PollInterval()
			}
		}

		ctl := session.NewController(remote, opts, logger)
		w := newWatcher(cmd.OutOrStdout(), ctl)
		ctl.OnChange(w.render)
		ctl.Countdown().OnTick(w.tick)
		ctl.Countdown().OnExpire(func() { w.printf("%s\n", headerStyle.Render("Breakout time is up")) })

		if err := ctl.Open(ctx, sessionID, watchUser, role); err != nil {
			return fmt.Errorf("failed to open charette: %w", err)
		}
		defer ctl.Close(context.Background())

		if models.IsBreakout(watchRoom) {
			if err := ctl.SwitchRoom(ctx, watchRoom); err != nil {
				return fmt.Errorf("failed to enter room: %w", err)
			}
		}

		v := ctl.View()
		w.printf("%s\n%s\n", titleStyle.Render(v.Session.Title), dimStyle.Render("Type /help for commands"))
		return w.loop(ctx, cmd.InOrStdin())
	},
}

// watcher prints view changes and turns input lines into controller calls.
type watcher struct {
	out io.Writer
	ctl *session.Controller

	mu      sync.Mutex
	room    string
	phase   int
	started bool
	printed map[string]bool
}

func newWatcher(out io.Writer, ctl *session.Controller) *watcher {
	return &watcher{out: out, ctl: ctl, printed: make(map[string]bool)}
}

func (w *watcher) printf(format string, args ...interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

// render prints what changed since the last view.
func (w *watcher) render(v session.View) {
	if v.Session == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started || v.RoomID != w.room {
		w.room = v.RoomID
		w.printed = make(map[string]bool)
		fmt.Fprintf(w.out, "%s %s\n", headerStyle.Render("── "+roomLabel(v.Session, v.RoomID)+" ──"), renderPhase(v.Phase))
		if r := v.Session.Room(v.RoomID); r != nil {
			for _, q := range r.Questions {
				fmt.Fprintf(w.out, "  ? %s\n", q)
			}
		}
	} else if v.Phase != w.phase {
		fmt.Fprintf(w.out, "%s %s\n", dimStyle.Render("phase →"), renderPhase(v.Phase))
	}
	w.started = true
	w.phase = v.Phase

	for _, m := range v.Messages {
		if w.printed[m.ID] {
			continue
		}
		w.printed[m.ID] = true
		fmt.Fprintln(w.out, renderMessage(m))
	}
}

// tick announces the countdown each minute and during the last ten seconds.
func (w *watcher) tick(remaining int) {
	if remaining%60 == 0 || remaining <= 10 {
		w.printf("%s %s\n", dimStyle.Render("breakout"), timer.Format(remaining))
	}
}

func (w *watcher) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if w.handle(ctx, line) {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the user asked to quit.
func (w *watcher) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if _, err := w.ctl.Send(ctx, line); err != nil {
			w.fail(err)
		}
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		w.printf("%s\n", watchHelp)
	case "/room":
		target := models.MainRoom
		if len(fields) > 1 {
			target = fields[1]
		}
		if err := w.ctl.SwitchRoom(ctx, target); err != nil {
			w.fail(err)
		}
	case "/rooms":
		v := w.ctl.View()
		if v.Session == nil || len(v.Session.BreakoutRooms) == 0 {
			w.printf("%s\n", dimStyle.Render("No breakout rooms"))
			break
		}
		for _, r := range v.Session.BreakoutRooms {
			w.printf("  %s %s %s\n", titleStyle.Render(r.Name), idStyle.Render(r.ID), dimStyle.Render(strings.Join(r.Participants, ", ")))
		}
	case "/next", "/prev", "/previous":
		d := phase.Next
		if fields[0] != "/next" {
			d = phase.Previous
		}
		if _, err := w.ctl.AdvancePhase(ctx, d); err != nil {
			w.fail(err)
		}
	case "/timer":
		if len(fields) > 1 && fields[1] == "stop" {
			w.ctl.StopBreakoutTimer()
			w.printf("%s\n", dimStyle.Render("breakout timer stopped"))
			break
		}
		minutes, err := w.ctl.StartBreakoutTimer()
		if err != nil {
			w.fail(err)
			break
		}
		w.printf("%s %d min\n", dimStyle.Render("breakout timer started:"), minutes)
	default:
		w.printf("%s\n", errorStyle.Render("unknown command "+fields[0]+"; try /help"))
	}
	return false
}

func (w *watcher) fail(err error) {
	w.printf("%s\n", errorStyle.Render(err.Error()))
}

func init() {
	watchCmd.Flags().StringVarP(&watchUser, "user", "u", "", "Your name (required)")
	watchCmd.Flags().StringVarP(&watchRole, "role", "r", string(models.RoleParticipant), "participant, analyst or project_manager")
	watchCmd.Flags().StringVar(&watchRoom, "room", "", "Breakout room to enter after joining")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Polling interval (default: the server's advertised interval)")
	watchCmd.Flags().BoolVar(&watchFull, "full", false, "Refetch the whole room on every poll instead of only new messages")
	_ = watchCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(watchCmd)
}
