package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
	"github.com/eldtechnologies/charette/internal/poller"
	"github.com/eldtechnologies/charette/internal/timer"
)

// Options configures a Controller.
type Options struct {
	// Interval is the message polling period. Session metadata is polled
	// at twice this period. Defaults to poller.DefaultInterval.
	Interval time.Duration
	Mode     RefreshMode
	// TimerTick is one step of the breakout countdown. Defaults to one second.
	TimerTick time.Duration
}

// Controller drives one session view: it opens a charette for a user, keeps
// it fresh with two pollers, switches rooms and runs the breakout countdown.
type Controller struct {
	remote Remote
	rec    *Reconciler
	logger zerolog.Logger

	messagePoller *poller.Poller
	sessionPoller *poller.Poller
	countdown     *timer.Countdown

	mu    sync.Mutex
	rooms *RoomManager
	user  string
	role  models.Role
}

// NewController creates a controller with nothing open.
func NewController(remote Remote, opts Options, logger zerolog.Logger) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = poller.DefaultInterval
	}
	return &Controller{
		remote:        remote,
		rec:           NewReconciler(remote, opts.Mode, logger),
		logger:        logger,
		messagePoller: poller.New("messages", opts.Interval, nil, logger),
		sessionPoller: poller.New("session", 2*opts.Interval, nil, logger),
		countdown:     timer.New(opts.TimerTick),
	}
}

// Reconciler exposes the view state.
func (c *Controller) Reconciler() *Reconciler {
	return c.rec
}

// Countdown exposes the breakout timer.
func (c *Controller) Countdown() *timer.Countdown {
	return c.countdown
}

// View returns a snapshot of the view.
func (c *Controller) View() View {
	return c.rec.Snapshot()
}

// OnChange registers a callback for view changes.
func (c *Controller) OnChange(fn func(View)) {
	c.rec.OnChange(fn)
}

// User returns the identity the view was opened with.
func (c *Controller) User() (string, models.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.role
}

// Open registers userName on the charette, loads it with the main room's
// messages and starts polling. A previously open charette is closed first.
func (c *Controller) Open(ctx context.Context, sessionID, userName string, role models.Role) error {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return models.ErrEmptyUserName
	}
	role, err := models.ParseRole(string(role))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked(ctx)

	if err := c.remote.AddParticipant(ctx, sessionID, userName, role); err != nil {
		return fmt.Errorf("join charette: %w", err)
	}
	if err := c.rec.load(ctx, sessionID, false, true); err != nil {
		return err
	}

	c.user, c.role = userName, role
	c.rooms = NewRoomManager(c.remote, c.rec, userName, c.logger)

	if err := c.rec.RefreshMessages(ctx, sessionID, models.MainRoom); err != nil {
		c.logger.Debug().Err(err).Str("session", sessionID).Msg("initial message load failed")
	}

	c.sessionPoller.SetFunc(func(ctx context.Context) {
		_ = c.rec.RefreshSession(ctx, sessionID)
	})
	c.sessionPoller.Start()
	c.startMessagePoller(sessionID, models.MainRoom)

	c.logger.Info().Str("session", sessionID).Str("user", userName).Str("role", string(role)).Msg("charette opened")
	return nil
}

// startMessagePoller points the message poller at one room. The callback
// captures the room so a tick that fires after a switch is discarded.
func (c *Controller) startMessagePoller(sessionID, roomID string) {
	c.messagePoller.SetFunc(func(ctx context.Context) {
		_ = c.rec.RefreshMessages(ctx, sessionID, roomID)
	})
	c.messagePoller.Start()
}

// SwitchRoom stops message polling for the active room, switches and resumes
// polling for whichever room is active afterwards.
func (c *Controller) SwitchRoom(ctx context.Context, roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rooms == nil {
		return ErrNoSession
	}

	c.messagePoller.Stop()
	err := c.rooms.SwitchRoom(ctx, roomID)
	c.startMessagePoller(c.rec.SessionID(), c.rec.Room())
	return err
}

// Send posts text to the active room as the open user.
func (c *Controller) Send(ctx context.Context, text string) (*models.Message, error) {
	c.mu.Lock()
	user, role := c.user, c.role
	c.mu.Unlock()

	sessionID, roomID := c.rec.SessionID(), c.rec.Room()
	if sessionID == "" {
		return nil, ErrNoSession
	}
	return c.rec.SendMessage(ctx, sessionID, roomID, user, role, text)
}

// AdvancePhase moves the charette one phase. Only facilitating roles may.
func (c *Controller) AdvancePhase(ctx context.Context, d phase.Direction) (int, error) {
	c.mu.Lock()
	role := c.role
	c.mu.Unlock()

	sessionID := c.rec.SessionID()
	if sessionID == "" {
		return 0, ErrNoSession
	}
	if !role.CanFacilitate() {
		return 0, ErrNotFacilitator
	}
	return c.rec.AdvancePhase(ctx, sessionID, d)
}

// CreateBreakoutRooms creates rooms on the open charette and reloads it.
func (c *Controller) CreateBreakoutRooms(ctx context.Context, count int, questions []string) ([]models.BreakoutRoom, error) {
	sessionID := c.rec.SessionID()
	if sessionID == "" {
		return nil, ErrNoSession
	}
	rooms, err := c.remote.CreateBreakoutRooms(ctx, sessionID, count, questions)
	if err != nil {
		c.logger.Warn().Err(err).Str("session", sessionID).Str("op", "create_breakout_rooms").Msg("create rooms failed")
		return nil, fmt.Errorf("create breakout rooms: %w", err)
	}
	_ = c.rec.load(ctx, sessionID, true, true)
	return rooms, nil
}

// StartBreakoutTimer starts the local countdown from the charette's
// breakout duration and returns the minutes used.
func (c *Controller) StartBreakoutTimer() (int, error) {
	v := c.rec.Snapshot()
	if v.Session == nil {
		return 0, ErrNoSession
	}
	minutes := v.Session.Metadata.BreakoutRoomTime
	if minutes <= 0 {
		minutes = models.DefaultBreakoutMinutes
	}
	c.countdown.Start(minutes)
	return minutes, nil
}

// StopBreakoutTimer cancels the countdown.
func (c *Controller) StopBreakoutTimer() {
	c.countdown.Stop()
}

// Close stops polling and the countdown, leaves the active breakout room
// and clears the view.
func (c *Controller) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked(ctx)
}

func (c *Controller) closeLocked(ctx context.Context) {
	c.messagePoller.Stop()
	c.sessionPoller.Stop()
	c.countdown.Stop()

	sessionID, roomID := c.rec.SessionID(), c.rec.Room()
	if sessionID != "" && models.IsBreakout(roomID) && c.user != "" {
		if err := c.remote.LeaveRoom(ctx, sessionID, roomID, c.user); err != nil {
			c.logger.Warn().Err(err).Str("session", sessionID).Str("room", roomID).Str("op", "leave_room").Msg("leave on close failed")
		}
	}

	if sessionID != "" {
		c.rec.Reset()
	}
	c.rooms = nil
	c.user, c.role = "", ""
}
