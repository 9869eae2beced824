package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/metrics"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

// RefreshMode selects how a message refresh is applied to the view.
type RefreshMode int

const (
	// Delta fetches only messages after the cursor and appends them.
	Delta RefreshMode = iota
	// Full fetches the whole room stream and replaces the list.
	Full
)

func (m RefreshMode) String() string {
	if m == Full {
		return "full"
	}
	return "delta"
}

// View is a point-in-time copy of the local state.
type View struct {
	Session  *models.Session
	RoomID   string
	Messages []models.Message
	// Cursor is the timestamp of the newest message in Messages.
	Cursor int64
	Phase  int
}

// PhaseName returns the name of the view's phase.
func (v View) PhaseName() string {
	return phase.Name(v.Phase)
}

// Reconciler owns the local mirror of one charette: the session record, the
// active room and the messages shown for it.
//
// Remote failures during refreshes are logged and leave the view unchanged;
// the next poll tick tries again. A refresh for a key that already has one in
// flight is skipped. A response that arrives after the view moved to another
// charette or room is discarded.
type Reconciler struct {
	remote Remote
	mode   RefreshMode
	logger zerolog.Logger

	mu         sync.Mutex
	sessionID  string
	session    *models.Session
	roomID     string
	generation uint64
	messages   []models.Message
	seen       map[string]struct{}
	// pending holds ids appended by SendMessage that no refresh has returned yet.
	pending map[string]struct{}
	// cursor is the newest timestamp in messages; confirmed is the newest
	// timestamp a refresh has returned and is what delta fetches start from.
	cursor    int64
	confirmed int64
	loadSeq   uint64
	busy      map[string]bool
	listeners []func(View)
}

// NewReconciler creates an empty view.
func NewReconciler(remote Remote, mode RefreshMode, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		remote:  remote,
		mode:    mode,
		logger:  logger,
		roomID:  models.MainRoom,
		seen:    make(map[string]struct{}),
		pending: make(map[string]struct{}),
		busy:    make(map[string]bool),
	}
}

// Mode returns the refresh strategy.
func (r *Reconciler) Mode() RefreshMode {
	return r.mode
}

// OnChange registers fn to receive a snapshot after every change to the view.
// fn runs on the goroutine that made the change and must not block.
func (r *Reconciler) OnChange(fn func(View)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// SessionID returns the open charette, or "".
func (r *Reconciler) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Room returns the active room.
func (r *Reconciler) Room() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomID
}

// Snapshot returns a copy of the view.
func (r *Reconciler) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() View {
	v := View{
		Session:  r.session.Clone(),
		RoomID:   r.roomID,
		Messages: slices.Clone(r.messages),
		Cursor:   r.cursor,
	}
	if r.session != nil {
		v.Phase = r.session.CurrentPhase
	}
	return v
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	listeners := slices.Clone(r.listeners)
	v := r.snapshotLocked()
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// Reset clears the view.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.sessionID = ""
	r.session = nil
	r.loadSeq++
	r.resetRoomLocked(models.MainRoom)
	r.mu.Unlock()
	r.notify()
}

func (r *Reconciler) resetRoomLocked(roomID string) {
	r.roomID = roomID
	r.generation++
	r.messages = nil
	r.seen = make(map[string]struct{})
	r.pending = make(map[string]struct{})
	r.cursor = 0
	r.confirmed = 0
}

// SetRoom makes roomID the active room of sessionID and clears the message
// list and cursor. It reports false when sessionID is no longer open or the
// room is already active.
func (r *Reconciler) SetRoom(sessionID, roomID string) bool {
	r.mu.Lock()
	if r.sessionID != sessionID || r.roomID == roomID {
		r.mu.Unlock()
		return false
	}
	r.resetRoomLocked(roomID)
	r.mu.Unlock()

	r.notify()
	return true
}

// LoadSession fetches the charette and replaces the local session record
// wholesale. Loading a different charette than the open one switches the
// view to it, starting in the main room. On error the view keeps its
// last-known-good state.
func (r *Reconciler) LoadSession(ctx context.Context, id string) error {
	return r.load(ctx, id, false, false)
}

// RefreshSession reloads the open charette. It does nothing when id is not
// the open charette.
func (r *Reconciler) RefreshSession(ctx context.Context, id string) error {
	return r.load(ctx, id, true, false)
}

func sessionKey(id string) string {
	return "session:" + id
}

func messagesKey(sessionID, roomID string) string {
	return "messages:" + sessionID + ":" + roomID
}

// load fetches a session record. A newer load always wins over an older one
// that returns later. force bypasses the busy check.
func (r *Reconciler) load(ctx context.Context, id string, openOnly, force bool) error {
	key := sessionKey(id)

	r.mu.Lock()
	if openOnly && r.sessionID != id {
		r.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("session").Inc()
		return nil
	}
	if r.busy[key] && !force {
		r.mu.Unlock()
		metrics.RefreshSkipped.WithLabelValues("session").Inc()
		return nil
	}
	owner := !r.busy[key]
	r.busy[key] = true
	r.loadSeq++
	seq := r.loadSeq
	r.mu.Unlock()

	sess, err := r.remote.GetSession(ctx, id)

	r.mu.Lock()
	if owner {
		delete(r.busy, key)
	}
	if err != nil {
		r.mu.Unlock()
		metrics.RefreshErrors.WithLabelValues("session").Inc()
		r.logger.Warn().Err(err).Str("session", id).Str("op", "get_session").Msg("session refresh failed")
		return fmt.Errorf("load charette %s: %w", id, err)
	}
	if seq != r.loadSeq || (openOnly && r.sessionID != id) {
		r.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("session").Inc()
		return nil
	}
	if r.sessionID != id {
		r.sessionID = id
		r.resetRoomLocked(models.MainRoom)
	}
	r.session = sess
	r.mu.Unlock()

	r.notify()
	return nil
}

// RefreshMessages fetches the messages of roomID in sessionID and merges them
// into the view. In Delta mode only messages newer than the last refreshed
// timestamp are requested and appended; in Full mode the whole stream
// replaces the list, keeping optimistic messages the store has not returned
// yet. Either way a message id appears at most once and the list stays in
// timestamp order.
//
// A call for a room that is not active is discarded without a remote call.
func (r *Reconciler) RefreshMessages(ctx context.Context, sessionID, roomID string) error {
	key := messagesKey(sessionID, roomID)

	r.mu.Lock()
	if r.sessionID == "" {
		r.mu.Unlock()
		return ErrNoSession
	}
	if r.sessionID != sessionID || r.roomID != roomID {
		r.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("messages").Inc()
		return nil
	}
	if r.busy[key] {
		r.mu.Unlock()
		metrics.RefreshSkipped.WithLabelValues("messages").Inc()
		return nil
	}
	r.busy[key] = true
	gen := r.generation
	var since int64
	if r.mode == Delta {
		since = r.confirmed
	}
	r.mu.Unlock()

	msgs, err := r.remote.ListMessages(ctx, sessionID, roomID, since)

	r.mu.Lock()
	delete(r.busy, key)
	if err != nil {
		r.mu.Unlock()
		metrics.RefreshErrors.WithLabelValues("messages").Inc()
		r.logger.Warn().Err(err).
			Str("session", sessionID).
			Str("room", roomID).
			Str("op", "list_messages").
			Msg("message refresh failed")
		return fmt.Errorf("list messages: %w", err)
	}
	if r.sessionID != sessionID || r.roomID != roomID || r.generation != gen {
		r.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("messages").Inc()
		return nil
	}

	var changed bool
	if r.mode == Full {
		changed = r.replaceLocked(msgs)
	} else {
		changed = r.mergeLocked(msgs)
	}
	r.mu.Unlock()

	if changed {
		r.notify()
	}
	return nil
}

// mergeLocked appends unseen messages and advances the cursors.
func (r *Reconciler) mergeLocked(msgs []models.Message) bool {
	changed := false
	for _, m := range msgs {
		if m.Timestamp > r.confirmed {
			r.confirmed = m.Timestamp
		}
		delete(r.pending, m.ID)
		if _, ok := r.seen[m.ID]; ok {
			continue
		}
		r.seen[m.ID] = struct{}{}
		r.messages = append(r.messages, m)
		changed = true
	}
	if changed {
		r.sortLocked()
	}
	return changed
}

// replaceLocked swaps in the server's list plus still-pending optimistic messages.
func (r *Reconciler) replaceLocked(msgs []models.Message) bool {
	next := make([]models.Message, 0, len(msgs)+len(r.pending))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		delete(r.pending, m.ID)
		next = append(next, m)
		if m.Timestamp > r.confirmed {
			r.confirmed = m.Timestamp
		}
	}
	for _, m := range r.messages {
		if _, ok := r.pending[m.ID]; !ok {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		next = append(next, m)
	}

	changed := !slices.EqualFunc(next, r.messages, func(a, b models.Message) bool {
		return a.ID == b.ID
	})
	r.messages = next
	r.seen = seen
	r.sortLocked()
	return changed
}

func (r *Reconciler) sortLocked() {
	slices.SortStableFunc(r.messages, func(a, b models.Message) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	r.cursor = 0
	if n := len(r.messages); n > 0 {
		r.cursor = r.messages[n-1].Timestamp
	}
}

// SendMessage posts text to roomID and appends the stored message to the view
// immediately. Empty text or an empty user name is rejected before any remote
// call. The message is not appended if the view left the room meanwhile.
func (r *Reconciler) SendMessage(ctx context.Context, sessionID, roomID, userName string, role models.Role, text string) (*models.Message, error) {
	if err := models.ValidateMessage(userName, text); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.sessionID == "" {
		r.mu.Unlock()
		return nil, ErrNoSession
	}
	gen := r.generation
	r.mu.Unlock()

	msg, err := r.remote.SendMessage(ctx, sessionID, roomID, userName, role, text)
	if err != nil {
		r.logger.Warn().Err(err).
			Str("session", sessionID).
			Str("room", roomID).
			Str("op", "send_message").
			Msg("send failed")
		return nil, fmt.Errorf("send message: %w", err)
	}

	r.mu.Lock()
	if r.sessionID != sessionID || r.roomID != roomID || r.generation != gen {
		r.mu.Unlock()
		metrics.StaleDiscarded.WithLabelValues("messages").Inc()
		return msg, nil
	}
	appended := false
	if _, ok := r.seen[msg.ID]; !ok {
		r.seen[msg.ID] = struct{}{}
		r.pending[msg.ID] = struct{}{}
		r.messages = append(r.messages, *msg)
		r.sortLocked()
		appended = true
	}
	r.mu.Unlock()

	if appended {
		r.notify()
	}
	return msg, nil
}

// AdvancePhase sends the phase command and then reloads the charette so the
// view shows the store's phase. The phase is never changed locally. The
// returned phase is the one the store reported for the command.
func (r *Reconciler) AdvancePhase(ctx context.Context, sessionID string, d phase.Direction) (int, error) {
	d, err := phase.ParseDirection(string(d))
	if err != nil {
		return 0, err
	}

	current, err := r.remote.AdvancePhase(ctx, sessionID, d)
	if err != nil {
		r.logger.Warn().Err(err).Str("session", sessionID).Str("op", "advance_phase").Msg("phase change failed")
		return 0, fmt.Errorf("advance phase: %w", err)
	}

	// On failure the session poller picks up the new phase on a later tick.
	_ = r.load(ctx, sessionID, true, true)
	return current, nil
}
