package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/charette"
	"github.com/eldtechnologies/charette/internal/models"
	"github.com/eldtechnologies/charette/internal/phase"
)

var _ Remote = (*charette.Service)(nil)

var errRemote = errors.New("remote unavailable")

// fakeRemote records calls on top of an in-memory service and can fail or
// stall selected operations.
type fakeRemote struct {
	*charette.Service

	mu          sync.Mutex
	calls       []string
	failJoin    map[string]error
	failLeave   error
	failGet     error
	failList    error
	ignoreSince bool
	hideAll     bool
	listHook    func(roomID string)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		Service:  charette.NewMemoryService(zerolog.Nop()),
		failJoin: make(map[string]error),
	}
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeRemote) GetSession(ctx context.Context, id string) (*models.Session, error) {
	f.record("get " + id)
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Service.GetSession(ctx, id)
}

func (f *fakeRemote) ListMessages(ctx context.Context, sessionID, roomID string, since int64) ([]models.Message, error) {
	f.record("list " + roomID)
	f.mu.Lock()
	hook, err, ignoreSince, hideAll := f.listHook, f.failList, f.ignoreSince, f.hideAll
	f.mu.Unlock()

	if hook != nil {
		hook(roomID)
	}
	if err != nil {
		return nil, err
	}
	if hideAll {
		return []models.Message{}, nil
	}
	if ignoreSince {
		since = 0
	}
	return f.Service.ListMessages(ctx, sessionID, roomID, since)
}

func (f *fakeRemote) SendMessage(ctx context.Context, sessionID, roomID, userName string, role models.Role, text string) (*models.Message, error) {
	f.record("send " + roomID)
	return f.Service.SendMessage(ctx, sessionID, roomID, userName, role, text)
}

func (f *fakeRemote) JoinRoom(ctx context.Context, sessionID, roomID, userName string) error {
	f.record("join " + roomID)
	f.mu.Lock()
	err := f.failJoin[roomID]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Service.JoinRoom(ctx, sessionID, roomID, userName)
}

func (f *fakeRemote) LeaveRoom(ctx context.Context, sessionID, roomID, userName string) error {
	f.record("leave " + roomID)
	f.mu.Lock()
	err := f.failLeave
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Service.LeaveRoom(ctx, sessionID, roomID, userName)
}

func (f *fakeRemote) AdvancePhase(ctx context.Context, sessionID string, d phase.Direction) (int, error) {
	f.record("phase " + string(d))
	return f.Service.AdvancePhase(ctx, sessionID, d)
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

// fixture creates a charette with two breakout rooms and Alice registered.
func fixture(t *testing.T) (*fakeRemote, *models.Session) {
	t.Helper()
	ctx := context.Background()
	f := newFakeRemote()

	sess, err := f.Service.CreateSession(ctx, models.SessionFields{Title: "Downtown Revitalization"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := f.Service.AddParticipant(ctx, sess.ID, "Alice", models.RoleParticipant); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}
	if _, err := f.Service.CreateBreakoutRooms(ctx, sess.ID, 2, []string{"Q1"}); err != nil {
		t.Fatalf("CreateBreakoutRooms failed: %v", err)
	}
	sess, err = f.Service.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	return f, sess
}

func post(t *testing.T, f *fakeRemote, sessionID, roomID, user, text string) *models.Message {
	t.Helper()
	msg, err := f.Service.SendMessage(context.Background(), sessionID, roomID, user, models.RoleParticipant, text)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	return msg
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

func assertOrdered(t *testing.T, msgs []models.Message) {
	t.Helper()
	ids := make(map[string]bool, len(msgs))
	for i, m := range msgs {
		if ids[m.ID] {
			t.Fatalf("duplicate message %s at index %d", m.ID, i)
		}
		ids[m.ID] = true
		if i > 0 && msgs[i-1].Timestamp > m.Timestamp {
			t.Fatalf("messages out of order at index %d: %d > %d", i, msgs[i-1].Timestamp, m.Timestamp)
		}
	}
}
