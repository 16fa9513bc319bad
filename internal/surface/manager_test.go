package surface

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/wordbot/internal/session"
)

type fakeTransport struct {
	nextID  int
	sent    []int
	edited  []int
	deleted []int

	editErr   error
	deleteErr error
}

func (f *fakeTransport) Send(_ context.Context, _ int64, _ string, _ *tele.ReplyMarkup) (int, error) {
	f.nextID++
	f.sent = append(f.sent, f.nextID)
	return f.nextID, nil
}

func (f *fakeTransport) Edit(_ context.Context, _ int64, messageID int, _ string, _ *tele.ReplyMarkup) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, messageID)
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, _ int64, messageID int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func TestShowOrUpdateReusesSurface(t *testing.T) {
	tr := &fakeTransport{}
	mgr := NewManager(tr)
	sess := session.New(1, 10, "tok")
	ctx := context.Background()

	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotInteractive, "first", nil))
	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotInteractive, "second", nil))

	require.Len(t, tr.sent, 1, "exactly one surface created")
	require.Len(t, tr.edited, 1, "second call must edit in place")
	require.Equal(t, tr.sent[0], tr.edited[0])
	require.Equal(t, tr.sent[0], sess.Surfaces[session.SlotInteractive])
}

func TestSlotsAreIndependent(t *testing.T) {
	tr := &fakeTransport{}
	mgr := NewManager(tr)
	sess := session.New(1, 10, "tok")
	ctx := context.Background()

	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotStatus, "stats", nil))
	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotInteractive, "quiz", nil))

	require.Len(t, tr.sent, 2)
	require.NotEqual(t, sess.Surfaces[session.SlotStatus], sess.Surfaces[session.SlotInteractive])
}

func TestShowOrUpdateRecreatesOnEditFailure(t *testing.T) {
	tr := &fakeTransport{}
	mgr := NewManager(tr)
	sess := session.New(1, 10, "tok")
	ctx := context.Background()

	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotStatus, "menu", nil))
	staleID := sess.Surfaces[session.SlotStatus]

	tr.editErr = errors.New("message to edit not found")
	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotStatus, "menu again", nil))

	require.Len(t, tr.sent, 2)
	require.NotEqual(t, staleID, sess.Surfaces[session.SlotStatus])
	require.Contains(t, sess.PendingDeletions, staleID)
}

func TestClearPendingIsBestEffort(t *testing.T) {
	tr := &fakeTransport{}
	mgr := NewManager(tr)
	sess := session.New(1, 10, "tok")
	ctx := context.Background()

	mgr.ScheduleDeletion(sess, 7)
	mgr.ScheduleDeletion(sess, 8)
	require.Empty(t, tr.deleted, "deletion must be deferred, never synchronous")

	tr.deleteErr = errors.New("message to delete not found")
	mgr.ClearPending(ctx, sess)
	require.Empty(t, sess.PendingDeletions, "failures are swallowed and the queue drained")

	mgr.ScheduleDeletion(sess, 9)
	tr.deleteErr = nil
	mgr.ClearPending(ctx, sess)
	require.Equal(t, []int{9}, tr.deleted)
}

func TestDropAll(t *testing.T) {
	tr := &fakeTransport{}
	mgr := NewManager(tr)
	sess := session.New(1, 10, "tok")
	ctx := context.Background()

	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotStatus, "a", nil))
	require.NoError(t, mgr.ShowOrUpdate(ctx, sess, session.SlotInteractive, "b", nil))

	mgr.DropAll(sess)
	require.Empty(t, sess.Surfaces)
	require.Len(t, sess.PendingDeletions, 2)

	mgr.ClearPending(ctx, sess)
	require.Len(t, tr.deleted, 2)
}
