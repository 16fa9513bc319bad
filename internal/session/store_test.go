package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpdateCreatesAndRemoves(t *testing.T) {
	store := NewStore()

	err := store.Update(42, func(sess *Session) (*Session, error) {
		require.Nil(t, sess)
		return New(42, 100, "tok"), nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	got, ok := store.Peek(42)
	require.True(t, ok)
	require.Equal(t, PhaseChoosingAction, got.Phase)
	require.Equal(t, "tok", got.Token)

	err = store.Update(42, func(sess *Session) (*Session, error) {
		require.NotNil(t, sess)
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, store.Len())
	_, ok = store.Peek(42)
	require.False(t, ok)
}

func TestUpdateSerializesPerUser(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Update(1, func(*Session) (*Session, error) {
		sess := New(1, 1, "t")
		sess.Stats.Total = 0
		return sess, nil
	}))

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = store.Update(1, func(sess *Session) (*Session, error) {
					sess.Stats.Total++ // unguarded read-modify-write
					return sess, nil
				})
			}
		}()
	}
	wg.Wait()

	got, ok := store.Peek(1)
	require.True(t, ok)
	require.Equal(t, workers*perWorker, got.Stats.Total)
}

func TestPeekCopyIsDetached(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Update(1, func(*Session) (*Session, error) {
		sess := New(1, 1, "t")
		sess.Surfaces[SlotStatus] = 10
		sess.Titles[5] = "Basics"
		sess.PendingDeletions = []int{3}
		return sess, nil
	}))

	cp, ok := store.Peek(1)
	require.True(t, ok)
	cp.Surfaces[SlotStatus] = 99
	cp.Titles[5] = "mutated"
	cp.PendingDeletions[0] = 99

	live, ok := store.Peek(1)
	require.True(t, ok)
	require.Equal(t, 10, live.Surfaces[SlotStatus])
	require.Equal(t, "Basics", live.Titles[5])
	require.Equal(t, []int{3}, live.PendingDeletions)
}

func TestEvictIdle(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Update(1, func(*Session) (*Session, error) {
		return New(1, 1, "t"), nil
	}))
	require.NoError(t, store.Update(2, func(*Session) (*Session, error) {
		return New(2, 2, "t"), nil
	}))

	// Age out user 1 only.
	store.entries[1].sess.LastSeen = time.Now().Add(-2 * time.Hour)

	evicted := store.EvictIdle(time.Hour)
	require.Equal(t, 1, evicted)
	require.Equal(t, 1, store.Len())
	_, ok := store.Peek(1)
	require.False(t, ok)
	_, ok = store.Peek(2)
	require.True(t, ok)
}
