package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/canvass/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistry_RegisterDeregister(t *testing.T) {
	r := NewRegistry(4)
	ctx := context.Background()

	a, err := r.Register(ctx)
	require.NoError(t, err)
	b, err := r.Register(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, r.Len())

	r.Deregister(a.ID)
	assert.Equal(t, 1, r.Len())

	_, open := <-a.Events
	assert.False(t, open, "deregistered session channel should be closed")

	// Second deregister is a no-op.
	r.Deregister(a.ID)
	assert.Equal(t, 1, r.Len())

	r.Close()
	assert.Equal(t, 0, r.Len())
	_, open = <-b.Events
	assert.False(t, open)

	_, err = r.Register(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegistry_PublishFansOut(t *testing.T) {
	r := NewRegistry(4)
	defer r.Close()
	ctx := context.Background()

	sessions := make([]*Session, 3)
	for i := range sessions {
		s, err := r.Register(ctx)
		require.NoError(t, err)
		sessions[i] = s
	}

	ev := core.Event{Type: core.EventLeaderPendingMatches, LeaderKey: "12345678", At: time.Now()}
	r.Publish(ctx, ev)

	for i, s := range sessions {
		select {
		case got := <-s.Events:
			assert.Equal(t, ev.Type, got.Type, "session %d", i)
			assert.Equal(t, "12345678", got.LeaderKey, "session %d", i)
		default:
			t.Fatalf("session %d received nothing", i)
		}
	}
}

func TestRegistry_SlowSessionDoesNotBlock(t *testing.T) {
	r := NewRegistry(1)
	defer r.Close()
	ctx := context.Background()

	s, err := r.Register(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			r.Publish(ctx, core.Event{Type: core.EventPendingResolved, Affected: int64(i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full session")
	}

	got := <-s.Events
	assert.Equal(t, int64(0), got.Affected, "first event is kept, later ones dropped")
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry(8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Register(ctx)
			if err != nil {
				return
			}
			r.Publish(ctx, core.Event{Type: core.EventPendingCleaned})
			r.Deregister(s.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	r.Close()
}

func TestMulti(t *testing.T) {
	a := NewRegistry(1)
	b := NewRegistry(1)
	defer a.Close()
	defer b.Close()
	ctx := context.Background()

	sa, err := a.Register(ctx)
	require.NoError(t, err)
	sb, err := b.Register(ctx)
	require.NoError(t, err)

	Multi{a, b, LogPublisher{}}.Publish(ctx, core.Event{Type: core.EventImportCompleted})

	assert.Len(t, sa.Events, 1)
	assert.Len(t, sb.Events, 1)
}
