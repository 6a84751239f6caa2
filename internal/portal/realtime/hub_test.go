package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func requireEmpty(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubScopedDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	admin := hub.Subscribe(ctx, []string{RoleScope("admin"), AccountScope("a1")})
	resident := hub.Subscribe(ctx, []string{RoleScope("resident"), UnitScope("u1"), AccountScope("a2")})

	hub.Publish([]string{RoleScope("admin")}, Event{Type: "user.logged_in"})
	require.Equal(t, "user.logged_in", recv(t, admin).Type)
	requireEmpty(t, resident)

	hub.Publish([]string{RoleScope("admin"), UnitScope("u1")}, Event{Type: "camera.status_changed"})
	require.Equal(t, "camera.status_changed", recv(t, admin).Type)
	require.Equal(t, "camera.status_changed", recv(t, resident).Type)

	hub.Publish([]string{AccountScope("a2")}, Event{Type: "personal"})
	requireEmpty(t, admin)
	require.Equal(t, "personal", recv(t, resident).Type)
}

func TestHubMatchingScopeDeliversOnce(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscriber holds two of the published scopes; the event must still
	// arrive exactly once.
	sub := hub.Subscribe(ctx, []string{RoleScope("admin"), UnitScope("u1")})
	hub.Publish([]string{RoleScope("admin"), UnitScope("u1")}, Event{Type: "once"})

	require.Equal(t, "once", recv(t, sub).Type)
	requireEmpty(t, sub)
}

func TestHubUnsubscribeOnContextCancel(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx, []string{RoleScope("admin")})
	require.Equal(t, 1, hub.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 },
		time.Second, 10*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after cancel")
}

func TestHubSlowSubscriberDropsEvents(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx, []string{RoleScope("admin")})

	// Publish past the buffer without draining; Publish must never block.
	done := make(chan struct{})
	go func() {
		for range 100 {
			hub.Publish([]string{RoleScope("admin")}, Event{Type: "flood"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered prefix is still there.
	require.Equal(t, "flood", recv(t, ch).Type)
}

func TestHubStampsTimestamp(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := hub.Subscribe(ctx, []string{AccountScope("a1")})
	hub.Publish([]string{AccountScope("a1")}, Event{Type: "stamped"})

	evt := recv(t, ch)
	require.False(t, evt.Timestamp.IsZero())
}
