package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBroadcast(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	client := broker.Subscribe("visitor-1")
	defer broker.Unsubscribe(client)

	broker.Notify(context.Background(), "visitor-1", "error", "Sign-in failed")

	select {
	case n := <-client.Events:
		assert.Equal(t, "error", n.Level)
		assert.Equal(t, "Sign-in failed", n.Message)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotificationsAreScopedToVisitor(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	mine := broker.Subscribe("visitor-1")
	theirs := broker.Subscribe("visitor-2")
	defer broker.Unsubscribe(mine)
	defer broker.Unsubscribe(theirs)

	broker.Notify(context.Background(), "visitor-1", "success", "Signed in")

	select {
	case <-mine.Events:
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}

	select {
	case n := <-theirs.Events:
		t.Fatalf("unexpected cross-visitor notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesDone(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	client := broker.Subscribe("visitor-1")
	require.Equal(t, 1, broker.ClientCount("visitor-1"))

	broker.Unsubscribe(client)
	assert.Equal(t, 0, broker.ClientCount("visitor-1"))

	select {
	case <-client.Done:
	default:
		t.Fatal("Done not closed on unsubscribe")
	}
}

func TestRelayLivesExactlyAsLongAsClients(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	var active atomic.Int32
	feed := make(chan Notification, 8)
	broker.relay = func(ctx context.Context, visitorID string) {
		active.Add(1)
		defer active.Add(-1)
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-feed:
				broker.broadcast(visitorID, n)
			}
		}
	}

	first := broker.Subscribe("visitor-1")
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, 5*time.Millisecond)

	broker.Unsubscribe(first)
	require.Eventually(t, func() bool { return active.Load() == 0 }, time.Second, 5*time.Millisecond)

	second := broker.Subscribe("visitor-1")
	defer broker.Unsubscribe(second)
	require.Eventually(t, func() bool { return active.Load() == 1 }, time.Second, 5*time.Millisecond)

	feed <- Notification{Level: "info", Message: "once"}

	select {
	case n := <-second.Events:
		assert.Equal(t, "once", n.Message)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered after resubscribe")
	}

	select {
	case n := <-second.Events:
		t.Fatalf("duplicate delivery after reconnect: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTotalClients(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	a := broker.Subscribe("visitor-1")
	b := broker.Subscribe("visitor-1")
	c := broker.Subscribe("visitor-2")
	defer broker.Unsubscribe(a)
	defer broker.Unsubscribe(b)
	defer broker.Unsubscribe(c)

	assert.Equal(t, 3, broker.TotalClients())
	assert.Equal(t, 2, broker.ClientCount("visitor-1"))
}
