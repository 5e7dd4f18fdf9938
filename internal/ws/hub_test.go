package ws

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub runs a hub for the duration of the test.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// testClient builds a client without a real connection. The hub only
// touches the send channel and the joined flag, so a nil conn is fine
// as long as the pumps never start.
func testClient(hub *Hub) *Client {
	return &Client{
		id:     "test",
		hub:    hub,
		send:   make(chan Message, 64),
		logger: discardLogger(),
	}
}

// register waits briefly after the channel send; registration goes
// through the run loop, so there's a tiny window before it lands.
func register(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.Register <- c
	time.Sleep(20 * time.Millisecond)
}

func receiveOne(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
		return Message{}
	}
}

func TestBroadcastReachesJoinedClients(t *testing.T) {
	hub := startHub(t)

	alice := testClient(hub)
	bob := testClient(hub)
	register(t, hub, alice)
	register(t, hub, bob)
	alice.joined.Store(true)
	bob.joined.Store(true)

	hub.Broadcast(EventPinCreated, map[string]any{"id": int64(1), "name": "Cafe"})

	for _, c := range []*Client{alice, bob} {
		msg := receiveOne(t, c)
		if msg.Type != EventPinCreated {
			t.Errorf("message type = %q, want %q", msg.Type, EventPinCreated)
		}
	}
}

func TestBroadcastSkipsUnjoinedClients(t *testing.T) {
	hub := startHub(t)

	joined := testClient(hub)
	lurker := testClient(hub)
	register(t, hub, joined)
	register(t, hub, lurker)
	joined.joined.Store(true)

	hub.Broadcast(EventCategoryCreated, map[string]any{"id": int64(3)})

	receiveOne(t, joined)
	select {
	case msg := <-lurker.send:
		t.Errorf("unjoined client received %q, want nothing", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLateJoinerMissesEarlierEvents(t *testing.T) {
	hub := startHub(t)

	c := testClient(hub)
	register(t, hub, c)

	hub.Broadcast(EventPinDeleted, map[string]any{"id": int64(9)})
	time.Sleep(20 * time.Millisecond)

	c.joined.Store(true)
	hub.Broadcast(EventPinUpdated, map[string]any{"id": int64(9)})

	msg := receiveOne(t, c)
	if msg.Type != EventPinUpdated {
		t.Errorf("first delivered message = %q, want %q (pre-join event must not be queued)",
			msg.Type, EventPinUpdated)
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	hub := startHub(t)

	slow := testClient(hub)
	slow.send = make(chan Message) // unbuffered, nobody reading
	register(t, hub, slow)
	slow.joined.Store(true)

	hub.Broadcast(EventPinCreated, map[string]any{"id": int64(1)})
	time.Sleep(50 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after evicting stalled client, want 0", got)
	}
}

func TestUnregisterRemovesClient(t *testing.T) {
	hub := startHub(t)

	c := testClient(hub)
	register(t, hub, c)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("ClientCount() = %d, want 1", got)
	}

	hub.Unregister <- c
	time.Sleep(20 * time.Millisecond)

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
	if _, open := <-c.send; open {
		t.Error("send channel still open after unregister")
	}
}
