package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kindred/internal/app/session"
)

// newTestClient builds a client without a network connection. The pumps are
// never started; tests read deliveries straight off the send queue.
func newTestClient(hub *Hub, memberID string) *Client {
	return NewClient(hub, nil, session.Identity{
		MemberID: memberID,
		Name:     "member " + memberID,
	})
}

func startHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub
}

// recv pops the next delivery queued for the client.
func recv(t *testing.T, c *Client) []byte {
	t.Helper()

	select {
	case data := <-c.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a delivery")
		return nil
	}
}

// waitReleased blocks until the hub has torn the connection down.
func waitReleased(t *testing.T, c *Client) {
	t.Helper()

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the connection to be released")
	}
}

func TestGlobalBroadcastIncludesSender(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Publish(GlobalRoomID, alice, true, []byte("hello"))

	assert.Equal(t, []byte("hello"), recv(t, alice))
	assert.Equal(t, []byte("hello"), recv(t, bob))
}

func TestPrivateDeliveryExcludesSenderAndOutsiders(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	carol := newTestClient(hub, "carol")
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	roomID := PrivateRoomID("alice", "bob")
	hub.JoinPrivate(alice, roomID)
	hub.JoinPrivate(bob, roomID)

	hub.Publish(roomID, alice, false, []byte("secret"))

	// Commands are processed in order, so once the sentinel arrives the
	// private delivery has already been routed. Anyone whose first delivery
	// is the sentinel provably never received the private message.
	hub.Publish(GlobalRoomID, alice, true, []byte("sentinel"))

	assert.Equal(t, []byte("secret"), recv(t, bob))
	assert.Equal(t, []byte("sentinel"), recv(t, bob))

	assert.Equal(t, []byte("sentinel"), recv(t, alice))
	assert.Equal(t, []byte("sentinel"), recv(t, carol))
}

func TestJoinPrivateReplacesPreviousRoom(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	carol := newTestClient(hub, "carol")
	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	oldRoom := PrivateRoomID("alice", "bob")
	newRoom := PrivateRoomID("alice", "carol")
	hub.JoinPrivate(alice, oldRoom)
	hub.JoinPrivate(bob, oldRoom)
	hub.JoinPrivate(alice, newRoom)

	// Alice left the old room when she joined the new one.
	hub.Publish(oldRoom, bob, false, []byte("stale"))
	hub.Publish(newRoom, carol, false, []byte("fresh"))
	hub.Publish(GlobalRoomID, bob, true, []byte("sentinel"))

	assert.Equal(t, []byte("fresh"), recv(t, alice))
	assert.Equal(t, []byte("sentinel"), recv(t, alice))
}

func TestRejoiningSameRoomIsNoOp(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	roomID := PrivateRoomID("alice", "bob")
	hub.JoinPrivate(alice, roomID)
	hub.JoinPrivate(bob, roomID)
	hub.JoinPrivate(bob, roomID)

	hub.Publish(roomID, alice, false, []byte("once"))
	hub.Publish(GlobalRoomID, alice, true, []byte("sentinel"))

	assert.Equal(t, []byte("once"), recv(t, bob))
	assert.Equal(t, []byte("sentinel"), recv(t, bob))
}

func TestPublishToEmptyRoomIsNoOp(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	hub.Register(alice)

	hub.Publish(PrivateRoomID("nobody", "here"), alice, false, []byte("void"))
	hub.Publish(GlobalRoomID, alice, true, []byte("sentinel"))

	assert.Equal(t, []byte("sentinel"), recv(t, alice))
}

func TestUnregisterReleasesConnectionOnce(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	hub.Unregister(alice)
	hub.Unregister(alice)

	hub.Publish(GlobalRoomID, bob, true, []byte("after"))
	assert.Equal(t, []byte("after"), recv(t, bob))

	// Alice was released and received nothing after leaving.
	waitReleased(t, alice)
	assert.Empty(t, alice.send)
}

func TestSlowReceiverIsDropped(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	// Fill bob's queue to capacity so the next delivery cannot be enqueued.
	for i := 0; i < cap(bob.send); i++ {
		bob.send <- []byte("backlog")
	}

	hub.Publish(GlobalRoomID, alice, false, []byte("overflow"))
	hub.Publish(GlobalRoomID, alice, true, []byte("sentinel"))

	assert.Equal(t, []byte("sentinel"), recv(t, alice))

	// Bob was released: the backlog is intact and the overflow message was
	// never delivered.
	waitReleased(t, bob)
	for i := 0; i < cap(bob.send); i++ {
		assert.Equal(t, []byte("backlog"), recv(t, bob))
	}
	assert.Empty(t, bob.send)
}

func TestShutdownReleasesLiveConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "alice")
	hub.Register(alice)

	hub.Publish(GlobalRoomID, alice, true, []byte("pre-shutdown"))
	assert.Equal(t, []byte("pre-shutdown"), recv(t, alice))

	hub.Shutdown()

	waitReleased(t, alice)
}
