package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/pkg/errs"
)

func inbound(t *testing.T, c *Client, eventType EventType, payload any) {
	t.Helper()

	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": json.RawMessage(payloadBytes),
	})
	require.NoError(t, err)

	c.processInboundEvent(raw)
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()

	var event Event
	require.NoError(t, json.Unmarshal(recv(t, c), &event))
	return event
}

func TestInboundPrivateMessageReachesPeerOnly(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	inbound(t, alice, TypeJoinPrivateRoom, JoinPrivateRoomPayload{PeerID: "bob"})
	inbound(t, bob, TypeJoinPrivateRoom, JoinPrivateRoomPayload{PeerID: "alice"})

	inbound(t, alice, TypePrivateMessage, PrivateMessageInput{PeerID: "bob", Text: "hi"})
	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "sentinel"})

	event := recvEvent(t, bob)
	assert.Equal(t, TypePrivateMessage, event.Type)
	assert.Equal(t, PrivateRoomID("alice", "bob"), event.Room)
	assert.NotEmpty(t, event.ID)
	assert.NotZero(t, event.Timestamp)

	payloadBytes, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	var payload PrivateMessagePayload
	require.NoError(t, json.Unmarshal(payloadBytes, &payload))
	assert.Equal(t, "member alice", payload.Sender)
	assert.Equal(t, "hi", payload.Text)

	// The sender renders its own private message locally; the first thing
	// alice receives is the global sentinel.
	event = recvEvent(t, alice)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}

func TestInboundGlobalMessageIncludesSender(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "hello all"})

	for _, c := range []*Client{alice, bob} {
		event := recvEvent(t, c)
		assert.Equal(t, TypeGlobalMessage, event.Type)
		assert.Equal(t, GlobalRoomID, event.Room)

		payloadBytes, err := json.Marshal(event.Payload)
		require.NoError(t, err)
		var payload GlobalMessagePayload
		require.NoError(t, json.Unmarshal(payloadBytes, &payload))
		assert.Equal(t, "alice", payload.SenderID)
		assert.Equal(t, "member alice", payload.SenderName)
		assert.Equal(t, "hello all", payload.Text)
	}
}

func TestInboundOversizedMessageRejected(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	tooLong := strings.Repeat("x", MaxContentBytes+1)
	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: tooLong})

	event := recvEvent(t, alice)
	assert.Equal(t, TypeError, event.Type)

	payloadBytes, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(payloadBytes, &payload))
	assert.Equal(t, errs.ErrMessageContentTooLong, payload.Code)

	// Nothing was broadcast; bob's first delivery is the follow-up sentinel.
	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "sentinel"})
	event = recvEvent(t, bob)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}

func TestInboundErrorAfterReleaseIsDropped(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	// Fill bob's queue so the next broadcast drops him from the hub.
	for i := 0; i < cap(bob.send); i++ {
		bob.send <- []byte("backlog")
	}
	hub.Publish(GlobalRoomID, alice, false, []byte("overflow"))
	hub.Publish(GlobalRoomID, alice, true, []byte("sentinel"))
	assert.Equal(t, []byte("sentinel"), recv(t, alice))
	waitReleased(t, bob)

	// Bob's read pump may still hand the hub one more event before it notices
	// the teardown. A validation failure in that window must be swallowed, not
	// queued.
	tooLong := strings.Repeat("x", MaxContentBytes+1)
	inbound(t, bob, TypeGlobalMessage, GlobalMessageInput{Text: tooLong})

	for i := 0; i < cap(bob.send); i++ {
		assert.Equal(t, []byte("backlog"), recv(t, bob))
	}
	assert.Empty(t, bob.send)
}

func TestInboundEmptyMessageIgnored(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	hub.Register(alice)

	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: ""})
	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "sentinel"})

	event := recvEvent(t, alice)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}

func TestInboundGarbageIsIgnored(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	hub.Register(alice)

	alice.processInboundEvent([]byte("{not json"))
	alice.processInboundEvent([]byte(`{"type":"NO_SUCH_EVENT","payload":{}}`))
	alice.processInboundEvent([]byte(`{"type":"PRIVATE_MESSAGE","payload":"not an object"}`))

	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "still alive"})
	event := recvEvent(t, alice)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}

func TestJoinPrivateRoomRejectsInvalidPeer(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)

	inbound(t, alice, TypeJoinPrivateRoom, JoinPrivateRoomPayload{PeerID: "alice"})
	inbound(t, alice, TypeJoinPrivateRoom, JoinPrivateRoomPayload{PeerID: ""})

	// Alice never joined a private room, so bob's private message goes nowhere.
	inbound(t, bob, TypeJoinPrivateRoom, JoinPrivateRoomPayload{PeerID: "alice"})
	inbound(t, bob, TypePrivateMessage, PrivateMessageInput{PeerID: "alice", Text: "anyone?"})
	inbound(t, bob, TypeGlobalMessage, GlobalMessageInput{Text: "sentinel"})

	event := recvEvent(t, alice)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}

func TestPrivateMessageToSelfRejected(t *testing.T) {
	hub := startHub(t)

	alice := newTestClient(hub, "alice")
	hub.Register(alice)

	inbound(t, alice, TypePrivateMessage, PrivateMessageInput{PeerID: "alice", Text: "me"})
	inbound(t, alice, TypeGlobalMessage, GlobalMessageInput{Text: "sentinel"})

	event := recvEvent(t, alice)
	assert.Equal(t, TypeGlobalMessage, event.Type)
}
