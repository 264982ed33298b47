/*
Package chat contains the core logic for routing real-time messages between live
member connections.

This file defines the wire-level event model: the event types exchanged with
clients and the payload structures for each type.
*/
package chat

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of a chat event on the wire.
type EventType string

const (
	// TypeJoinPrivateRoom is a client event subscribing the connection to the
	// private room shared with a peer member.
	TypeJoinPrivateRoom EventType = "JOIN_PRIVATE_ROOM"

	// TypePrivateMessage is both the client send event and the server delivery
	// event for a private pair room.
	TypePrivateMessage EventType = "PRIVATE_MESSAGE"

	// TypeGlobalMessage is both the client send event and the server delivery
	// event for the global room.
	TypeGlobalMessage EventType = "GLOBAL_MESSAGE"

	// TypeError is a server event reporting a rejected client event.
	TypeError EventType = "ERROR"
)

// MaxContentBytes is the maximum allowed size (in bytes) for message text.
const MaxContentBytes = 5000

// Event is the envelope for every server-to-client message.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Room      string    `json:"room,omitempty"`
	Payload   any       `json:"payload"`
	Timestamp int64     `json:"timestamp"`
}

// NewEvent constructs an Event with a fresh id and the current timestamp.
func NewEvent(eventType EventType, roomID string, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Room:      roomID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// JoinPrivateRoomPayload is the client payload for TypeJoinPrivateRoom.
type JoinPrivateRoomPayload struct {
	PeerID string `json:"peerId"`
}

// PrivateMessageInput is the client payload for TypePrivateMessage.
type PrivateMessageInput struct {
	PeerID string `json:"peerId"`
	Text   string `json:"text"`
}

// GlobalMessageInput is the client payload for TypeGlobalMessage.
type GlobalMessageInput struct {
	Text string `json:"text"`
}

// PrivateMessagePayload is the server payload delivered to private room
// subscribers. The sender is identified by display name only, matching what
// the private chat view renders.
type PrivateMessagePayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// GlobalMessagePayload is the server payload delivered to all global room
// subscribers, the sender's own connections included.
type GlobalMessagePayload struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
}

// ErrorPayload is the server payload for TypeError events.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
