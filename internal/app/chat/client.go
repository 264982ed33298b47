/*
Package chat contains the core logic for routing real-time messages between live
member connections.

This file defines the Client struct, representing an active WebSocket connection
bound to one authenticated member. It manages the connection's lifecycle, the
message communication loops (ReadPump and WritePump), and routing of inbound
events into the Hub.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"kindred/internal/app/session"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// capacity of the per-connection outbound queue.
	sendChannelBuffer = 256
)

// Client represents an active WebSocket connection and the member it
// authenticated as. The identity is attached once at handshake time by the
// session bridge; inbound payloads never override it.
type Client struct {
	// the hub routing this connection's room traffic.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// identity resolved by the session bridge at handshake time.
	identity session.Identity

	// a buffered channel used to queue messages waiting to be sent to the client.
	// Never closed; release signalling goes through done so that a goroutine
	// racing the teardown can never send on a closed channel.
	send chan []byte

	// done is closed by the hub exactly once when the connection is released.
	done chan struct{}

	// releaseOnce guards done against double close on repeated disconnect
	// notifications.
	releaseOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for a resolved connection.
func NewClient(hub *Hub, conn *websocket.Conn, identity session.Identity) *Client {
	clientLogger := logx.Logger().With().
		Str("member_id", identity.MemberID).
		Logger()

	return &Client{
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, sendChannelBuffer),
		done:     make(chan struct{}),
		logger:   clientLogger,
	}
}

// ReadPump handles reading events from the WebSocket connection.
// It handles heartbeats (Pong), event parsing, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInboundEvent(messageBytes)
	}
}

// cleanupOnDisconnect releases the connection's room memberships and closes the
// socket when ReadPump terminates. The hub ignores duplicate unregisters, so a
// repeated notification cannot double-release.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInboundEvent handles a raw event received from the client. The sender
// identity for any resulting broadcast comes from the bridged identity, never
// from the payload.
func (c *Client) processInboundEvent(messageBytes []byte) {
	var inbound struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case TypeJoinPrivateRoom:
		c.handleJoinPrivateRoom(inbound.Payload)

	case TypePrivateMessage:
		c.handlePrivateMessage(inbound.Payload)

	case TypeGlobalMessage:
		c.handleGlobalMessage(inbound.Payload)

	default:
		c.logger.Warn().Str("event_type", string(inbound.Type)).Msg("Client sent unsupported event type")
	}
}

// handleJoinPrivateRoom subscribes the connection to the pair room shared with
// the requested peer.
func (c *Client) handleJoinPrivateRoom(payloadBytes json.RawMessage) {
	var payload JoinPrivateRoomPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JOIN_PRIVATE_ROOM payload")
		return
	}

	if payload.PeerID == "" || payload.PeerID == c.identity.MemberID {
		c.logger.Warn().Str("peer_id", payload.PeerID).Msg("Rejected private room join with invalid peer")
		return
	}

	c.hub.JoinPrivate(c, PrivateRoomID(c.identity.MemberID, payload.PeerID))
}

// handlePrivateMessage publishes a message into the pair room shared with the
// peer. The sender's own connection is excluded from delivery by contract.
func (c *Client) handlePrivateMessage(payloadBytes json.RawMessage) {
	var payload PrivateMessageInput
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid PRIVATE_MESSAGE payload")
		return
	}

	if payload.PeerID == "" || payload.PeerID == c.identity.MemberID {
		c.logger.Warn().Str("peer_id", payload.PeerID).Msg("Rejected private message with invalid peer")
		return
	}

	if !c.validateText(payload.Text) {
		return
	}

	roomID := PrivateRoomID(c.identity.MemberID, payload.PeerID)
	event := NewEvent(TypePrivateMessage, roomID, PrivateMessagePayload{
		Sender: c.identity.Name,
		Text:   payload.Text,
	})

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal private message event")
		return
	}

	c.hub.Publish(roomID, c, false, data)
}

// handleGlobalMessage publishes a message into the global room. Delivery
// includes the sender's own connection so every open tab sees one consistent
// broadcast.
func (c *Client) handleGlobalMessage(payloadBytes json.RawMessage) {
	var payload GlobalMessageInput
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid GLOBAL_MESSAGE payload")
		return
	}

	if !c.validateText(payload.Text) {
		return
	}

	event := NewEvent(TypeGlobalMessage, GlobalRoomID, GlobalMessagePayload{
		SenderID:   c.identity.MemberID,
		SenderName: c.identity.Name,
		Text:       payload.Text,
	})

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal global message event")
		return
	}

	c.hub.Publish(GlobalRoomID, c, true, data)
}

func (c *Client) validateText(text string) bool {
	if text == "" {
		return false
	}

	if len(text) > MaxContentBytes {
		c.SendError(errs.NewError(errs.ErrMessageContentTooLong))
		return false
	}

	return true
}

// WritePump handles writing messages from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case <-c.done:
			c.writeCloseMessage()
			return

		case message := <-c.send:
			if !c.writeQueuedMessage(message) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writeCloseMessage tells the peer the connection is going away after the hub
// released it.
func (c *Client) writeCloseMessage() {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on close")
		return
	}

	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing close message")
	}
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// SendError constructs and sends a TypeError event to the client.
func (c *Client) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	event := NewEvent(TypeError, "", ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})

	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal error event")
		return
	}

	select {
	case <-c.done:
		// The hub already released this connection; nothing to tell it.
		return
	default:
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping error event")
	}
}

// release marks the connection as torn down, exactly once. Only the hub calls
// this, from its serialized loop. The send queue itself is never closed, so
// the read pump can keep reporting errors right up to release without racing
// a channel close.
func (c *Client) release() {
	c.releaseOnce.Do(func() {
		close(c.done)
	})
}
