/*
Package chat contains the core logic for routing real-time messages between live
member connections.

This file defines the Hub, the single routing actor that owns all room
memberships. Every mutation and every publish flows through one serialized
command loop, which gives per-room mutual exclusion and per-sender FIFO
delivery without fine-grained locking.
*/
package chat

import (
	"github.com/rs/zerolog"

	"kindred/internal/pkg/logx"
)

// commandChannelBuffer sizes the hub's inbound command queue.
const commandChannelBuffer = 1024

type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdUnregister
	cmdJoinPrivate
	cmdPublish
)

// command is a single unit of work for the hub loop. One channel carries all
// kinds so that commands issued by one connection are processed in the order
// they were issued.
type command struct {
	kind   cmdKind
	client *Client

	// roomID applies to cmdJoinPrivate and cmdPublish.
	roomID string

	// data and includeSender apply to cmdPublish only.
	data          []byte
	includeSender bool
}

// Hub owns the registry of live connections and their room subscriptions.
//
// The rooms map is indexed by room id; rooms are created implicitly on first
// join and removed when their last subscriber leaves. The maps are touched
// only by the Run goroutine.
type Hub struct {
	// rooms maps a room id to the set of subscribed connections.
	rooms map[string]map[*Client]struct{}

	// subs is the inverse index: each connection's subscribed room ids.
	subs map[*Client]map[string]struct{}

	// privateOf tracks the single private room a connection may hold; joining
	// another private room replaces it.
	privateOf map[*Client]string

	commands chan command
	stop     chan struct{}

	// done is closed when the Run loop has fully exited.
	done chan struct{}

	logger zerolog.Logger
}

// NewHub constructs a Hub. Call Run in its own goroutine to start routing.
func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		subs:      make(map[*Client]map[string]struct{}),
		privateOf: make(map[*Client]string),
		commands:  make(chan command, commandChannelBuffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Register attaches a resolved connection to the hub and subscribes it to the
// global room, mirroring the broadcast scope every signed-in member shares.
func (h *Hub) Register(c *Client) {
	h.enqueue(command{kind: cmdRegister, client: c})
}

// Unregister releases all of the connection's room memberships and signals its
// teardown. Safe to call more than once; duplicate notifications are ignored.
func (h *Hub) Unregister(c *Client) {
	h.enqueue(command{kind: cmdUnregister, client: c})
}

// JoinPrivate subscribes the connection to the given private room, replacing
// any private room it was subscribed to before. Joining the same room twice is
// a no-op.
func (h *Hub) JoinPrivate(c *Client, roomID string) {
	h.enqueue(command{kind: cmdJoinPrivate, client: c, roomID: roomID})
}

// Publish delivers data to every connection currently subscribed to the room.
// The membership snapshot is taken inside the hub loop, so the fan-out is a
// single atomic broadcast step: connections joining afterwards do not receive
// the message, and a subscriber disconnecting mid-delivery never unwinds the
// broadcast for the others. Publishing to an empty room is a normal no-op.
//
// includeSender controls the delivery asymmetry between scopes: private room
// publishes exclude the sender's own connection (the sender renders its
// message locally), global publishes include it (so every open tab of the
// sender sees the same broadcast).
func (h *Hub) Publish(roomID string, sender *Client, includeSender bool, data []byte) {
	h.enqueue(command{
		kind:          cmdPublish,
		client:        sender,
		roomID:        roomID,
		data:          data,
		includeSender: includeSender,
	})
}

// enqueue submits a command unless the hub is shutting down.
func (h *Hub) enqueue(cmd command) {
	select {
	case h.commands <- cmd:
	case <-h.stop:
	}
}

// Run is the hub's main event loop. It must run in its own goroutine; it owns
// every room membership map until Shutdown is called.
func (h *Hub) Run() {
	defer func() {
		for c := range h.subs {
			c.release()
		}
		h.rooms = nil
		h.subs = nil
		h.privateOf = nil

		h.logger.Info().Msg("Hub loop stopped.")
		close(h.done)
	}()

	h.logger.Info().Msg("Hub loop started.")

	for {
		select {
		case cmd := <-h.commands:
			h.handle(cmd)

		case <-h.stop:
			return
		}
	}
}

// Shutdown stops the routing loop and releases every live connection. It
// blocks until the loop has exited; Run must have been started.
func (h *Hub) Shutdown() {
	select {
	case <-h.stop:
	default:
		close(h.stop)
	}
	<-h.done
}

func (h *Hub) handle(cmd command) {
	switch cmd.kind {
	case cmdRegister:
		h.registerClient(cmd.client)

	case cmdUnregister:
		h.removeClient(cmd.client)

	case cmdJoinPrivate:
		h.joinPrivate(cmd.client, cmd.roomID)

	case cmdPublish:
		h.publish(cmd.roomID, cmd.client, cmd.includeSender, cmd.data)
	}
}

func (h *Hub) registerClient(c *Client) {
	if _, ok := h.subs[c]; ok {
		return
	}

	h.subs[c] = make(map[string]struct{})
	h.joinRoom(c, GlobalRoomID)

	h.logger.Info().
		Str("member_id", c.identity.MemberID).
		Int("connections", len(h.subs)).
		Msg("Connection registered.")
}

// removeClient is the single idempotent teardown path: it releases every room
// membership and closes the connection's done channel exactly once.
func (h *Hub) removeClient(c *Client) {
	roomIDs, ok := h.subs[c]
	if !ok {
		return
	}

	for roomID := range roomIDs {
		h.leaveRoom(c, roomID)
	}

	delete(h.subs, c)
	delete(h.privateOf, c)
	c.release()

	h.logger.Info().
		Str("member_id", c.identity.MemberID).
		Int("connections", len(h.subs)).
		Msg("Connection released.")
}

func (h *Hub) joinPrivate(c *Client, roomID string) {
	if _, ok := h.subs[c]; !ok {
		return
	}

	if current, ok := h.privateOf[c]; ok {
		if current == roomID {
			return
		}
		h.leaveRoom(c, current)
	}

	h.privateOf[c] = roomID
	h.joinRoom(c, roomID)
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[roomID] = room
	}
	room[c] = struct{}{}
	h.subs[c][roomID] = struct{}{}
}

func (h *Hub) leaveRoom(c *Client, roomID string) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}

	if subs, ok := h.subs[c]; ok {
		delete(subs, roomID)
	}
}

func (h *Hub) publish(roomID string, sender *Client, includeSender bool, data []byte) {
	room := h.rooms[roomID]
	if len(room) == 0 {
		// Zero recipients is not an error; the message simply goes nowhere.
		return
	}

	targets := make([]*Client, 0, len(room))
	for c := range room {
		targets = append(targets, c)
	}

	for _, c := range targets {
		if !includeSender && c == sender {
			continue
		}

		select {
		case <-c.done:
			// Released while in the snapshot; skip.
			continue
		default:
		}

		select {
		case c.send <- data:
		default:
			// A receiver that cannot drain its queue is dropped rather than
			// allowed to stall the broadcast for everyone else.
			h.logger.Warn().
				Str("member_id", c.identity.MemberID).
				Str("room_id", roomID).
				Msg("Send queue full, releasing connection.")
			h.removeClient(c)
		}
	}
}
