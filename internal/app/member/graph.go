package member

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/logx"
)

// Graph implements the friend-request state machine over the member Store.
//
// Every mutation is a conditional set update, so each operation is idempotent
// and safe to retry: duplicate clicks and network retries converge to the same
// state instead of corrupting it. No cross-record lock is taken; concurrent
// operations on the same pair resolve through the set semantics.
type Graph struct {
	store  Store
	logger zerolog.Logger
}

// NewGraph constructs a Graph over the given store.
func NewGraph(store Store) *Graph {
	return &Graph{
		store:  store,
		logger: logx.Logger().With().Str("component", "Graph").Logger(),
	}
}

// SendRequest records a pending friend request from sender to receiver.
//
// The pending state is mirrored: receiver joins sender's sentRequests and
// sender joins receiver's receivedRequests. Re-sending is a silent no-op.
// A request towards someone who already sent one the other way is allowed;
// the relationship view surfaces that state so the UI offers "accept" instead.
func (g *Graph) SendRequest(ctx context.Context, senderID, receiverID string) *errs.CustomError {
	if senderID == receiverID {
		return errs.NewError(errs.ErrSelfRequest)
	}

	if _, err := g.store.FindByID(ctx, receiverID); err != nil {
		return g.storeError(err, "send_request: receiver lookup failed", receiverID)
	}

	if err := g.store.AddToSet(ctx, senderID, FieldSentRequests, receiverID); err != nil {
		return g.storeError(err, "send_request: sender update failed", senderID)
	}

	if err := g.store.AddToSet(ctx, receiverID, FieldReceivedRequests, senderID); err != nil {
		return g.storeError(err, "send_request: receiver update failed", receiverID)
	}

	g.logger.Info().
		Str("sender_id", senderID).
		Str("receiver_id", receiverID).
		Msg("Friend request recorded.")

	return nil
}

// AcceptRequest establishes a friendship between acceptor and sender and clears
// the pending mirror in both directions.
//
// The friend additions run before the pending removals, so an interruption
// between calls leaves a state that a retry (or the reconciler) repairs rather
// than a lost friendship. A missing prior request is not an error: the adds
// and removes are no-ops where state is already correct, so a duplicate or
// unsolicited accept still converges to a valid friend pair.
func (g *Graph) AcceptRequest(ctx context.Context, acceptorID, senderID string) *errs.CustomError {
	if acceptorID == senderID {
		return errs.NewError(errs.ErrSelfRequest)
	}

	if _, err := g.store.FindByID(ctx, senderID); err != nil {
		return g.storeError(err, "accept_request: sender lookup failed", senderID)
	}

	if err := g.store.AddToSet(ctx, acceptorID, FieldFriends, senderID); err != nil {
		return g.storeError(err, "accept_request: acceptor friend add failed", acceptorID)
	}
	if err := g.store.AddToSet(ctx, senderID, FieldFriends, acceptorID); err != nil {
		return g.storeError(err, "accept_request: sender friend add failed", senderID)
	}

	// Clear the pending pair in the direction it was sent, and the symmetric
	// entries in case both sides had requested each other.
	removals := []struct {
		id    string
		field SetField
		value string
	}{
		{acceptorID, FieldReceivedRequests, senderID},
		{senderID, FieldSentRequests, acceptorID},
		{acceptorID, FieldSentRequests, senderID},
		{senderID, FieldReceivedRequests, acceptorID},
	}

	for _, rm := range removals {
		if err := g.store.RemoveFromSet(ctx, rm.id, rm.field, rm.value); err != nil {
			return g.storeError(err, "accept_request: pending cleanup failed", rm.id)
		}
	}

	g.logger.Info().
		Str("acceptor_id", acceptorID).
		Str("sender_id", senderID).
		Msg("Friend request accepted.")

	return nil
}

// Relationship is a pure read classifying how other relates to self,
// based solely on self's relationship sets.
func (g *Graph) Relationship(self Member, otherID string) Relationship {
	switch {
	case self.HasFriend(otherID):
		return RelationshipFriends
	case self.HasSentRequestTo(otherID):
		return RelationshipRequestSentByMe
	case self.HasReceivedRequestFrom(otherID):
		return RelationshipRequestSentToMe
	default:
		return RelationshipStrangers
	}
}

// Friends resolves the member's friends set to full member records.
func (g *Graph) Friends(ctx context.Context, id string) ([]Member, *errs.CustomError) {
	m, err := g.store.FindByID(ctx, id)
	if err != nil {
		return nil, g.storeError(err, "friends: member lookup failed", id)
	}

	friends, err := g.store.FindManyByIDs(ctx, m.Friends)
	if err != nil {
		return nil, g.storeError(err, "friends: resolve failed", id)
	}
	return friends, nil
}

// ReceivedRequests resolves the member's received-requests set to full member records.
func (g *Graph) ReceivedRequests(ctx context.Context, id string) ([]Member, *errs.CustomError) {
	m, err := g.store.FindByID(ctx, id)
	if err != nil {
		return nil, g.storeError(err, "received_requests: member lookup failed", id)
	}

	senders, err := g.store.FindManyByIDs(ctx, m.ReceivedRequests)
	if err != nil {
		return nil, g.storeError(err, "received_requests: resolve failed", id)
	}
	return senders, nil
}

func (g *Graph) storeError(err error, msg, memberID string) *errs.CustomError {
	if errors.Is(err, ErrNotFound) {
		return errs.NewError(errs.ErrMemberNotFound)
	}

	g.logger.Error().Err(err).Str("member_id", memberID).Msg(msg)
	return errs.NewError(errs.ErrUnknown)
}
