/*
Package member contains the member model, the member store, and the social graph logic.

A member carries three relationship sets (friends, sent requests, received requests).
The sets are kept mutually consistent across records by the Graph operations and,
as a backstop, by the background Reconciler.
*/
package member

import "slices"

// Member represents a registered user identity together with its relationship sets.
// PasswordHash is opaque to everything outside the auth handlers and is never serialized.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Age          int    `json:"age"`
	PasswordHash string `json:"-"`
	AvatarKey    string `json:"avatarKey,omitempty"`

	// Relationship sets: member ids, unique and unordered.
	Friends          []string `json:"friends"`
	SentRequests     []string `json:"sentRequests"`
	ReceivedRequests []string `json:"receivedRequests"`
}

// HasFriend reports whether the given id is in the member's friends set.
func (m Member) HasFriend(id string) bool {
	return slices.Contains(m.Friends, id)
}

// HasSentRequestTo reports whether the member has a pending outgoing request to the given id.
func (m Member) HasSentRequestTo(id string) bool {
	return slices.Contains(m.SentRequests, id)
}

// HasReceivedRequestFrom reports whether the member has a pending incoming request from the given id.
func (m Member) HasReceivedRequestFrom(id string) bool {
	return slices.Contains(m.ReceivedRequests, id)
}

// SetField identifies one of the three relationship set columns of a member record.
type SetField string

const (
	FieldFriends          SetField = "friends"
	FieldSentRequests     SetField = "sent_requests"
	FieldReceivedRequests SetField = "received_requests"
)

// Relationship describes how another member relates to the viewing member.
// It decides which action the profile UI offers (chat, accept, or send request).
type Relationship string

const (
	// RelationshipStrangers means no friendship and no pending request in either direction.
	RelationshipStrangers Relationship = "strangers"

	// RelationshipRequestSentByMe means the viewer has a pending outgoing request to the other member.
	RelationshipRequestSentByMe Relationship = "request_sent_by_me"

	// RelationshipRequestSentToMe means the other member has a pending request to the viewer.
	RelationshipRequestSentToMe Relationship = "request_sent_to_me"

	// RelationshipFriends means both members list each other as friends.
	RelationshipFriends Relationship = "friends"
)
