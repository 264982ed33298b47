/*
Package chat contains the core logic for routing real-time messages between live
member connections.

A room is purely a logical broadcast scope: it has no storage and exists only as
the set of currently subscribed connections inside the Hub. Rooms appear on
first join and vanish when their last subscriber leaves.
*/
package chat

import "strconv"

// GlobalRoomID is the well-known identifier of the single global room every
// connection joins on registration.
const GlobalRoomID = "global"

// privateRoomSeparator joins the parts of a private room id.
const privateRoomSeparator = "-"

// PrivateRoomID derives the canonical room id for the unordered pair of member
// ids: the ids are sorted lexicographically and concatenated, with the first
// id's length prefixed. The prefix keeps the encoding unambiguous even for ids
// that contain the separator, so PrivateRoomID(a, b) == PrivateRoomID(b, a)
// and distinct pairs map to distinct ids unconditionally.
func PrivateRoomID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + privateRoomSeparator + a + privateRoomSeparator + b
}
