package member

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the referenced member id or email does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrEmailExists is returned by Insert when the email is already registered.
	ErrEmailExists = errors.New("email already registered")
)

// Store is the durable record of members and their relationship lists.
//
// Each operation is individually atomic; no multi-record transaction is assumed,
// which is why the Graph composes them as idempotent, independently retryable
// conditional updates rather than relying on cross-record atomicity.
type Store interface {
	// FindByID returns the member with the given id, or ErrNotFound.
	FindByID(ctx context.Context, id string) (Member, error)

	// FindByEmail returns the member registered under the given email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (Member, error)

	// Insert stores a new member (relationship sets empty) and returns it with its
	// assigned id. Returns ErrEmailExists on an email conflict.
	Insert(ctx context.Context, m Member) (Member, error)

	// AddToSet adds value to the member's relationship set if absent (conditional
	// set-add; adding a present value is a no-op). Returns ErrNotFound if the
	// member id does not exist.
	AddToSet(ctx context.Context, id string, field SetField, value string) error

	// RemoveFromSet removes value from the member's relationship set (removing an
	// absent value is a no-op). Returns ErrNotFound if the member id does not exist.
	RemoveFromSet(ctx context.Context, id string, field SetField, value string) error

	// FindManyByIDs returns the members matching the given ids; unknown ids are
	// silently skipped.
	FindManyByIDs(ctx context.Context, ids []string) ([]Member, error)

	// ListOtherThan returns every member except the one with the given id.
	ListOtherThan(ctx context.Context, id string) ([]Member, error)

	// ListAll returns every member. Used by the reconciliation pass.
	ListAll(ctx context.Context) ([]Member, error)

	// SetAvatar updates the member's avatar object key.
	SetAvatar(ctx context.Context, id string, key string) error
}
