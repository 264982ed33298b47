package member

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store implementation with the same conditional
// set-update semantics as PGStore. It backs the test suites; nothing about it
// is test-specific, so it also works for throwaway local setups.
type MemStore struct {
	mu      sync.RWMutex
	members map[string]Member
}

// NewMemStore returns an empty in-memory member store.
func NewMemStore() *MemStore {
	return &MemStore{members: make(map[string]Member)}
}

func cloneMember(m Member) Member {
	m.Friends = slices.Clone(m.Friends)
	m.SentRequests = slices.Clone(m.SentRequests)
	m.ReceivedRequests = slices.Clone(m.ReceivedRequests)
	return m
}

// FindByID returns the member with the given id, or ErrNotFound.
func (s *MemStore) FindByID(_ context.Context, id string) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return cloneMember(m), nil
}

// FindByEmail returns the member registered under the given email, or ErrNotFound.
func (s *MemStore) FindByEmail(_ context.Context, email string) (Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.Email == email {
			return cloneMember(m), nil
		}
	}
	return Member{}, ErrNotFound
}

// Insert stores a new member with empty relationship sets and an assigned id.
func (s *MemStore) Insert(_ context.Context, m Member) (Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.Email == m.Email {
			return Member{}, ErrEmailExists
		}
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Friends = []string{}
	m.SentRequests = []string{}
	m.ReceivedRequests = []string{}

	s.members[m.ID] = cloneMember(m)
	return m, nil
}

func (s *MemStore) mutateSet(id string, field SetField, fn func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return ErrNotFound
	}

	switch field {
	case FieldFriends:
		m.Friends = fn(m.Friends)
	case FieldSentRequests:
		m.SentRequests = fn(m.SentRequests)
	case FieldReceivedRequests:
		m.ReceivedRequests = fn(m.ReceivedRequests)
	}

	s.members[id] = m
	return nil
}

// AddToSet appends value to the member's relationship set only when absent.
func (s *MemStore) AddToSet(_ context.Context, id string, field SetField, value string) error {
	return s.mutateSet(id, field, func(set []string) []string {
		if slices.Contains(set, value) {
			return set
		}
		return append(set, value)
	})
}

// RemoveFromSet removes all occurrences of value from the member's relationship set.
func (s *MemStore) RemoveFromSet(_ context.Context, id string, field SetField, value string) error {
	return s.mutateSet(id, field, func(set []string) []string {
		return slices.DeleteFunc(set, func(v string) bool { return v == value })
	})
}

// FindManyByIDs returns the members matching the given ids; unknown ids are skipped.
func (s *MemStore) FindManyByIDs(_ context.Context, ids []string) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := []Member{}
	for _, id := range ids {
		if m, ok := s.members[id]; ok {
			members = append(members, cloneMember(m))
		}
	}
	sortByName(members)
	return members, nil
}

// ListOtherThan returns every member except the one with the given id.
func (s *MemStore) ListOtherThan(_ context.Context, id string) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := []Member{}
	for _, m := range s.members {
		if m.ID != id {
			members = append(members, cloneMember(m))
		}
	}
	sortByName(members)
	return members, nil
}

// ListAll returns every member.
func (s *MemStore) ListAll(_ context.Context) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := []Member{}
	for _, m := range s.members {
		members = append(members, cloneMember(m))
	}
	sortByName(members)
	return members, nil
}

// SetAvatar updates the member's avatar object key.
func (s *MemStore) SetAvatar(_ context.Context, id string, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return ErrNotFound
	}
	m.AvatarKey = key
	s.members[id] = m
	return nil
}

func sortByName(members []Member) {
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
}
