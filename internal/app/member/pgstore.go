package member

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kindred/internal/app/db"
)

// setColumns whitelists the relationship set columns addressable through
// AddToSet/RemoveFromSet. Column names are interpolated into SQL, so only
// values from this map are ever used.
var setColumns = map[SetField]string{
	FieldFriends:          "friends",
	FieldSentRequests:     "sent_requests",
	FieldReceivedRequests: "received_requests",
}

const memberColumns = `id::text, name, email, age, password_hash, avatar_key,
	friends::text[], sent_requests::text[], received_requests::text[]`

// PGStore is the PostgreSQL-backed member store.
//
// Relationship sets are uuid[] columns; set semantics are enforced by
// conditional updates (append only when absent), so every mutation is
// idempotent and individually atomic.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by the given connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.Age, &m.PasswordHash, &m.AvatarKey,
		&m.Friends, &m.SentRequests, &m.ReceivedRequests,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("scan member: %w", err)
	}
	return m, nil
}

// validID reports whether id is a well-formed member id. A malformed id can
// never reference an existing record, so callers map it to ErrNotFound.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// FindByID returns the member with the given id, or ErrNotFound.
func (s *PGStore) FindByID(ctx context.Context, id string) (Member, error) {
	if !validID(id) {
		return Member{}, ErrNotFound
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1::uuid`, id)
	return scanMember(row)
}

// FindByEmail returns the member registered under the given email, or ErrNotFound.
func (s *PGStore) FindByEmail(ctx context.Context, email string) (Member, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = $1`, email)
	return scanMember(row)
}

// Insert stores a new member with empty relationship sets and a freshly
// assigned id. Returns ErrEmailExists when the email is already registered.
func (s *PGStore) Insert(ctx context.Context, m Member) (Member, error) {
	m.ID = uuid.New().String()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO members (id, name, email, age, password_hash, avatar_key)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		m.ID, m.Name, m.Email, m.Age, m.PasswordHash, m.AvatarKey)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return Member{}, ErrEmailExists
		}
		return Member{}, fmt.Errorf("insert member: %w", err)
	}

	m.Friends = []string{}
	m.SentRequests = []string{}
	m.ReceivedRequests = []string{}

	return m, nil
}

// AddToSet appends value to the member's relationship set only when absent.
func (s *PGStore) AddToSet(ctx context.Context, id string, field SetField, value string) error {
	col, ok := setColumns[field]
	if !ok {
		return fmt.Errorf("unknown set field %q", field)
	}
	if !validID(id) {
		return ErrNotFound
	}
	if !validID(value) {
		return fmt.Errorf("invalid set value %q", value)
	}

	query := fmt.Sprintf(
		`UPDATE members SET %[1]s = array_append(%[1]s, $2::uuid)
		 WHERE id = $1::uuid AND NOT ($2::uuid = ANY(%[1]s))`, col)

	tag, err := s.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("add to %s: %w", col, err)
	}

	// Zero rows means either the value was already present (fine) or the member
	// does not exist; distinguish the two.
	if tag.RowsAffected() == 0 {
		return s.ensureExists(ctx, id)
	}
	return nil
}

// RemoveFromSet removes all occurrences of value from the member's relationship set.
func (s *PGStore) RemoveFromSet(ctx context.Context, id string, field SetField, value string) error {
	col, ok := setColumns[field]
	if !ok {
		return fmt.Errorf("unknown set field %q", field)
	}
	if !validID(id) {
		return ErrNotFound
	}
	if !validID(value) {
		return fmt.Errorf("invalid set value %q", value)
	}

	query := fmt.Sprintf(
		`UPDATE members SET %[1]s = array_remove(%[1]s, $2::uuid) WHERE id = $1::uuid`, col)

	tag, err := s.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", col, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ensureExists(ctx context.Context, id string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM members WHERE id = $1::uuid)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check member exists: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// FindManyByIDs returns the members matching the given ids; unknown or
// malformed ids are skipped.
func (s *PGStore) FindManyByIDs(ctx context.Context, ids []string) ([]Member, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []Member{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ANY($1::uuid[]) ORDER BY name`, valid)
	if err != nil {
		return nil, fmt.Errorf("find members by ids: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// ListOtherThan returns every member except the one with the given id.
func (s *PGStore) ListOtherThan(ctx context.Context, id string) ([]Member, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id <> $1::uuid ORDER BY name`, id)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// ListAll returns every member.
func (s *PGStore) ListAll(ctx context.Context) ([]Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list all members: %w", err)
	}
	defer rows.Close()

	return collectMembers(rows)
}

// SetAvatar updates the member's avatar object key.
func (s *PGStore) SetAvatar(ctx context.Context, id string, key string) error {
	if !validID(id) {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE members SET avatar_key = $2 WHERE id = $1::uuid`, id, key)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectMembers(rows pgx.Rows) ([]Member, error) {
	members := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}
