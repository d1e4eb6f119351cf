package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// DefaultSessionTable is the table connect-pg-simple creates.
const DefaultSessionTable = "sessions"

// SessionStore resolves a session ID to the logged-in user.
type SessionStore interface {
	Lookup(ctx context.Context, sid string) (Identity, error)
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGSessionStore reads sessions written by connect-pg-simple.
type PGSessionStore struct {
	db     Querier
	query  string
	logger *slog.Logger
}

// NewPGSessionStore creates a store over table. An empty table uses DefaultSessionTable.
func NewPGSessionStore(db Querier, table string, logger *slog.Logger) *PGSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = DefaultSessionTable
	}
	return &PGSessionStore{
		db:     db,
		query:  "SELECT sess FROM " + pgx.Identifier{table}.Sanitize() + " WHERE sid = $1 AND expire > now()",
		logger: logger.With("component", "session_store"),
	}
}

// sessionData is the part of the express session we read.
type sessionData struct {
	Passport struct {
		User     passportUser `json:"user"`
		Username string       `json:"username"`
	} `json:"passport"`
}

// passportUser accepts both string and numeric user IDs.
type passportUser string

func (u *passportUser) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = passportUser(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("passport user: %w", err)
	}
	*u = passportUser(n.String())
	return nil
}

// Lookup returns the identity stored in an unexpired session.
func (s *PGSessionStore) Lookup(ctx context.Context, sid string) (Identity, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, s.query, sid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, fmt.Errorf("%w: session not found or expired", ErrNotAuthenticated)
	}
	if err != nil {
		return Identity{}, fmt.Errorf("query session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("unreadable session payload", "error", err)
		return Identity{}, fmt.Errorf("%w: decode session: %v", ErrNotAuthenticated, err)
	}
	if data.Passport.User == "" {
		return Identity{}, ErrNotAuthenticated
	}

	return Identity{
		UserID:   string(data.Passport.User),
		Username: data.Passport.Username,
	}, nil
}
