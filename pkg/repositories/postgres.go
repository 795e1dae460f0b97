package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresSessionStore struct {
	conn *pgx.Conn
}

// NewPostgresSessionStore connects to the database and returns a store.
// The caller is responsible for calling Close() on the store.
func NewPostgresSessionStore(ctx context.Context, connStr string) (SessionStore, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	return &PostgresSessionStore{
		conn: conn,
	}, nil
}

func (s *PostgresSessionStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *PostgresSessionStore) Get(ctx context.Context, id string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions WHERE session_id = $1;
	`
	return s.scanSession(s.conn.QueryRow(ctx, q, id))
}

func (s *PostgresSessionStore) GetByName(ctx context.Context, name string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions WHERE name = $1;
	`
	return s.scanSession(s.conn.QueryRow(ctx, q, name))
}

func (s *PostgresSessionStore) Create(ctx context.Context, session *gametypes.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	q := `
	INSERT INTO sessions (session_id, name, state) VALUES ($1, $2, $3);
	`
	if _, err := s.conn.Exec(ctx, q, session.ID, session.Name, state); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return &ErrNameExists{}
		}
		return fmt.Errorf("failed to insert session: %v", err)
	}

	return nil
}

func (s *PostgresSessionStore) Save(ctx context.Context, session *gametypes.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	q := `
	UPDATE sessions SET state = $2 WHERE session_id = $1;
	`
	result, err := s.conn.Exec(ctx, q, session.ID, state)
	if err != nil {
		return fmt.Errorf("failed to update session: %v", err)
	}
	if result.RowsAffected() == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (s *PostgresSessionStore) Delete(ctx context.Context, id string) error {
	q := `
	DELETE FROM sessions WHERE session_id = $1;
	`
	result, err := s.conn.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}
	if result.RowsAffected() == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (s *PostgresSessionStore) FindByMemberID(ctx context.Context, playerID string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions WHERE state->'members' ? $1;
	`
	return s.scanSession(s.conn.QueryRow(ctx, q, playerID))
}

func (s *PostgresSessionStore) List(ctx context.Context) ([]*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions;
	`
	rows, err := s.conn.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %v", err)
	}
	defer rows.Close()

	var sessions []*gametypes.Session
	for rows.Next() {
		var state []byte
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan session: %v", err)
		}
		session := &gametypes.Session{}
		if err := json.Unmarshal(state, session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %v", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (s *PostgresSessionStore) scanSession(row pgx.Row) (*gametypes.Session, error) {
	var state []byte
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan session: %v", err)
	}

	session := &gametypes.Session{}
	if err := json.Unmarshal(state, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return session, nil
}
