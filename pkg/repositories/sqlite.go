package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gametypes "github.com/cbodonnell/skirmish/pkg/game/types"
	"github.com/mattn/go-sqlite3"
)

type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(ctx context.Context, path string, migrations string) (SessionStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}

	return &SQLiteSessionStore{
		db: db,
	}, nil
}

func (s *SQLiteSessionStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteSessionStore) Get(ctx context.Context, id string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions WHERE session_id = ?;
	`
	return s.scanSession(s.db.QueryRowContext(ctx, q, id))
}

func (s *SQLiteSessionStore) GetByName(ctx context.Context, name string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions WHERE name = ?;
	`
	return s.scanSession(s.db.QueryRowContext(ctx, q, name))
}

func (s *SQLiteSessionStore) Create(ctx context.Context, session *gametypes.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	q := `
	INSERT INTO sessions (session_id, name, state)
	VALUES (?, ?, ?);
	`
	if _, err := s.db.ExecContext(ctx, q, session.ID, session.Name, string(state)); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return &ErrNameExists{}
		}
		return fmt.Errorf("failed to insert session: %v", err)
	}

	return nil
}

func (s *SQLiteSessionStore) Save(ctx context.Context, session *gametypes.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	q := `
	UPDATE sessions SET state = ? WHERE session_id = ?;
	`
	result, err := s.db.ExecContext(ctx, q, string(state), session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %v", err)
	}
	if rows == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (s *SQLiteSessionStore) Delete(ctx context.Context, id string) error {
	q := `
	DELETE FROM sessions WHERE session_id = ?;
	`
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %v", err)
	}
	if rows == 0 {
		return &ErrNotFound{}
	}

	return nil
}

func (s *SQLiteSessionStore) FindByMemberID(ctx context.Context, playerID string) (*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions
	WHERE EXISTS (
		SELECT 1 FROM json_each(sessions.state, '$.members')
		WHERE json_each.value = ?
	);
	`
	return s.scanSession(s.db.QueryRowContext(ctx, q, playerID))
}

func (s *SQLiteSessionStore) List(ctx context.Context) ([]*gametypes.Session, error) {
	q := `
	SELECT state FROM sessions;
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %v", err)
	}
	defer rows.Close()

	var sessions []*gametypes.Session
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("failed to scan session: %v", err)
		}
		session := &gametypes.Session{}
		if err := json.Unmarshal([]byte(state), session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %v", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (s *SQLiteSessionStore) scanSession(row *sql.Row) (*gametypes.Session, error) {
	var state string
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan session: %v", err)
	}

	session := &gametypes.Session{}
	if err := json.Unmarshal([]byte(state), session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return session, nil
}
