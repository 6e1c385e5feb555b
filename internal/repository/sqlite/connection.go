package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/linkvault/internal/apperror"
	"github.com/sakif/linkvault/internal/model"
	"github.com/sakif/linkvault/internal/repository"
)

var _ repository.ConnectionRepository = (*ConnectionStore)(nil)

// ConnectionStore persists platform connections. Obtain one via
// DB.Connections().
type ConnectionStore struct {
	conn *sql.DB
}

const connectionColumns = `id, user_id, platform, username, url, is_active,
	metadata, access_token, refresh_token, created_at, updated_at`

// scanConnection reads one row, decoding the metadata JSON column into the
// typed struct. An empty or corrupt blob degrades to zero metadata rather
// than failing the read — metadata is display-only.
func scanConnection(row scannable) (*model.Connection, error) {
	var c model.Connection
	var metadata string
	err := row.Scan(
		&c.ID, &c.UserID, &c.Platform, &c.Username, &c.URL, &c.IsActive,
		&metadata, &c.AccessToken, &c.RefreshToken, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if metadata != "" {
		_ = json.Unmarshal([]byte(metadata), &c.Metadata)
	}
	return &c, nil
}

func marshalMetadata(m model.ConnectionMetadata) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Create inserts a connection, generating ID and timestamps.
// Returns apperror.ErrConflict when the user already has a connection for
// the platform — the UNIQUE(user_id, platform) constraint is the source of
// truth, so the check is race-free.
func (s *ConnectionStore) Create(ctx context.Context, conn *model.Connection) error {
	conn.ID = uuid.NewString()
	now := time.Now().UTC()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO connections (id, user_id, platform, username, url, is_active,
			metadata, access_token, refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.UserID, conn.Platform, conn.Username, conn.URL, conn.IsActive,
		marshalMetadata(conn.Metadata), conn.AccessToken, conn.RefreshToken,
		conn.CreatedAt, conn.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Connection for this platform already exists")
		}
		return fmt.Errorf("sqlite: inserting connection (%s/%s): %w", conn.UserID, conn.Platform, err)
	}

	return nil
}

// GetByID retrieves a connection by ID.
func (s *ConnectionStore) GetByID(ctx context.Context, id string) (*model.Connection, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)

	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Connection")
		}
		return nil, fmt.Errorf("sqlite: getting connection %s: %w", id, err)
	}
	return conn, nil
}

// ListByUser returns all of a user's connections, newest first.
func (s *ConnectionStore) ListByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	return s.list(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListActiveByUser returns only active connections — the public listing.
func (s *ConnectionStore) ListActiveByUser(ctx context.Context, userID string) ([]model.Connection, error) {
	return s.list(ctx,
		`SELECT `+connectionColumns+` FROM connections
		 WHERE user_id = ? AND is_active = 1 ORDER BY created_at DESC`, userID)
}

func (s *ConnectionStore) list(ctx context.Context, query string, args ...any) ([]model.Connection, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing connections: %w", err)
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning connection row: %w", err)
		}
		conns = append(conns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating connection rows: %w", err)
	}
	return conns, nil
}

// Update applies only the non-nil fields of patch and returns the updated row.
func (s *ConnectionStore) Update(ctx context.Context, id string, patch repository.ConnectionPatch) (*model.Connection, error) {
	set := []string{}
	args := []any{}

	if patch.Username != nil {
		set = append(set, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.URL != nil {
		set = append(set, "url = ?")
		args = append(args, *patch.URL)
	}
	if patch.IsActive != nil {
		set = append(set, "is_active = ?")
		args = append(args, *patch.IsActive)
	}

	if len(set) > 0 {
		set = append(set, "updated_at = ?")
		args = append(args, time.Now().UTC())
		args = append(args, id)

		query := "UPDATE connections SET " + strings.Join(set, ", ") + " WHERE id = ?"
		res, err := s.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlite: updating connection %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, apperror.NotFound("Connection")
		}
	}

	return s.GetByID(ctx, id)
}

// Delete removes a connection.
func (s *ConnectionStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting connection %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("Connection")
	}
	return nil
}

// Upsert creates or refreshes the (user, platform) connection in one
// statement. ON CONFLICT DO UPDATE makes this race-free under concurrent
// OAuth callbacks — the constraint, not a lookup, decides insert vs update.
func (s *ConnectionStore) Upsert(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	newID := uuid.NewString()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO connections (id, user_id, platform, username, url, is_active,
			metadata, access_token, refresh_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, platform) DO UPDATE SET
			username = excluded.username,
			url = excluded.url,
			metadata = excluded.metadata,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`,
		newID, conn.UserID, conn.Platform, conn.Username, conn.URL,
		marshalMetadata(conn.Metadata), conn.AccessToken, conn.RefreshToken,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting connection (%s/%s): %w", conn.UserID, conn.Platform, err)
	}

	// Read back the canonical row — on the update path the original ID and
	// created_at survive, and the caller needs them.
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE user_id = ? AND platform = ?`,
		conn.UserID, conn.Platform)
	stored, err := scanConnection(row)
	if err != nil {
		return fmt.Errorf("sqlite: re-reading upserted connection: %w", err)
	}
	*conn = *stored
	return nil
}
