package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/contactrelay/internal/logger"
)

// Store defines the interface for identity persistence.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetIdentity retrieves an identity by chat ID. Returns nil, nil if not found.
	GetIdentity(ctx context.Context, chatID string) (*Identity, error)

	// InsertIdentity inserts a new identity. It returns false without error when a
	// row for the same chat ID already exists.
	InsertIdentity(ctx context.Context, identity *Identity) (bool, error)

	// UpdateIdentity overwrites the mutable fields of an existing identity.
	UpdateIdentity(ctx context.Context, identity *Identity) error

	// FindIdentitiesByPhone retrieves identities with the given phone number.
	FindIdentitiesByPhone(ctx context.Context, phone string) ([]*Identity, error)

	// ListIdentities retrieves identities ordered by most recent update.
	ListIdentities(ctx context.Context, limit, offset int) ([]*Identity, error)

	// RunSQLMaintenance performs database maintenance (VACUUM or ANALYZE).
	RunSQLMaintenance(ctx context.Context) error
}

const identityColumns = `id, chat_id, username, first_name, last_name, phone_number, created_at, updated_at`

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetIdentity retrieves an identity by chat ID. Returns nil, nil if not found.
func (s *sqlxStore) GetIdentity(ctx context.Context, chatID string) (*Identity, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chat_id cannot be empty")
	}

	var identity Identity
	query := s.db.Rebind(`SELECT ` + identityColumns + ` FROM telegram_users WHERE chat_id = ?`)

	err := s.db.GetContext(ctx, &identity, query, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No identity found", "chat_id", chatID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching identity",
			"chat_id", chatID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting identity", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get identity for chat %s: %w", chatID, err)
	}

	return &identity, nil
}

// InsertIdentity inserts a new identity row. A concurrent insert for the same chat
// wins silently: the call then reports false so the caller can merge instead.
func (s *sqlxStore) InsertIdentity(ctx context.Context, identity *Identity) (bool, error) {
	if identity == nil {
		return false, fmt.Errorf("cannot insert nil identity")
	}
	if identity.ChatID == "" {
		return false, fmt.Errorf("identity must have a non-empty chat_id")
	}

	now := time.Now().UTC()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = now
	}

	query, args, err := sqlx.Named(`
		INSERT INTO telegram_users (chat_id, username, first_name, last_name, phone_number, created_at, updated_at)
		VALUES (:chat_id, :username, :first_name, :last_name, :phone_number, :created_at, :updated_at)
		ON CONFLICT (chat_id) DO NOTHING
		RETURNING id`, identity)
	if err != nil {
		return false, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	err = s.db.GetContext(ctx, &id, s.db.Rebind(query), args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "Identity already exists, insert skipped", "chat_id", identity.ChatID)
		return false, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error inserting identity", "chat_id", identity.ChatID, "error", err)
		return false, fmt.Errorf("failed to insert identity for chat %s: %w", identity.ChatID, err)
	}

	identity.ID = id
	s.logger.DebugContext(ctx, "Identity inserted", "chat_id", identity.ChatID, "id", id)
	return true, nil
}

// UpdateIdentity overwrites username, names, phone and updated_at for the chat.
func (s *sqlxStore) UpdateIdentity(ctx context.Context, identity *Identity) error {
	if identity == nil {
		return fmt.Errorf("cannot update nil identity")
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = time.Now().UTC()
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE telegram_users SET
			username = :username,
			first_name = :first_name,
			last_name = :last_name,
			phone_number = :phone_number,
			updated_at = :updated_at
		WHERE chat_id = :chat_id`, identity)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating identity", "chat_id", identity.ChatID, "error", err)
		return fmt.Errorf("failed to update identity for chat %s: %w", identity.ChatID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when updating identity",
			"chat_id", identity.ChatID, "error", err)
	} else if affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when updating identity",
			"chat_id", identity.ChatID, "affected", affected)
	}

	return nil
}

// FindIdentitiesByPhone retrieves identities sharing a phone number.
func (s *sqlxStore) FindIdentitiesByPhone(ctx context.Context, phone string) ([]*Identity, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}

	var identities []*Identity
	query := s.db.Rebind(`SELECT ` + identityColumns + ` FROM telegram_users
		WHERE phone_number = ? ORDER BY updated_at DESC`)
	if err := s.db.SelectContext(ctx, &identities, query, phone); err != nil {
		s.logger.ErrorContext(ctx, "Error finding identities by phone", "error", err)
		return nil, fmt.Errorf("failed to find identities by phone: %w", err)
	}

	return identities, nil
}

// ListIdentities retrieves a page of identities, most recently updated first.
func (s *sqlxStore) ListIdentities(ctx context.Context, limit, offset int) ([]*Identity, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}

	var identities []*Identity
	query := s.db.Rebind(`SELECT ` + identityColumns + ` FROM telegram_users
		ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &identities, query, limit, offset); err != nil {
		s.logger.ErrorContext(ctx, "Error listing identities", "limit", limit, "offset", offset, "error", err)
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed identities", "count", len(identities))
	return identities, nil
}

// RunSQLMaintenance executes VACUUM on SQLite or ANALYZE on PostgreSQL.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	statement := "VACUUM;"
	if s.db.DriverName() == sqlDriverNames[DriverPostgres] {
		statement = "ANALYZE telegram_users;"
	}

	s.logger.InfoContext(ctx, "Starting database maintenance", "statement", statement)

	_, err := s.db.ExecContext(ctx, statement)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Database maintenance timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance failed", "error", err)
		return fmt.Errorf("failed to execute %s: %w", statement, err)
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully")
	return nil
}
