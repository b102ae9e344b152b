package database

import (
	"database/sql"
	"time"
)

// Identity is a row of telegram_users: the known personal fields of one
// Telegram chat, keyed by the chat identifier.
type Identity struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID      string         `db:"chat_id"`
	Username    sql.NullString `db:"username"`
	FirstName   sql.NullString `db:"first_name"`
	LastName    sql.NullString `db:"last_name"`
	PhoneNumber sql.NullString `db:"phone_number"`
}

// NullString converts an empty string to a NULL column value.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
