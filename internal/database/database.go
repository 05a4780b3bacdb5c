package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// pragmas are applied to every pooled connection through the DSN.
// busy_timeout lets concurrent writers queue instead of failing with SQLITE_BUSY.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// New creates a new database connection pool.
func New(path string) (*sql.DB, error) {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		bio TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS listings (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL,
		size TEXT NOT NULL,
		photo TEXT NOT NULL,
		price INTEGER NOT NULL,
		has_pool INTEGER NOT NULL DEFAULT 0,
		is_fenced INTEGER NOT NULL DEFAULT 0,
		has_barbecue INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_listings_user ON listings(user_id);

	-- One active hold per listing and weekday (0 = Sunday .. 6 = Saturday).
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT NOT NULL PRIMARY KEY,
		day_of_week INTEGER NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (listing_id, day_of_week)
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT NOT NULL PRIMARY KEY,
		text TEXT NOT NULL CHECK (length(text) <= 140),
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		from_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		to_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_read INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_user_id, timestamp);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		listing_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS revoked_tokens (
		jti TEXT NOT NULL PRIMARY KEY,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// IsUniqueViolation reports whether err comes from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err comes from a FOREIGN KEY constraint.
func IsForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
