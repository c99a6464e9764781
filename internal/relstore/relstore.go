// Package relstore is the relational side of the platform: courses,
// enrollments and user accounts live in SQLite, entirely separate from
// the file-backed article store. It also hosts the HTTP session table.
package relstore

import (
	"fmt"

	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/michaeljs1990/sqlitestore"
	_ "modernc.org/sqlite"
)

// Store must keep satisfying gorilla's session store contract; the
// middleware hands it straight to session lookups.
var _ sessions.Store = (*sqlitestore.SqliteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS User (
	id TEXT PRIMARY KEY,
	screenname TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	passwordhash TEXT NOT NULL,
	admin INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS Course (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	author_id TEXT NOT NULL REFERENCES User(id),
	created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS Enrollment (
	course_id TEXT NOT NULL REFERENCES Course(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES User(id),
	created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (course_id, user_id)
);
`

// Store wraps the relational database connection. The embedded
// SqliteStore serves gorilla sessions from the same file.
type Store struct {
	*sqlitestore.SqliteStore
	conn *sqlx.DB
}

// Open connects to the SQLite database at path, applies the schema, and
// initializes the session store.
func Open(path string, cookieSecret []byte, cookieExpiry int) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	store := &Store{conn: conn}
	store.SqliteStore, err = sqlitestore.NewSqliteStoreFromConnection(conn, "sessions", "/", cookieExpiry, cookieSecret)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}
	return store, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
