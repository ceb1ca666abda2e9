// Package store provides the SQLite-backed persistent store: recipes with
// their tag and ingredient rows, relation edges, reference data, and users.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ingredients (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	measurement_unit TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingredients_name ON ingredients(name);

CREATE TABLE IF NOT EXISTS tags (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name  TEXT NOT NULL UNIQUE,
	color TEXT NOT NULL UNIQUE,
	slug  TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS recipes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL UNIQUE,
	text         TEXT NOT NULL,
	image        TEXT NOT NULL DEFAULT '',
	author_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	cooking_time INTEGER NOT NULL CHECK (cooking_time BETWEEN 1 AND 1440),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_recipes_author ON recipes(author_id);

CREATE TABLE IF NOT EXISTS recipe_tags (
	recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	tag_id    INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (recipe_id, tag_id)
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	recipe_id     INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	amount        INTEGER NOT NULL CHECK (amount BETWEEN 1 AND 3000),
	PRIMARY KEY (recipe_id, ingredient_id)
);

CREATE TABLE IF NOT EXISTS relations (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	target_id INTEGER NOT NULL,
	kind      TEXT NOT NULL CHECK (kind IN ('follow', 'favorite', 'cart')),
	UNIQUE(actor_id, target_id, kind),
	CHECK (kind <> 'follow' OR actor_id <> target_id)
);

CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(kind, target_id);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sqlx.DB with store-specific operations.
type DB struct {
	conn *sqlx.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Write transactions take the lock up front so read-then-write sequences
// inside one transaction cannot deadlock against each other.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
