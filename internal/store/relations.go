package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

// InsertEdge inserts e only if its target exists, in a single statement,
// so a target deleted concurrently never gains an edge. A missing target
// fails with apperr.ErrNotFound. A duplicate (actor, target, kind),
// including one created by a concurrent caller, fails with
// apperr.ErrAlreadyExists from the unique index.
func (db *DB) InsertEdge(ctx context.Context, e models.Edge) error {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO relations (actor_id, target_id, kind)
		SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM `+targetTable(e.Kind)+` WHERE id = ?)
	`, e.ActorID, e.TargetID, e.Kind, e.TargetID)
	if err != nil {
		err = translate(err)
		if errors.Is(err, apperr.ErrConflict) {
			return fmt.Errorf("%s edge %d->%d: %w", e.Kind, e.ActorID, e.TargetID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: insert %s edge: %w", e.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert %s edge: %w", e.Kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s target %d: %w", e.Kind, e.TargetID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteEdge deletes e, failing with apperr.ErrNoRelation if it did not exist.
func (db *DB) DeleteEdge(ctx context.Context, e models.Edge) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM relations WHERE actor_id = ? AND target_id = ? AND kind = ?`,
		e.ActorID, e.TargetID, e.Kind)
	if err != nil {
		return fmt.Errorf("store: delete %s edge: %w", e.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s edge: %w", e.Kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s edge %d->%d: %w", e.Kind, e.ActorID, e.TargetID, apperr.ErrNoRelation)
	}
	return nil
}

// EdgeExists reports whether e is stored.
func (db *DB) EdgeExists(ctx context.Context, e models.Edge) (bool, error) {
	var ok bool
	err := db.conn.GetContext(ctx, &ok,
		`SELECT EXISTS (SELECT 1 FROM relations WHERE actor_id = ? AND target_id = ? AND kind = ?)`,
		e.ActorID, e.TargetID, e.Kind)
	if err != nil {
		return false, fmt.Errorf("store: %s edge exists: %w", e.Kind, err)
	}
	return ok, nil
}

// Targets yields the targets actorID holds a kind edge toward, oldest edge
// first. Every range over the returned sequence runs a fresh query.
func (db *DB) Targets(ctx context.Context, actorID int64, kind models.RelationKind) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		rows, err := db.conn.QueryContext(ctx,
			`SELECT target_id FROM relations WHERE actor_id = ? AND kind = ? ORDER BY id`,
			actorID, kind)
		if err != nil {
			yield(0, fmt.Errorf("store: list %s targets: %w", kind, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				yield(0, fmt.Errorf("store: scan %s target: %w", kind, err))
				return
			}
			if !yield(id, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(0, fmt.Errorf("store: list %s targets: %w", kind, err))
		}
	}
}

// TargetExists reports whether the target of a kind edge exists: a user
// for follow, a recipe otherwise.
func (db *DB) TargetExists(ctx context.Context, kind models.RelationKind, id int64) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + targetTable(kind) + ` WHERE id = ?)`
	if err := db.conn.GetContext(ctx, &ok, query, id); err != nil {
		return false, fmt.Errorf("store: %s target exists: %w", kind, err)
	}
	return ok, nil
}

func targetTable(kind models.RelationKind) string {
	if kind == models.KindFollow {
		return "users"
	}
	return "recipes"
}
