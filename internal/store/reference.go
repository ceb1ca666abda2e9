package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

// Ingredient returns one ingredient by id.
func (db *DB) Ingredient(ctx context.Context, id int64) (models.Ingredient, error) {
	var ing models.Ingredient
	err := db.conn.GetContext(ctx, &ing, `SELECT id, name, measurement_unit FROM ingredients WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ing, fmt.Errorf("ingredient %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return ing, fmt.Errorf("store: get ingredient: %w", err)
	}
	return ing, nil
}

// Ingredients returns every ingredient ordered by name.
func (db *DB) Ingredients(ctx context.Context) ([]models.Ingredient, error) {
	var out []models.Ingredient
	if err := db.conn.SelectContext(ctx, &out,
		`SELECT id, name, measurement_unit FROM ingredients ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("store: list ingredients: %w", err)
	}
	return out, nil
}

// Tag returns one tag by id.
func (db *DB) Tag(ctx context.Context, id int64) (models.Tag, error) {
	var t models.Tag
	err := db.conn.GetContext(ctx, &t, `SELECT id, name, color, slug FROM tags WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("tag %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return t, fmt.Errorf("store: get tag: %w", err)
	}
	return t, nil
}

// Tags returns every tag ordered by id.
func (db *DB) Tags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	if err := db.conn.SelectContext(ctx, &out, `SELECT id, name, color, slug FROM tags ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	return out, nil
}

// MissingTags returns the ids in ids that have no tag row.
func (db *DB) MissingTags(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select("id").From("tags").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build tag lookup: %w", err)
	}
	var found []int64
	if err := db.conn.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("store: lookup tags: %w", err)
	}
	have := make(map[int64]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ImportReference adds ingredients that are not present yet (matched on
// name and unit) and upserts tags by slug, in one transaction. It returns
// the number of ingredient and tag rows written.
func (db *DB) ImportReference(ctx context.Context, ingredients []models.Ingredient, tags []models.Tag) (int, int, error) {
	var addedIngredients, writtenTags int
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, ing := range ingredients {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO ingredients (name, measurement_unit)
				SELECT ?, ?
				WHERE NOT EXISTS (SELECT 1 FROM ingredients WHERE name = ? AND measurement_unit = ?)
			`, ing.Name, ing.MeasurementUnit, ing.Name, ing.MeasurementUnit)
			if err != nil {
				return fmt.Errorf("store: import ingredient %q: %w", ing.Name, err)
			}
			n, _ := res.RowsAffected()
			addedIngredients += int(n)
		}
		for _, t := range tags {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tags (name, color, slug) VALUES (?, ?, ?)
				ON CONFLICT(slug) DO UPDATE SET name = excluded.name, color = excluded.color
			`, t.Name, t.Color, t.Slug)
			if err != nil {
				return fmt.Errorf("store: import tag %q: %w", t.Slug, translate(err))
			}
			writtenTags++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return addedIngredients, writtenTags, nil
}

// Meta returns a stored metadata value, or "" when unset.
func (db *DB) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.GetContext(ctx, &v, `SELECT value FROM meta WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get meta %s: %w", key, err)
	}
	return v, nil
}

// SetMeta stores a metadata value.
func (db *DB) SetMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set meta %s: %w", key, err)
	}
	return nil
}
