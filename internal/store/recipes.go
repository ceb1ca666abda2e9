package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

const recipeColumns = `r.id, r.name, r.text, r.image, r.author_id, r.cooking_time, r.created_at`

// CreateRecipe inserts the recipe row, its tag rows and its ingredient rows
// as one transaction. On success r.ID and r.CreatedAt are set.
func (db *DB) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	createdAt := time.Now().UTC()
	var id int64
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO recipes (name, text, image, author_id, cooking_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, r.Name, r.Text, r.Image, r.AuthorID, r.CookingTime, createdAt)
		if err != nil {
			return fmt.Errorf("store: insert recipe: %w", translate(err))
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("store: recipe id: %w", err)
		}
		return insertChildren(ctx, tx, id, r.TagIDs, r.Lines)
	})
	if err != nil {
		return err
	}
	r.ID = id
	r.CreatedAt = createdAt
	return nil
}

// ReplaceRecipe overwrites the scalar fields of recipe r.ID and replaces its
// entire tag set and ingredient list. guard, when non-nil, sees the stored
// row inside the same transaction and can veto the write.
func (db *DB) ReplaceRecipe(ctx context.Context, r *models.Recipe, guard func(models.Recipe) error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := recipeRow(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(*current); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE recipes SET name = ?, text = ?, image = ?, cooking_time = ?
			WHERE id = ?
		`, r.Name, r.Text, r.Image, r.CookingTime, r.ID)
		if err != nil {
			return fmt.Errorf("store: update recipe: %w", translate(err))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, r.ID); err != nil {
			return fmt.Errorf("store: clear recipe tags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, r.ID); err != nil {
			return fmt.Errorf("store: clear recipe ingredients: %w", err)
		}
		if err := insertChildren(ctx, tx, r.ID, r.TagIDs, r.Lines); err != nil {
			return err
		}

		r.AuthorID = current.AuthorID
		r.CreatedAt = current.CreatedAt
		return nil
	})
}

// DeleteRecipe removes a recipe and everything that references it: its
// ingredient lines, its tag rows, and every favorite and cart edge
// targeting it. guard behaves as in ReplaceRecipe.
func (db *DB) DeleteRecipe(ctx context.Context, id int64, guard func(models.Recipe) error) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := recipeRow(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(*current); err != nil {
				return err
			}
		}

		cascade := []struct {
			what  string
			query string
			args  []any
		}{
			{"ingredients", `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, []any{id}},
			{"tags", `DELETE FROM recipe_tags WHERE recipe_id = ?`, []any{id}},
			{"relations", `DELETE FROM relations WHERE target_id = ? AND kind IN (?, ?)`,
				[]any{id, models.KindFavorite, models.KindCart}},
			{"recipe", `DELETE FROM recipes WHERE id = ?`, []any{id}},
		}
		for _, step := range cascade {
			if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
				return fmt.Errorf("store: delete recipe %s: %w", step.what, err)
			}
		}
		return nil
	})
}

// GetRecipe returns the recipe with its tag ids and ingredient lines.
func (db *DB) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	r, err := recipeRow(ctx, db.conn, id)
	if err != nil {
		return nil, err
	}
	if err := db.conn.SelectContext(ctx, &r.TagIDs,
		`SELECT tag_id FROM recipe_tags WHERE recipe_id = ? ORDER BY tag_id`, id); err != nil {
		return nil, fmt.Errorf("store: recipe tag ids: %w", err)
	}
	if err := db.conn.SelectContext(ctx, &r.Lines,
		`SELECT ingredient_id, amount FROM recipe_ingredients WHERE recipe_id = ? ORDER BY rowid`, id); err != nil {
		return nil, fmt.Errorf("store: recipe lines: %w", err)
	}
	return r, nil
}

// RecipeTags returns the tags attached to a recipe.
func (db *DB) RecipeTags(ctx context.Context, id int64) ([]models.Tag, error) {
	var out []models.Tag
	err := db.conn.SelectContext(ctx, &out, `
		SELECT t.id, t.name, t.color, t.slug
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ?
		ORDER BY t.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: recipe tags: %w", err)
	}
	return out, nil
}

// RecipeIngredients returns the recipe's lines resolved to name and unit,
// in the order they were written.
func (db *DB) RecipeIngredients(ctx context.Context, id int64) ([]models.IngredientAmount, error) {
	var out []models.IngredientAmount
	err := db.conn.SelectContext(ctx, &out, `
		SELECT i.id, i.name, i.measurement_unit, ri.amount
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ?
		ORDER BY ri.rowid
	`, id)
	if err != nil {
		return nil, fmt.Errorf("store: recipe ingredients: %w", err)
	}
	return out, nil
}

// ListRecipes returns recipe rows (without tags or lines) matching f,
// newest first.
func (db *DB) ListRecipes(ctx context.Context, f models.RecipeFilter) ([]models.Recipe, error) {
	q := sq.Select(recipeColumns).From("recipes r").OrderBy("r.id DESC")

	if f.AuthorID > 0 {
		q = q.Where(sq.Eq{"r.author_id": f.AuthorID})
	}
	if len(f.TagSlugs) > 0 {
		sub, args, err := sq.Select("rt.recipe_id").
			From("recipe_tags rt").
			Join("tags t ON t.id = rt.tag_id").
			Where(sq.Eq{"t.slug": f.TagSlugs}).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("store: build tag filter: %w", err)
		}
		q = q.Where("r.id IN ("+sub+")", args...)
	}
	if f.FavoritedBy > 0 {
		q = q.Where(`r.id IN (SELECT target_id FROM relations WHERE kind = ? AND actor_id = ?)`,
			models.KindFavorite, f.FavoritedBy)
	}
	if f.InCartOf > 0 {
		q = q.Where(`r.id IN (SELECT target_id FROM relations WHERE kind = ? AND actor_id = ?)`,
			models.KindCart, f.InCartOf)
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build recipe list: %w", err)
	}
	var out []models.Recipe
	if err := db.conn.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("store: list recipes: %w", err)
	}
	return out, nil
}

// CountRecipes returns how many recipes authorID has written.
func (db *DB) CountRecipes(ctx context.Context, authorID int64) (int, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, `SELECT count(*) FROM recipes WHERE author_id = ?`, authorID); err != nil {
		return 0, fmt.Errorf("store: count recipes: %w", err)
	}
	return n, nil
}

func recipeRow(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Recipe, error) {
	var r models.Recipe
	err := sqlx.GetContext(ctx, q, &r, `SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get recipe: %w", err)
	}
	return &r, nil
}

// insertChildren batch-inserts the tag and ingredient rows of recipeID.
func insertChildren(ctx context.Context, tx *sqlx.Tx, recipeID int64, tagIDs []int64, lines []models.IngredientLine) error {
	if len(tagIDs) > 0 {
		ins := sq.Insert("recipe_tags").Columns("recipe_id", "tag_id")
		for _, tagID := range tagIDs {
			ins = ins.Values(recipeID, tagID)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("store: build tag insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store: insert recipe tags: %w", translate(err))
		}
	}

	if len(lines) > 0 {
		ins := sq.Insert("recipe_ingredients").Columns("recipe_id", "ingredient_id", "amount")
		for _, l := range lines {
			ins = ins.Values(recipeID, l.IngredientID, l.Amount)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("store: build ingredient insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("store: insert recipe ingredients: %w", translate(err))
		}
	}
	return nil
}
