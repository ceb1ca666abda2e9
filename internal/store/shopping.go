package store

import (
	"context"
	"fmt"

	"github.com/starford/larder/internal/models"
)

// CartLines returns every ingredient line of every recipe in userID's cart,
// read in a single statement. Lines are not grouped.
func (db *DB) CartLines(ctx context.Context, userID int64) ([]models.IngredientAmount, error) {
	var out []models.IngredientAmount
	err := db.conn.SelectContext(ctx, &out, `
		SELECT i.id, i.name, i.measurement_unit, ri.amount
		FROM relations r
		JOIN recipe_ingredients ri ON ri.recipe_id = r.target_id
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE r.actor_id = ? AND r.kind = ?
	`, userID, models.KindCart)
	if err != nil {
		return nil, fmt.Errorf("store: cart lines: %w", err)
	}
	return out, nil
}
