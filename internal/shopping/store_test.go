package shopping_test

import (
	"context"
	"testing"

	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/shopping"
	"github.com/starford/larder/internal/testutil"
)

func TestAggregate_FromStore(t *testing.T) {
	db := testutil.TestDB(t)
	ref := testutil.Seed(t, db, 2)
	ctx := context.Background()

	mk := func(name string, lines ...models.IngredientLine) int64 {
		r := &models.Recipe{Name: name, Text: "-", AuthorID: 2, CookingTime: 10, Lines: lines}
		if err := db.CreateRecipe(ctx, r); err != nil {
			t.Fatal(err)
		}
		return r.ID
	}
	flour, egg, sugar := ref.Ingredients["flour"].ID, ref.Ingredients["egg"].ID, ref.Ingredients["sugar"].ID
	x := mk("X", models.IngredientLine{IngredientID: flour, Amount: 200}, models.IngredientLine{IngredientID: egg, Amount: 2})
	y := mk("Y", models.IngredientLine{IngredientID: flour, Amount: 300}, models.IngredientLine{IngredientID: sugar, Amount: 1})
	for _, id := range []int64{x, y} {
		if err := db.InsertEdge(ctx, models.Edge{ActorID: 1, TargetID: id, Kind: models.KindCart}); err != nil {
			t.Fatal(err)
		}
	}

	rep, err := shopping.NewAggregator(db).Aggregate(ctx, models.Actor{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int{}
	for _, it := range rep.Items {
		got[it.Name] += it.Total
	}
	if len(rep.Items) != 3 || got["flour"] != 500 || got["egg"] != 2 || got["sugar"] != 1 {
		t.Errorf("items = %+v", rep.Items)
	}
}
