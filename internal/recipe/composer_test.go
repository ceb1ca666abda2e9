package recipe_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/recipe"
	"github.com/starford/larder/internal/relation"
	"github.com/starford/larder/internal/store"
	"github.com/starford/larder/internal/testutil"
)

var (
	alice = models.Actor{UserID: 1}
	bob   = models.Actor{UserID: 2}
	admin = models.Actor{UserID: 3, Admin: true}
)

type env struct {
	db       *store.DB
	ref      testutil.Reference
	composer *recipe.Composer
	events   []string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.TestDB(t)
	e := &env{db: db, ref: testutil.Seed(t, db, 3)}
	cat, err := catalog.New(db, 0)
	if err != nil {
		t.Fatal(err)
	}
	e.composer = recipe.NewComposer(db, cat, db, recipe.WithNotify(func(kind string, _ int64) {
		e.events = append(e.events, kind)
	}))
	return e
}

func (e *env) id(name string) int64 { return e.ref.Ingredients[name].ID }

func (e *env) input(name string, lines map[string]int) recipe.Input {
	in := recipe.Input{Name: name, Text: "Cook it", CookingTime: 15}
	for ing, amount := range lines {
		in.Ingredients = append(in.Ingredients, recipe.LineInput{ID: e.id(ing), Amount: amount})
	}
	return in
}

func linesOf(t *testing.T, db *store.DB, id int64) map[int64]int {
	t.Helper()
	r, err := db.GetRecipe(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	out := map[int64]int{}
	for _, l := range r.Lines {
		out[l.IngredientID] = l.Amount
	}
	return out
}

func TestCreate_LinesMatchInput(t *testing.T) {
	e := newEnv(t)
	in := e.input("Pancakes", map[string]int{"flour": 200, "egg": 2, "milk": 300})
	in.Tags = []int64{e.ref.Tags["breakfast"].ID, e.ref.Tags["breakfast"].ID}

	r, err := e.composer.Create(context.Background(), alice, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if r.AuthorID != alice.UserID || r.ID == 0 {
		t.Errorf("recipe = %+v", r)
	}

	want := map[int64]int{e.id("flour"): 200, e.id("egg"): 2, e.id("milk"): 300}
	got := linesOf(t, e.db, r.ID)
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for id, amount := range want {
		if got[id] != amount {
			t.Errorf("ingredient %d amount = %d, want %d", id, got[id], amount)
		}
	}

	stored, _ := e.db.GetRecipe(context.Background(), r.ID)
	if !slices.Equal(stored.TagIDs, []int64{e.ref.Tags["breakfast"].ID}) {
		t.Errorf("tags = %v", stored.TagIDs)
	}
	if !slices.Equal(e.events, []string{recipe.EventCreated}) {
		t.Errorf("events = %v", e.events)
	}
}

func TestCreate_Anonymous(t *testing.T) {
	e := newEnv(t)
	_, err := e.composer.Create(context.Background(), models.Anonymous, e.input("Toast", map[string]int{"flour": 1}))
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestCreate_UnknownIngredientWritesNothing(t *testing.T) {
	e := newEnv(t)
	in := e.input("Mystery", map[string]int{"flour": 100})
	in.Ingredients = append(in.Ingredients, recipe.LineInput{ID: 9999, Amount: 1})

	_, err := e.composer.Create(context.Background(), alice, in)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || !ve.Has("ingredients") {
		t.Fatalf("err = %v, want ValidationError on ingredients", err)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want it to unwrap to ErrNotFound", err)
	}

	list, _ := e.db.ListRecipes(context.Background(), models.RecipeFilter{})
	if len(list) != 0 {
		t.Errorf("recipes written despite failure: %v", list)
	}
}

func TestCreate_UnknownTag(t *testing.T) {
	e := newEnv(t)
	in := e.input("Soup", map[string]int{"milk": 500})
	in.Tags = []int64{404}

	_, err := e.composer.Create(context.Background(), alice, in)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || !ve.Has("tags") {
		t.Errorf("err = %v, want ValidationError on tags", err)
	}
}

func TestCreate_DuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.composer.Create(ctx, alice, e.input("Toast", map[string]int{"flour": 1})); err != nil {
		t.Fatal(err)
	}
	_, err := e.composer.Create(ctx, bob, e.input("Toast", map[string]int{"egg": 1}))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestUpdate_FullReplacement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, err := e.composer.Create(ctx, alice, e.input("Omelette", map[string]int{"egg": 2}))
	if err != nil {
		t.Fatal(err)
	}

	in := e.input("Sweet omelette", map[string]int{"sugar": 3})
	in.CookingTime = 7
	updated, err := e.composer.Update(ctx, alice, r.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.AuthorID != alice.UserID || updated.CreatedAt.IsZero() {
		t.Errorf("updated = %+v", updated)
	}

	got := linesOf(t, e.db, r.ID)
	if len(got) != 1 || got[e.id("sugar")] != 3 {
		t.Errorf("lines after update = %v, want only sugar:3", got)
	}
	stored, _ := e.db.GetRecipe(ctx, r.ID)
	if stored.Name != "Sweet omelette" || stored.CookingTime != 7 {
		t.Errorf("scalars not replaced: %+v", stored)
	}
}

func TestUpdate_Permissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, err := e.composer.Create(ctx, alice, e.input("Omelette", map[string]int{"egg": 2}))
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.composer.Update(ctx, bob, r.ID, e.input("Stolen", map[string]int{"egg": 9}))
	if !errors.Is(err, apperr.ErrPermission) {
		t.Errorf("non-author update: err = %v, want ErrPermission", err)
	}
	if got := linesOf(t, e.db, r.ID); got[e.id("egg")] != 2 {
		t.Errorf("denied update changed lines: %v", got)
	}

	if _, err := e.composer.Update(ctx, admin, r.ID, e.input("Admin edit", map[string]int{"egg": 4})); err != nil {
		t.Errorf("admin update: %v", err)
	}

	_, err = e.composer.Update(ctx, models.Anonymous, r.ID, e.input("Anon", map[string]int{"egg": 1}))
	if !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("anonymous update: err = %v", err)
	}

	_, err = e.composer.Update(ctx, alice, 12345, e.input("Ghost", map[string]int{"egg": 1}))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing recipe: err = %v, want ErrNotFound", err)
	}
}

func TestDelete_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r, err := e.composer.Create(ctx, alice, e.input("Crepes", map[string]int{"flour": 100, "milk": 250}))
	if err != nil {
		t.Fatal(err)
	}
	fav := relation.New(e.db, relation.Favorite)
	cart := relation.New(e.db, relation.Cart)
	for _, m := range []*relation.Manager{fav, cart} {
		if _, err := m.Add(ctx, bob.UserID, r.ID); err != nil {
			t.Fatal(err)
		}
	}

	if err := e.composer.Delete(ctx, bob, r.ID); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("non-author delete: err = %v", err)
	}
	if err := e.composer.Delete(ctx, alice, r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, m := range []*relation.Manager{fav, cart} {
		ids, err := relation.Collect(m.List(ctx, bob.UserID))
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 0 {
			t.Errorf("%s edges survived delete: %v", m.Kind(), ids)
		}
	}
	lines, _ := e.db.CartLines(ctx, bob.UserID)
	if len(lines) != 0 {
		t.Errorf("cart lines survived delete: %v", lines)
	}
	if _, err := e.db.GetRecipe(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetRecipe after delete: err = %v", err)
	}
	if err := e.composer.Delete(ctx, alice, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
	if !slices.Equal(e.events, []string{recipe.EventCreated, recipe.EventDeleted}) {
		t.Errorf("events = %v", e.events)
	}
}
