// Package testutil provides shared test helpers for setting up databases and reference data.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "larder-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Reference is the data written by Seed, keyed by name or slug.
type Reference struct {
	Ingredients map[string]models.Ingredient
	Tags        map[string]models.Tag
}

// Seed creates users 1..users and a small fixed catalog:
// flour (g), egg (pcs), sugar (g), milk (ml); tags breakfast and dinner.
func Seed(t *testing.T, db *store.DB, users int) Reference {
	t.Helper()
	ctx := context.Background()
	for id := int64(1); id <= int64(users); id++ {
		name := fmt.Sprintf("user%d", id)
		u := models.User{ID: id, Username: name, Email: name + "@example.com"}
		if err := db.EnsureUser(ctx, u); err != nil {
			t.Fatalf("EnsureUser: %v", err)
		}
	}
	_, _, err := db.ImportReference(ctx,
		[]models.Ingredient{
			{Name: "flour", MeasurementUnit: "g"},
			{Name: "egg", MeasurementUnit: "pcs"},
			{Name: "sugar", MeasurementUnit: "g"},
			{Name: "milk", MeasurementUnit: "ml"},
		},
		[]models.Tag{
			{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
			{Name: "Dinner", Color: "#49B64E", Slug: "dinner"},
		})
	if err != nil {
		t.Fatalf("ImportReference: %v", err)
	}

	ref := Reference{Ingredients: map[string]models.Ingredient{}, Tags: map[string]models.Tag{}}
	ings, err := db.Ingredients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range ings {
		ref.Ingredients[i.Name] = i
	}
	tags, err := db.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, tg := range tags {
		ref.Tags[tg.Slug] = tg
	}
	return ref
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
