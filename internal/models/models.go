// Package models defines the domain types for Larder.
package models

import "time"

// Ingredient is immutable reference data. Name/unit pairs are not unique.
type Ingredient struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name" yaml:"name"`
	MeasurementUnit string `db:"measurement_unit" json:"measurement_unit" yaml:"measurement_unit"`
}

// Tag is immutable reference data.
type Tag struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name" yaml:"name"`
	Color string `db:"color" json:"color" yaml:"color"`
	Slug  string `db:"slug" json:"slug" yaml:"slug"`
}

// IngredientLine pairs an ingredient with an amount inside one recipe.
type IngredientLine struct {
	IngredientID int64 `db:"ingredient_id" json:"id"`
	Amount       int   `db:"amount" json:"amount"`
}

// Recipe is the write model: scalar fields plus tag and ingredient sets.
type Recipe struct {
	ID          int64            `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Text        string           `db:"text" json:"text"`
	Image       string           `db:"image" json:"image"`
	AuthorID    int64            `db:"author_id" json:"author"`
	CookingTime int              `db:"cooking_time" json:"cooking_time"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	TagIDs      []int64          `db:"-" json:"tags"`
	Lines       []IngredientLine `db:"-" json:"ingredients"`
}

// IngredientAmount is an ingredient line resolved to its name and unit.
type IngredientAmount struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	MeasurementUnit string `db:"measurement_unit" json:"measurement_unit"`
	Amount          int    `db:"amount" json:"amount"`
}

// User carries the profile fields mirrored from the identity provider.
type User struct {
	ID        int64  `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Email     string `db:"email" json:"email"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// RelationKind names the constraint tag of a relation edge.
type RelationKind string

const (
	KindFollow   RelationKind = "follow"
	KindFavorite RelationKind = "favorite"
	KindCart     RelationKind = "cart"
)

// Edge is a directed, typed (actor, target) pair.
type Edge struct {
	ActorID  int64        `db:"actor_id" json:"user"`
	TargetID int64        `db:"target_id" json:"target"`
	Kind     RelationKind `db:"kind" json:"kind"`
}

// Actor is the caller of a domain operation. A zero UserID is anonymous.
type Actor struct {
	UserID int64
	Admin  bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// RecipeFilter narrows a recipe listing. Zero fields do not filter.
type RecipeFilter struct {
	AuthorID    int64
	TagSlugs    []string
	FavoritedBy int64
	InCartOf    int64
	Limit       int
}
