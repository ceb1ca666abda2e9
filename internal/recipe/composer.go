// Package recipe composes recipes from validated input and projects them
// into the read model served to clients.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/policy"
)

// Repository persists recipes. ReplaceRecipe and DeleteRecipe run guard
// against the stored row inside the write transaction.
type Repository interface {
	CreateRecipe(ctx context.Context, r *models.Recipe) error
	ReplaceRecipe(ctx context.Context, r *models.Recipe, guard func(models.Recipe) error) error
	DeleteRecipe(ctx context.Context, id int64, guard func(models.Recipe) error) error
}

// Resolver looks up ingredients by id.
type Resolver interface {
	Resolve(ctx context.Context, id int64) (models.Ingredient, error)
}

// TagChecker reports which of the given tag ids do not exist.
type TagChecker interface {
	MissingTags(ctx context.Context, ids []int64) ([]int64, error)
}

// Event kinds passed to a Notify hook.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Composer validates and writes recipes.
type Composer struct {
	repo     Repository
	resolver Resolver
	tags     TagChecker
	notify   func(kind string, id int64)
}

// Option configures a Composer.
type Option func(*Composer)

// WithNotify registers fn to be called after every committed write.
func WithNotify(fn func(kind string, id int64)) Option {
	return func(c *Composer) { c.notify = fn }
}

// NewComposer creates a Composer.
func NewComposer(repo Repository, resolver Resolver, tags TagChecker, opts ...Option) *Composer {
	c := &Composer{repo: repo, resolver: resolver, tags: tags}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create validates in and stores a new recipe authored by actor.
func (c *Composer) Create(ctx context.Context, actor models.Actor, in Input) (*models.Recipe, error) {
	if err := policy.Authorize(actor, policy.Recipe(0), policy.OpCreate); err != nil {
		return nil, err
	}
	r, err := c.compose(ctx, in)
	if err != nil {
		return nil, err
	}
	r.AuthorID = actor.UserID
	if err := c.repo.CreateRecipe(ctx, r); err != nil {
		return nil, err
	}
	c.emit(EventCreated, r.ID)
	return r, nil
}

// Update replaces every field, tag and ingredient line of recipe id.
// Lines missing from in are removed even when other lines are unchanged.
func (c *Composer) Update(ctx context.Context, actor models.Actor, id int64, in Input) (*models.Recipe, error) {
	if !actor.Authenticated() {
		return nil, apperr.ErrUnauthenticated
	}
	r, err := c.compose(ctx, in)
	if err != nil {
		return nil, err
	}
	r.ID = id
	if err := c.repo.ReplaceRecipe(ctx, r, ownedBy(actor, policy.OpUpdate)); err != nil {
		return nil, err
	}
	c.emit(EventUpdated, r.ID)
	return r, nil
}

// Delete removes recipe id together with its lines, tags and every
// favorite and cart edge pointing at it.
func (c *Composer) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if !actor.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	if err := c.repo.DeleteRecipe(ctx, id, ownedBy(actor, policy.OpDelete)); err != nil {
		return err
	}
	c.emit(EventDeleted, id)
	return nil
}

// compose validates in and resolves its references into a write model.
func (c *Composer) compose(ctx context.Context, in Input) (*models.Recipe, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lines := make([]models.IngredientLine, 0, len(in.Ingredients))
	for _, l := range in.Ingredients {
		if _, err := c.resolver.Resolve(ctx, l.ID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.InvalidCause("ingredients", fmt.Sprintf("unknown ingredient %d", l.ID), err)
			}
			return nil, err
		}
		lines = append(lines, models.IngredientLine{IngredientID: l.ID, Amount: l.Amount})
	}

	tags := in.tagSet()
	if len(tags) > 0 {
		missing, err := c.tags.MissingTags(ctx, tags)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			ids := make([]string, len(missing))
			for i, id := range missing {
				ids[i] = fmt.Sprint(id)
			}
			return nil, apperr.Invalid("tags", "unknown tags "+strings.Join(ids, ", "))
		}
	}

	return &models.Recipe{
		Name:        in.Name,
		Text:        in.Text,
		Image:       in.Image,
		CookingTime: in.CookingTime,
		TagIDs:      tags,
		Lines:       lines,
	}, nil
}

func (c *Composer) emit(kind string, id int64) {
	if c.notify != nil {
		c.notify(kind, id)
	}
}

func ownedBy(actor models.Actor, op policy.Op) func(models.Recipe) error {
	return func(current models.Recipe) error {
		return policy.Authorize(actor, policy.Recipe(current.AuthorID), op)
	}
}
