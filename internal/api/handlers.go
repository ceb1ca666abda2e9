package api

import (
	"context"
	"net/http"

	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/recipe"
	"github.com/starford/larder/internal/relation"
	"github.com/starford/larder/internal/shopping"
)

// TagReader lists tag reference data.
type TagReader interface {
	Tags(ctx context.Context) ([]models.Tag, error)
	Tag(ctx context.Context, id int64) (models.Tag, error)
}

// Services are the domain components behind the handlers.
type Services struct {
	Composer  *recipe.Composer
	Projector *recipe.Projector
	Catalog   *catalog.Catalog
	Tags      TagReader
	Follows   *relation.Manager
	Favorites *relation.Manager
	Cart      *relation.Manager
	Shopping  *shopping.Aggregator
}

// Handler holds API route handlers.
type Handler struct {
	Services
}

// NewHandler creates a new Handler.
func NewHandler(svc Services) *Handler {
	return &Handler{Services: svc}
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List recipes, newest first
//	@Tags			recipes
//	@Produce		json
//	@Param			tags				query		[]string	false	"Tag slugs (any)"
//	@Param			author				query		int			false	"Author id"
//	@Param			is_favorited		query		int			false	"Only the caller's favorites"
//	@Param			is_in_shopping_cart	query		int			false	"Only the caller's cart"
//	@Param			limit				query		int			false	"Max results"
//	@Success		200					{array}		RecipeResponse
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	q := recipe.Query{
		AuthorID:  int64(intQuery(r, "author")),
		TagSlugs:  r.URL.Query()["tags"],
		Favorited: boolQuery(r, "is_favorited"),
		InCart:    boolQuery(r, "is_in_shopping_cart"),
		Limit:     intQuery(r, "limit"),
	}
	views, err := h.Projector.List(r.Context(), ActorFrom(r.Context()), q)
	if err != nil {
		writeError(w, "list recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// GetRecipe handles GET /api/recipes/{id}.
//
//	@Summary		Get a recipe
//	@Tags			recipes
//	@Produce		json
//	@Param			id	path		int	true	"Recipe id"
//	@Success		200	{object}	RecipeResponse
//	@Failure		404	{object}	errResponse
//	@Router			/recipes/{id} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	v, err := h.Projector.Get(r.Context(), ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, "get recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// CreateRecipe handles POST /api/recipes.
//
//	@Summary		Create a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RecipeRequest	true	"Recipe"
//	@Success		201		{object}	RecipeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes [post]
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var in recipe.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	actor := ActorFrom(r.Context())
	created, err := h.Composer.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, "create recipe", err)
		return
	}
	h.writeRecipe(w, r, actor, created, http.StatusCreated)
}

// UpdateRecipe handles PATCH /api/recipes/{id}. The body replaces the
// whole recipe, including every tag and ingredient line.
//
//	@Summary		Replace a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Recipe id"
//	@Param			body	body		RecipeRequest	true	"Recipe"
//	@Success		200		{object}	RecipeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id} [patch]
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var in recipe.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	actor := ActorFrom(r.Context())
	updated, err := h.Composer.Update(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, "update recipe", err)
		return
	}
	h.writeRecipe(w, r, actor, updated, http.StatusOK)
}

// DeleteRecipe handles DELETE /api/recipes/{id}.
//
//	@Summary		Delete a recipe
//	@Tags			recipes
//	@Param			id	path	int	true	"Recipe id"
//	@Success		204	"Recipe deleted"
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/{id} [delete]
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Composer.Delete(r.Context(), ActorFrom(r.Context()), id); err != nil {
		writeError(w, "delete recipe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeRecipe(w http.ResponseWriter, r *http.Request, actor models.Actor, rec *models.Recipe, status int) {
	v, err := h.Projector.Project(r.Context(), actor, rec)
	if err != nil {
		writeError(w, "project recipe", err)
		return
	}
	writeJSON(w, status, v)
}
