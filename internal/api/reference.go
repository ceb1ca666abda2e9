package api

import (
	"net/http"

	"github.com/starford/larder/internal/policy"
)

// ListTags handles GET /api/tags.
//
//	@Summary		List tags
//	@Tags			tags
//	@Produce		json
//	@Success		200	{array}	models.Tag
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(ActorFrom(r.Context()), policy.Resource{Kind: policy.Tags}, policy.OpList); err != nil {
		writeError(w, "list tags", err)
		return
	}
	tags, err := h.Tags.Tags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// GetTag handles GET /api/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := policy.Authorize(ActorFrom(r.Context()), policy.Resource{Kind: policy.Tags}, policy.OpRetrieve); err != nil {
		writeError(w, "get tag", err)
		return
	}
	tag, err := h.Tags.Tag(r.Context(), id)
	if err != nil {
		writeError(w, "get tag", err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// ListIngredients handles GET /api/ingredients.
//
//	@Summary		Search ingredients by name
//	@Tags			ingredients
//	@Produce		json
//	@Param			name	query	string	false	"Name or fragment; prefix matches rank first"
//	@Param			limit	query	int		false	"Max results"
//	@Success		200		{array}	models.Ingredient
//	@Router			/ingredients [get]
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(ActorFrom(r.Context()), policy.Resource{Kind: policy.Ingredients}, policy.OpList); err != nil {
		writeError(w, "list ingredients", err)
		return
	}
	items, err := h.Catalog.Search(r.Context(), r.URL.Query().Get("name"), intQuery(r, "limit"))
	if err != nil {
		writeError(w, "list ingredients", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetIngredient handles GET /api/ingredients/{id}.
func (h *Handler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := policy.Authorize(ActorFrom(r.Context()), policy.Resource{Kind: policy.Ingredients}, policy.OpRetrieve); err != nil {
		writeError(w, "get ingredient", err)
		return
	}
	ing, err := h.Catalog.Resolve(r.Context(), id)
	if err != nil {
		writeError(w, "get ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}
