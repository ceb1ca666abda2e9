package api

import (
	"net/http"
)

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	author, err := h.Projector.Profile(r.Context(), ActorFrom(r.Context()), id)
	if err != nil {
		writeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// Subscriptions handles GET /api/users/subscriptions.
//
//	@Summary		Authors the caller follows, with recipe previews
//	@Tags			users
//	@Produce		json
//	@Param			recipes_limit	query	int	false	"Recipes per author"
//	@Success		200				{array}	SubscriptionResponse
//	@Failure		401				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/subscriptions [get]
func (h *Handler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Projector.Subscriptions(r.Context(), ActorFrom(r.Context()), intQuery(r, "recipes_limit"))
	if err != nil {
		writeError(w, "list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}
