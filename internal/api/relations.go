package api

import (
	"errors"
	"net/http"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/policy"
	"github.com/starford/larder/internal/relation"
)

// relationResponder renders the target of a newly created edge.
type relationResponder func(r *http.Request, actor models.Actor, targetID int64) (any, error)

// addRelation creates an edge from the caller to the {id} target. A
// duplicate edge answers 400 rather than 409; a missing target answers 404.
func (h *Handler) addRelation(m *relation.Manager, render relationResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		actor := ActorFrom(r.Context())
		if err := policy.Authorize(actor, policy.Relation(actor.UserID), policy.OpAdd); err != nil {
			writeError(w, "add relation", err)
			return
		}
		if _, err := m.Add(r.Context(), actor.UserID, id); err != nil {
			if errors.Is(err, apperr.ErrAlreadyExists) {
				writeJSON(w, http.StatusBadRequest, errorBody("already added to "+string(m.Kind())))
				return
			}
			writeError(w, "add "+string(m.Kind()), err)
			return
		}
		body, err := render(r, actor, id)
		if err != nil {
			writeError(w, "render "+string(m.Kind()), err)
			return
		}
		writeJSON(w, http.StatusCreated, body)
	}
}

// removeRelation deletes the caller's edge to the {id} target. A missing
// target answers 404; an existing target without the edge answers 400.
func (h *Handler) removeRelation(m *relation.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		actor := ActorFrom(r.Context())
		if err := policy.Authorize(actor, policy.Relation(actor.UserID), policy.OpRemove); err != nil {
			writeError(w, "remove relation", err)
			return
		}
		if err := m.Remove(r.Context(), actor.UserID, id); err != nil {
			if errors.Is(err, apperr.ErrNoRelation) {
				writeJSON(w, http.StatusBadRequest, errorBody("not in "+string(m.Kind())))
				return
			}
			writeError(w, "remove "+string(m.Kind()), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) renderBrief(r *http.Request, _ models.Actor, id int64) (any, error) {
	return h.Projector.Brief(r.Context(), id)
}

func (h *Handler) renderSubscription(r *http.Request, actor models.Actor, id int64) (any, error) {
	return h.Projector.Subscription(r.Context(), actor, id, intQuery(r, "recipes_limit"))
}
