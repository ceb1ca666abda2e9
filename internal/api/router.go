package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// auth resolves the caller for every route. events, if non-nil, is
// mounted at GET /events.
func NewRouter(h *Handler, auth func(http.Handler) http.Handler, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	// Reference data.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{id}", h.GetTag)
	r.Get("/ingredients", h.ListIngredients)
	r.Get("/ingredients/{id}", h.GetIngredient)

	// Recipes.
	r.Get("/recipes", h.ListRecipes)
	r.Post("/recipes", h.CreateRecipe)
	r.Get("/recipes/download_shopping_cart", h.DownloadShoppingCart)
	r.Get("/recipes/{id}", h.GetRecipe)
	r.Patch("/recipes/{id}", h.UpdateRecipe)
	r.Delete("/recipes/{id}", h.DeleteRecipe)

	// Favorites and cart.
	r.Post("/recipes/{id}/favorite", h.addRelation(h.Favorites, h.renderBrief))
	r.Delete("/recipes/{id}/favorite", h.removeRelation(h.Favorites))
	r.Post("/recipes/{id}/shopping_cart", h.addRelation(h.Cart, h.renderBrief))
	r.Delete("/recipes/{id}/shopping_cart", h.removeRelation(h.Cart))

	// Users and subscriptions.
	r.Get("/users/subscriptions", h.Subscriptions)
	r.Get("/users/{id}", h.GetUser)
	r.Post("/users/{id}/subscribe", h.addRelation(h.Follows, h.renderSubscription))
	r.Delete("/users/{id}/subscribe", h.removeRelation(h.Follows))

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
