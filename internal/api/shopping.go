package api

import (
	"log/slog"
	"net/http"
)

// DownloadShoppingCart handles GET /api/recipes/download_shopping_cart.
//
//	@Summary		Download the caller's combined shopping list
//	@Tags			recipes
//	@Produce		plain
//	@Success		200	{string}	string	"Shopping list"
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recipes/download_shopping_cart [get]
func (h *Handler) DownloadShoppingCart(w http.ResponseWriter, r *http.Request) {
	report, err := h.Shopping.Aggregate(r.Context(), ActorFrom(r.Context()))
	if err != nil {
		writeError(w, "download shopping cart", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shopping_cart.txt"`)
	w.WriteHeader(http.StatusOK)
	if _, err := report.WriteTo(w); err != nil {
		slog.Warn("write shopping cart failed", slog.String("error", err.Error()))
	}
}
