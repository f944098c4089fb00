package cache

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// Handler exposes admin endpoints for cache observability.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler constructs the cache admin handler.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers cache admin routes. Callers guard them with the
// admin-only middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stats", h.stats)
	r.Post("/clear", h.clear)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("cache stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("cache clear", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
}
