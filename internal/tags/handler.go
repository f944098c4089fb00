package tags

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

// RepositoryPort defines data access methods for tags.
type RepositoryPort interface {
	ListTags(ctx context.Context) ([]Tag, error)
	CreateTag(ctx context.Context, name, color, category string) (Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}

// Handler manages tag endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      RepositoryPort
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	return &Handler{logger: logger, repo: repo, validator: validator.New()}
}

// MountRoutes registers tag routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listTags)
	r.Post("/", h.createTag)
	r.Delete("/{id}", h.deleteTag)
}

type createTagRequest struct {
	Name     string `json:"name" validate:"required"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	Category string `json:"category"`
}

func (h *Handler) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.ListTags(r.Context())
	if err != nil {
		h.logger.Error("list tags failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if tags == nil {
		tags = []Tag{}
	}
	httpx.JSON(w, http.StatusOK, tags)
}

func (h *Handler) createTag(w http.ResponseWriter, r *http.Request) {
	var req createTagRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return
	}
	tag, err := h.repo.CreateTag(r.Context(), req.Name, req.Color, req.Category)
	if err != nil {
		h.logger.Error("create tag failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tag)
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid tag id")
		return
	}
	if err := h.repo.DeleteTag(r.Context(), id); err != nil {
		h.logger.Error("delete tag failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
