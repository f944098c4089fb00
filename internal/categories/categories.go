// Package categories manages the expense category catalogue. The list is
// hot on every expense form, so reads go through the cache.
package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/platform/httpx"
)

const listTTL = 5 * time.Minute

// Category groups expenses for reporting.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, name, description string) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, NULLIF($2, ''))
		 RETURNING id, name, COALESCE(description, ''), created_at`,
		name, description,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Category{}, fmt.Errorf("category %s: %w", name, httpx.ErrDuplicate)
	}
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// RepositoryPort defines data access methods for categories.
type RepositoryPort interface {
	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, description string) (Category, error)
}

// Handler manages category endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      RepositoryPort
	cache     *cache.Store
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo RepositoryPort, store *cache.Store) *Handler {
	return &Handler{logger: logger, repo: repo, cache: store, validator: validator.New()}
}

// MountRoutes registers category routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listCategories)
	r.Post("/", h.createCategory)
}

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	var categories []Category
	err := h.cache.GetOrSet(r.Context(), cache.KeyCategoryList, listTTL, &categories, func(ctx context.Context) (any, error) {
		return h.repo.ListCategories(ctx)
	})
	if err != nil {
		h.logger.Error("list categories failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
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
	category, err := h.repo.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.Error("create category failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.cache.Delete(r.Context(), cache.KeyCategoryList); err != nil {
		h.logger.Warn("invalidate category list", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, category)
}
