package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	"catalogo-backend/pkg/common"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/utils"
)

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	categories ports.CategoryRepository
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(
	categories ports.CategoryRepository,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		errors:     errorHandler,
		logger:     logger,
	}
}

// CategoryRequest is the body for category and subcategory writes.
type CategoryRequest struct {
	Translations catalog.LocalizedText `json:"translations" validate:"required"`
}

// ListCategories handles GET /categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, categories)
}

// ListAllSubcategories handles GET /subcategories
func (h *CategoryHandler) ListAllSubcategories(w http.ResponseWriter, r *http.Request) {
	subcategories, err := h.categories.ListAllSubcategories(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, subcategories)
}

// GetCategory handles GET /categories/{categoryID}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "categoryID")

	translations, err := h.categories.GetCategory(r.Context(), name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, translations)
}

// ListSubcategories handles GET /categories/{categoryID}/subcategories
func (h *CategoryHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "categoryID")

	subcategories, err := h.categories.ListSubcategoriesOf(r.Context(), name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, subcategories)
}

// CreateCategory handles POST /admin/categories/{categoryID}
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "categoryID")

	req, err := h.parseBody(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	created, err := h.categories.CreateCategory(r.Context(), name, req.Translations)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, created)
}

// UpdateCategory handles PUT /admin/categories/{categoryID}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "categoryID")

	req, err := h.parseBody(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	updated, err := h.categories.UpdateCategory(r.Context(), name, req.Translations)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, updated)
}

// DeleteCategory handles DELETE /admin/categories/{categoryID}. Every
// row under the category goes, subcategories included.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "categoryID")

	deleted, err := h.categories.DeleteCategory(r.Context(), name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "category deleted",
		"entriesDeleted": deleted,
	})
}

// UpsertSubcategory handles PUT /admin/categories/{categoryID}/subcategories/{subcategoryID}
func (h *CategoryHandler) UpsertSubcategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "categoryID")
	subcategory := chi.URLParam(r, "subcategoryID")

	req, err := h.parseBody(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	entry, err := h.categories.UpsertSubcategory(r.Context(), category, subcategory, req.Translations)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, entry)
}

// DeleteSubcategory handles DELETE /admin/categories/{categoryID}/subcategories/{subcategoryID}
func (h *CategoryHandler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "categoryID")
	subcategory := chi.URLParam(r, "subcategoryID")

	if err := h.categories.DeleteSubcategory(r.Context(), category, subcategory); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "subcategory deleted",
	})
}

func (h *CategoryHandler) parseBody(r *http.Request) (*CategoryRequest, error) {
	var req CategoryRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		return nil, apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if req.Translations.IsEmpty() {
		return nil, apperrors.NewValidationError("translations must not be empty")
	}
	return &req, nil
}
