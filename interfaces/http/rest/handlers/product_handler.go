package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	"catalogo-backend/pkg/common"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/utils"
)

const maxRequestBody = 1 << 20

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	products ports.ProductRepository
	images   ports.ImageStore
	errors   *apperrors.ErrorHandler
	logger   *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(
	products ports.ProductRepository,
	images ports.ImageStore,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		products: products,
		images:   images,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Code           string                `json:"code" validate:"required,min=1,max=64"`
	Name           catalog.LocalizedText `json:"name" validate:"required"`
	Description    catalog.LocalizedText `json:"description,omitempty"`
	Category       catalog.LocalizedText `json:"category" validate:"required"`
	Subcategory    catalog.LocalizedText `json:"subcategory" validate:"required"`
	Price          float64               `json:"price" validate:"gte=0"`
	PriceUnit      string                `json:"priceUnit" validate:"required"`
	PackagingType  string                `json:"packagingType" validate:"required"`
	UnitsPerBox    *int                  `json:"unitsPerBox,omitempty" validate:"omitempty,gte=0"`
	BoxesPerPallet *int                  `json:"boxesPerPallet,omitempty" validate:"omitempty,gte=0"`
	Images         []string              `json:"images,omitempty"`
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pageRequest(r)

	result, err := h.products.List(r.Context(), page)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ListProductsByCategory handles GET /products/by-category
func (h *ProductHandler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("category query parameter is required"))
		return
	}
	subcategory := r.URL.Query().Get("subcategory")
	page := pageRequest(r)

	var result *ports.ProductPage
	var err error
	if subcategory != "" {
		result, err = h.products.ListByCategoryAndSubcategory(r.Context(), category, subcategory, page)
	} else {
		result, err = h.products.ListByCategory(r.Context(), category, page)
	}
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetProduct handles GET /products/{productID}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, product)
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	if err := validateProductEnums(req.PriceUnit, req.PackagingType, req.Images); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	product := &catalog.Product{
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		Price:          req.Price,
		PriceUnit:      req.PriceUnit,
		PackagingType:  req.PackagingType,
		UnitsPerBox:    req.UnitsPerBox,
		BoxesPerPallet: req.BoxesPerPallet,
		Images:         req.Images,
	}

	created, err := h.products.Create(r.Context(), product)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, created)
}

// UpdateProduct handles PUT /admin/products/{productID}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var patch catalog.ProductUpdate
	if err := common.ParseJSONBody(r, &patch, maxRequestBody); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := validateProductPatch(patch); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	updated, err := h.products.Update(r.Context(), productID, patch)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /admin/products/{productID}. The row is
// removed first; its stored images are cleaned up afterwards in the
// background, so a slow or failing bucket never blocks the response.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.products.Delete(r.Context(), productID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if len(product.Images) > 0 {
		cleanupCtx := context.WithoutCancel(r.Context())
		images := product.Images
		go func() {
			keys := make([]string, 0, len(images))
			for _, url := range images {
				if key := h.images.KeyFromURL(url); key != "" {
					keys = append(keys, key)
				}
			}
			h.images.DeleteMany(cleanupCtx, keys)
		}()
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "product deleted",
	})
}

func pageRequest(r *http.Request) ports.PageRequest {
	params := common.ExtractPageParams(r)
	return ports.PageRequest{Limit: params.Limit, Cursor: params.Cursor}
}

func validateProductEnums(priceUnit, packagingType string, images []string) error {
	if !catalog.IsValidPriceUnit(priceUnit) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid price unit %q", priceUnit))
	}
	if !catalog.IsValidPackagingType(packagingType) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid packaging type %q", packagingType))
	}
	if len(images) > catalog.MaxImagesPerProduct {
		return apperrors.NewValidationError(fmt.Sprintf("a product holds at most %d images", catalog.MaxImagesPerProduct))
	}
	return nil
}

func validateProductPatch(patch catalog.ProductUpdate) error {
	if patch.IsEmpty() {
		return apperrors.NewValidationError("no fields to update")
	}
	if patch.PriceUnit != nil && !catalog.IsValidPriceUnit(*patch.PriceUnit) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid price unit %q", *patch.PriceUnit))
	}
	if patch.PackagingType != nil && !catalog.IsValidPackagingType(*patch.PackagingType) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid packaging type %q", *patch.PackagingType))
	}
	if patch.Price != nil && *patch.Price < 0 {
		return apperrors.NewValidationError("price must not be negative")
	}
	if patch.UnitsPerBox != nil && *patch.UnitsPerBox < 0 {
		return apperrors.NewValidationError("unitsPerBox must not be negative")
	}
	if patch.BoxesPerPallet != nil && *patch.BoxesPerPallet < 0 {
		return apperrors.NewValidationError("boxesPerPallet must not be negative")
	}
	if patch.Images != nil && len(*patch.Images) > catalog.MaxImagesPerProduct {
		return apperrors.NewValidationError(fmt.Sprintf("a product holds at most %d images", catalog.MaxImagesPerProduct))
	}
	return nil
}
