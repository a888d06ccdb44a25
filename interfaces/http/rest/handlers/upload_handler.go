package handlers

import (
	"encoding/base64"
	"net/http"
	"time"

	"go.uber.org/zap"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	"catalogo-backend/interfaces/http/rest/middleware"
	"catalogo-backend/pkg/common"
	apperrors "catalogo-backend/pkg/errors"
	"catalogo-backend/pkg/utils"
)

// uploadBodyLimit leaves headroom over the raw image limit for the
// base64 expansion plus the JSON envelope.
const uploadBodyLimit = int64(catalog.MaxImageSizeBytes)*4/3 + 4096

const defaultDownloadTTL = 300 * time.Second

// UploadHandler handles image upload HTTP requests
type UploadHandler struct {
	images ports.ImageStore
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(
	images ports.ImageStore,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		images: images,
		errors: errorHandler,
		logger: logger,
	}
}

// PresignUploadRequest asks for a direct-to-bucket upload grant.
type PresignUploadRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
}

// UploadImageRequest carries an image inline, base64-encoded.
type UploadImageRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	Data        string `json:"data" validate:"required"`
}

// PresignUpload handles POST /admin/uploads/presign
func (h *UploadHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	var req PresignUploadRequest
	if err := common.ParseJSONBody(r, &req, maxRequestBody); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	grant, err := h.images.PresignUpload(r.Context(), req.FileName, req.ContentType)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, grant)
}

// UploadImage handles POST /admin/uploads: the image travels inline as
// base64 and is written to the bucket server-side.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req UploadImageRequest
	if err := common.ParseJSONBody(r, &req, uploadBodyLimit); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	body, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError("data is not valid base64"))
		return
	}

	metadata := map[string]string{"originalName": req.FileName}
	if user := userID(r); user != "" {
		metadata["uploadedBy"] = user
	}

	url, err := h.images.Upload(r.Context(), req.FileName, req.ContentType, body, metadata)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"url":  url,
		"key":  h.images.KeyFromURL(url),
		"size": len(body),
	})
}

// DownloadURL handles GET /admin/uploads/download-url?key=...
func (h *UploadHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.errors.Handle(w, r, apperrors.NewValidationError("key query parameter is required"))
		return
	}

	url, err := h.images.PresignDownload(r.Context(), key, defaultDownloadTTL)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"url":       url,
		"expiresIn": int(defaultDownloadTTL.Seconds()),
	})
}

func userID(r *http.Request) string {
	if user := middleware.GetUser(r.Context()); user != nil {
		return user.UserID
	}
	return ""
}
