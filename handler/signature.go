package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

// SignatureHandler serves the three signature acquisition paths (draw,
// upload, saved) and the saved-signature library. All paths produce the
// same thing: a raster data URL the client assigns to one signature field.
type SignatureHandler struct {
	store service.Store
}

func NewSignatureHandler(store service.Store) *SignatureHandler {
	return &SignatureHandler{store: store}
}

type DrawRequest struct {
	Strokes []service.Stroke `json:"strokes"`
	Width   int              `json:"width" binding:"required"`
	Height  int              `json:"height" binding:"required"`
	// Save persists the drawn signature to the operator's library under
	// Name; the field value is an independent copy either way.
	Save      bool   `json:"save"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// Draw rasterizes sampled strokes and returns the signature value. An empty
// stroke set is a validation error: nothing drawn means nothing to commit.
func (h *SignatureHandler) Draw(c *gin.Context) {
	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	raster, err := service.RasterizeStrokes(req.Strokes, req.Width, req.Height)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCanvas) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing drawn"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value := service.EncodeDataURL("image/png", raster)

	ctx := c.Request.Context()
	if req.Save {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A name is required to save a signature"})
			return
		}
		sig := &model.SavedSignature{
			ID:        uuid.New().String(),
			UserID:    middleware.GetUsername(c),
			Name:      name,
			Data:      value,
			IsDefault: req.IsDefault,
			CreatedAt: time.Now(),
		}
		if err := h.store.CreateSavedSignature(ctx, sig); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save signature"})
			return
		}
		logger.Info(ctx, "signature saved to library", "signature_id", sig.ID)
	}

	c.JSON(http.StatusOK, gin.H{"value": value})
}

// Upload accepts a raster image file and returns it as a signature value.
// Non-image uploads are rejected.
func (h *SignatureHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	const maxSignatureBytes = 2 << 20
	if header.Size > maxSignatureBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature image too large"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	contentType, err := service.SniffImageType(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PNG and JPEG images are allowed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": service.EncodeDataURL(contentType, data)})
}

// List returns the operator's saved signatures
func (h *SignatureHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)

	signatures, err := h.store.ListSavedSignatures(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list signatures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signatures": signatures})
}

// Get returns one saved signature; selecting it copies its value into the
// target field client-side, so the contract keeps an independent copy.
func (h *SignatureHandler) Get(c *gin.Context) {
	username := middleware.GetUsername(c)

	sig, err := h.store.GetSavedSignature(c.Request.Context(), c.Param("id"))
	if err != nil || sig.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signature not found"})
		return
	}

	c.JSON(http.StatusOK, sig)
}

// Delete removes a saved signature. Contract values that copied it are
// unaffected.
func (h *SignatureHandler) Delete(c *gin.Context) {
	username := middleware.GetUsername(c)
	ctx := c.Request.Context()

	sig, err := h.store.GetSavedSignature(ctx, c.Param("id"))
	if err != nil || sig.UserID != username {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signature not found"})
		return
	}

	if err := h.store.DeleteSavedSignature(ctx, sig.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signature deleted"})
}

// DrawSignature is the counterparty variant of Draw, reached through a
// share link: rasterize only, no library access.
func (h *ShareHandler) DrawSignature(c *gin.Context) {
	if h.resolve(c) == nil {
		return
	}

	var req DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	raster, err := service.RasterizeStrokes(req.Strokes, req.Width, req.Height)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCanvas) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing drawn"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": service.EncodeDataURL("image/png", raster)})
}
