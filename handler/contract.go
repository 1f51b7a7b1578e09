package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

type ContractHandler struct {
	store    service.Store
	storage  service.ObjectStorage
	renderer service.Renderer
}

func NewContractHandler(store service.Store, storage service.ObjectStorage, renderer service.Renderer) *ContractHandler {
	return &ContractHandler{
		store:    store,
		storage:  storage,
		renderer: renderer,
	}
}

// Create handles contract creation with a source document upload
func (h *ContractHandler) Create(c *gin.Context) {
	username := middleware.GetUsername(c)

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	description := c.PostForm("description")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No document provided"})
		return
	}
	defer file.Close()

	// Validate file type - PDF and DOCX allowed
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".docx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}

	var contentType string
	if ext == ".pdf" {
		// Sniff the header when the client did not send a PDF content type
		contentType = header.Header.Get("Content-Type")
		if !strings.Contains(contentType, "pdf") {
			buffer := make([]byte, 512)
			if _, err := file.Read(buffer); err != nil && err != io.EOF {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
				return
			}
			file.Seek(0, io.SeekStart)

			detected := http.DetectContentType(buffer)
			if !strings.Contains(detected, "pdf") && detected != "application/octet-stream" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
				return
			}
			contentType = "application/pdf"
		}
	} else {
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}

	contractID := uuid.New().String()
	objectName := service.DocumentObjectName(username, contractID, header.Filename)

	ctx := c.Request.Context()
	if err := h.storage.UploadObject(ctx, objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document: " + err.Error()})
		return
	}

	sourceURL, err := h.storage.PresignedURL(ctx, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
		return
	}

	// Ask the renderer for page count; a metadata failure leaves the count
	// at zero and field page validation falls back to page >= 1.
	pageCount := 0
	if meta, err := h.renderer.DocumentMetadata(ctx, sourceURL); err != nil {
		logger.Warn(ctx, "failed to fetch document metadata", "contract_id", contractID, "error", err)
	} else {
		pageCount = meta.PageCount
	}

	now := time.Now()
	contract := &model.Contract{
		ID:           contractID,
		Title:        title,
		Description:  description,
		OwnerUser:    username,
		Status:       model.StatusDraft,
		SourceObject: objectName,
		SourceURL:    sourceURL,
		Filename:     header.Filename,
		PageCount:    pageCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateContract(ctx, contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save contract: " + err.Error()})
		return
	}

	logger.Info(ctx, "contract created", "contract_id", contractID, "pages", pageCount)
	c.JSON(http.StatusOK, contract)
}

// List returns all contracts owned by the current operator
func (h *ContractHandler) List(c *gin.Context) {
	username := middleware.GetUsername(c)

	contracts, err := h.store.ListContracts(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}

	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":         contract.ID,
			"title":      contract.Title,
			"filename":   contract.Filename,
			"status":     contract.Status,
			"page_count": contract.PageCount,
			"created_at": contract.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": contract.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

func (h *ContractHandler) getOwned(c *gin.Context) *model.Contract {
	return ownedContract(c, h.store)
}

// Get returns a single contract with its fields and derived signing state
func (h *ContractHandler) Get(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	fields, err := h.store.ListFields(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}
	submissions, err := h.store.ListSubmissions(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contract":         contract,
		"fields":           fields,
		"submission_count": len(submissions),
		"signed_by_both":   contract.SignedByBoth(len(submissions)),
	})
}

type UpdateContractRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// Update changes a contract's title and description
func (h *ContractHandler) Update(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}

	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract.Title = req.Title
	contract.Description = req.Description
	if err := h.store.UpdateContract(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contract"})
		return
	}

	c.JSON(http.StatusOK, contract)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves a contract to any of the four states. Transitions are
// operator-chosen, not a strict state machine; the signed-by-both condition
// is derived separately and never stored.
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !model.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status " + req.Status})
		return
	}

	if err := h.store.UpdateContractStatus(c.Request.Context(), contract.ID, req.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": contract.ID, "status": req.Status})
}

// Delete removes a contract, its fields and submissions, and its stored
// objects
func (h *ContractHandler) Delete(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	if err := h.store.DeleteContract(ctx, contract.ID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contract"})
		return
	}

	// Object cleanup is best effort once the record is gone
	if contract.SourceObject != "" {
		if err := h.storage.DeleteObject(ctx, contract.SourceObject); err != nil {
			logger.Warn(ctx, "failed to delete source object", "object", contract.SourceObject, "error", err)
		}
	}
	if contract.ArtifactObject != "" {
		if err := h.storage.DeleteObject(ctx, contract.ArtifactObject); err != nil {
			logger.Warn(ctx, "failed to delete artifact object", "object", contract.ArtifactObject, "error", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contract deleted"})
}

// Duplicate clones a contract as a blank draft template: the field set is
// deep-copied with fresh ids, but owner values, the signing timestamp and
// submissions never carry over. The source document is copied to an object
// the clone owns, so deleting either contract never strands the other.
func (h *ContractHandler) Duplicate(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	fields, err := h.store.ListFields(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}

	cloneID := uuid.New().String()
	sourceObject := contract.SourceObject
	sourceURL := contract.SourceURL
	if contract.SourceObject != "" {
		sourceObject = service.DocumentObjectName(contract.OwnerUser, cloneID, contract.Filename)
		if err := h.storage.CopyObject(ctx, contract.SourceObject, sourceObject); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to copy source document: " + err.Error()})
			return
		}
		sourceURL, err = h.storage.PresignedURL(ctx, sourceObject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate URL: " + err.Error()})
			return
		}
	}

	now := time.Now()
	clone := &model.Contract{
		ID:           cloneID,
		Title:        contract.Title + " (copy)",
		Description:  contract.Description,
		OwnerUser:    contract.OwnerUser,
		Status:       model.StatusDraft,
		SourceObject: sourceObject,
		SourceURL:    sourceURL,
		Filename:     contract.Filename,
		PageCount:    contract.PageCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateContract(ctx, clone); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to duplicate contract"})
		return
	}

	cloned := make([]model.Field, len(fields))
	for i, f := range fields {
		cf := f
		cf.ID = uuid.New().String()
		cf.ContractID = clone.ID
		cloned[i] = cf
	}
	if err := h.store.ReplaceFields(ctx, clone.ID, cloned); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to copy fields"})
		return
	}

	logger.Info(ctx, "contract duplicated", "source_id", contract.ID, "clone_id", clone.ID)
	c.JSON(http.StatusOK, gin.H{"contract": clone, "fields": cloned})
}
