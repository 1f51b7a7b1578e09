package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/config"
	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

type SignHandler struct {
	store  service.Store
	config *config.Config
}

func NewSignHandler(store service.Store, cfg *config.Config) *SignHandler {
	return &SignHandler{store: store, config: cfg}
}

type OwnerSignRequest struct {
	// Values maps field id to the entered value; signature fields carry a
	// raster data URL produced by the capture endpoints.
	Values map[string]string `json:"values" binding:"required"`
}

// CommitOwnerSigning completes the owner signing phase. Every owner-party
// field must have a non-empty value; the store then applies the values, the
// signing timestamp and the transition to active as one unit, so a failure
// can never leave the contract active with partial values.
func (h *SignHandler) CommitOwnerSigning(c *gin.Context) {
	contract := ownedContract(c, h.store)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	var req OwnerSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fields, err := h.store.ListFields(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}

	var missing []string
	values := make(map[string]string)
	for _, f := range fields {
		if f.SignerParty != model.PartyOwner {
			continue
		}
		value := req.Values[f.ID]
		if value == "" {
			missing = append(missing, f.Label)
			continue
		}
		values[f.ID] = value
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "All owner fields must be filled before signing",
			"missing": missing,
		})
		return
	}

	// Signature fields must carry raster values, not typed text
	for _, f := range fields {
		if f.SignerParty == model.PartyOwner && f.Type == model.FieldSignature {
			if !service.IsImageDataURL(values[f.ID]) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Signature field \"" + f.Label + "\" requires a drawn or uploaded signature"})
				return
			}
		}
	}

	signedAt := time.Now()
	if err := h.store.CommitOwnerSigning(ctx, contract.ID, values, signedAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit signing: " + err.Error()})
		return
	}

	logger.Info(ctx, "owner signing committed", "contract_id", contract.ID, "fields", len(values))
	c.JSON(http.StatusOK, gin.H{
		"id":              contract.ID,
		"status":          model.StatusActive,
		"owner_signed_at": signedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// CreateShareLink issues a share-link token a counterparty uses to reach
// the public signing endpoints.
func (h *SignHandler) CreateShareLink(c *gin.Context) {
	contract := ownedContract(c, h.store)
	if contract == nil {
		return
	}

	token, expiresAt, err := middleware.GenerateShareToken(contract.ID, &h.config.Share)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate share link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// ListSubmissions returns all counterparty submissions for a contract
func (h *SignHandler) ListSubmissions(c *gin.Context) {
	contract := ownedContract(c, h.store)
	if contract == nil {
		return
	}

	submissions, err := h.store.ListSubmissions(c.Request.Context(), contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submissions": submissions})
}
