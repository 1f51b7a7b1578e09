package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quillsign/quillsign/backend/config"
	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

// ShareHandler serves the unauthenticated counterparty entry points. The
// share token is the only credential; it resolves to exactly one contract.
type ShareHandler struct {
	store  service.Store
	config *config.Config
}

func NewShareHandler(store service.Store, cfg *config.Config) *ShareHandler {
	return &ShareHandler{store: store, config: cfg}
}

// resolve validates the share token and loads the contract it points to.
func (h *ShareHandler) resolve(c *gin.Context) *model.Contract {
	contractID, err := middleware.ParseShareToken(c.Param("token"), &h.config.Share)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired share link"})
		return nil
	}

	contract, err := h.store.GetContract(c.Request.Context(), contractID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContractKey, contract.ID)
	c.Request = c.Request.WithContext(ctx)
	return contract
}

// Get returns the counterparty view of a shared contract: title, document
// URL and only the fields assigned to the counterparty. The signing session
// is party-scoped; the owner's fields are never exposed here.
func (h *ShareHandler) Get(c *gin.Context) {
	contract := h.resolve(c)
	if contract == nil {
		return
	}

	fields, err := h.store.ListFields(c.Request.Context(), contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}

	counterparty := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		if f.SignerParty == model.PartyCounterparty {
			counterparty = append(counterparty, f)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"contract": gin.H{
			"id":         contract.ID,
			"title":      contract.Title,
			"source_url": contract.SourceURL,
			"page_count": contract.PageCount,
		},
		"fields": counterparty,
	})
}

type SubmissionRequest struct {
	SignerName  string `json:"signer_name" binding:"required"`
	SignerEmail string `json:"signer_email"`
	// Values are keyed by field label: the label is the only correlation
	// key a counterparty sees.
	Values map[string]string `json:"values" binding:"required"`
}

// Submit records one completed counterparty signing pass. Every
// counterparty field must carry a non-empty value, keyed by label; the
// submission is stored as an independent record, so multiple counterparties
// (or a re-signing) never contend with the owner's data.
func (h *ShareHandler) Submit(c *gin.Context) {
	contract := h.resolve(c)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	var req SubmissionRequest
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
	seen := make(map[string]bool)
	for _, f := range fields {
		if f.SignerParty != model.PartyCounterparty || seen[f.Label] {
			continue
		}
		seen[f.Label] = true
		if req.Values[f.Label] == "" {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "All fields must be filled before submitting",
			"missing": missing,
		})
		return
	}

	// Signature fields must carry raster values, not typed text
	for _, f := range fields {
		if f.SignerParty == model.PartyCounterparty && f.Type == model.FieldSignature {
			if v := req.Values[f.Label]; v != "" && !service.IsImageDataURL(v) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Signature field \"" + f.Label + "\" requires a drawn or uploaded signature"})
				return
			}
		}
	}

	submission := &model.Submission{
		ID:          uuid.New().String(),
		ContractID:  contract.ID,
		SignerName:  req.SignerName,
		SignerEmail: req.SignerEmail,
		FieldValues: req.Values,
		SignedAt:    time.Now(),
	}
	if err := h.store.CreateSubmission(ctx, submission); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record submission: " + err.Error()})
		return
	}

	logger.Info(ctx, "submission recorded", "contract_id", contract.ID, "submission_id", submission.ID)
	c.JSON(http.StatusOK, gin.H{
		"id":        submission.ID,
		"signed_at": submission.SignedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
