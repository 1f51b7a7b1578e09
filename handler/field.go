package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

type FieldHandler struct {
	store service.Store
}

func NewFieldHandler(store service.Store) *FieldHandler {
	return &FieldHandler{store: store}
}

// List returns a contract's fields, optionally filtered to one signer party
// (sign sessions are party-scoped; the field editor loads all fields).
func (h *FieldHandler) List(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}

	fields, err := h.store.ListFields(c.Request.Context(), contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}

	if party := c.Query("party"); party != "" {
		filtered := fields[:0]
		for _, f := range fields {
			if f.SignerParty == model.SignerParty(party) {
				filtered = append(filtered, f)
			}
		}
		fields = filtered
	}

	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

type SaveFieldsRequest struct {
	Fields []model.Field `json:"fields"`
}

// Replace swaps the contract's whole field set in one atomic store call.
// The client edits its working copy freely and commits here on save.
// Incoming geometry is clamped to the page bounds, zero-sized fields get
// the default size for their type, and page numbers are clamped to the
// document's page range. Duplicate labels are allowed but reported as
// warnings since label-keyed submissions become ambiguous.
func (h *FieldHandler) Replace(c *gin.Context) {
	contract := h.getOwned(c)
	if contract == nil {
		return
	}

	var req SaveFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fields := make([]model.Field, len(req.Fields))
	for i, f := range req.Fields {
		if f.Width == 0 || f.Height == 0 {
			f.Width, f.Height = model.DefaultSize(f.Type)
		}
		f.PageNumber = contract.ClampPage(f.PageNumber)
		if err := f.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.Clamp()
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		f.ContractID = contract.ID
		f.DisplayOrder = i
		fields[i] = f
	}

	ctx := c.Request.Context()
	if err := h.store.ReplaceFields(ctx, contract.ID, fields); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save fields: " + err.Error()})
		return
	}

	logger.Info(ctx, "fields replaced", "contract_id", contract.ID, "count", len(fields))
	c.JSON(http.StatusOK, gin.H{
		"fields":   fields,
		"warnings": labelWarnings(fields),
	})
}

func labelWarnings(fields []model.Field) []string {
	var warnings []string
	for _, label := range model.DuplicateLabels(fields) {
		warnings = append(warnings, "duplicate label \""+label+"\": counterparty values for it will resolve to the first matching field")
	}
	return warnings
}

func (h *FieldHandler) getOwned(c *gin.Context) *model.Contract {
	return ownedContract(c, h.store)
}
