package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

// ExportHandler reconciles owner and counterparty values and hands the
// resolved payload to the rendering collaborator.
type ExportHandler struct {
	store    service.Store
	storage  service.ObjectStorage
	renderer service.Renderer
}

func NewExportHandler(store service.Store, storage service.ObjectStorage, renderer service.Renderer) *ExportHandler {
	return &ExportHandler{
		store:    store,
		storage:  storage,
		renderer: renderer,
	}
}

// Export merges the owner's id-keyed values with one submission's
// label-keyed values, renders the merged document and stores it as the
// contract's artifact. Repeated exports are idempotent over the stored
// records: the same inputs build the same payload, and only the artifact
// reference is rewritten.
//
// The submission query parameter selects a submission; it defaults to the
// most recent one.
func (h *ExportHandler) Export(c *gin.Context) {
	contract := ownedContract(c, h.store)
	if contract == nil {
		return
	}
	ctx := c.Request.Context()

	submissions, err := h.store.ListSubmissions(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	if !contract.SignedByBoth(len(submissions)) {
		c.JSON(http.StatusConflict, gin.H{"error": "Contract must be signed by both parties before export"})
		return
	}

	submission := submissions[len(submissions)-1]
	if wanted := c.Query("submission"); wanted != "" {
		sub, err := h.store.GetSubmission(ctx, wanted)
		if err != nil || sub.ContractID != contract.ID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		submission = sub
	}

	fields, err := h.store.ListFields(ctx, contract.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fields"})
		return
	}

	resolved := service.ResolveValues(fields, contract.OwnerFieldValues, submission)
	entries := service.BuildExportEntries(fields, resolved)

	artifact, err := h.renderer.Render(ctx, contract.SourceURL, entries)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Rendering failed: " + err.Error()})
		return
	}

	objectName := service.ArtifactObjectName(contract.OwnerUser, contract.ID, time.Now())
	if err := h.storage.UploadObject(ctx, objectName, bytes.NewReader(artifact), int64(len(artifact)), "application/pdf"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store artifact: " + err.Error()})
		return
	}

	artifactURL, err := h.storage.PresignedURL(ctx, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate artifact URL: " + err.Error()})
		return
	}

	if err := h.store.SetArtifact(ctx, contract.ID, objectName, artifactURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record artifact"})
		return
	}

	logger.Info(ctx, "contract exported",
		"contract_id", contract.ID,
		"submission_id", submission.ID,
		"fields", len(fields),
	)
	c.JSON(http.StatusOK, gin.H{
		"artifact_url":  artifactURL,
		"submission_id": submission.ID,
		"field_count":   len(fields),
	})
}

// Preview returns the resolved value set without invoking the renderer,
// so an operator can inspect the merge before exporting.
func (h *ExportHandler) Preview(c *gin.Context) {
	contract := ownedContract(c, h.store)
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

	var submission *model.Submission
	if len(submissions) > 0 {
		submission = submissions[len(submissions)-1]
	}

	resolved := service.ResolveValues(fields, contract.OwnerFieldValues, submission)
	c.JSON(http.StatusOK, gin.H{
		"entries":        service.BuildExportEntries(fields, resolved),
		"signed_by_both": contract.SignedByBoth(len(submissions)),
	})
}
