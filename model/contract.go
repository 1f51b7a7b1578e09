package model

import (
	"time"
)

// Contract is the signable unit: a source document plus a set of placed
// fields, filled independently by the owner and by counterparties.
type Contract struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OwnerUser   string `json:"owner_user"`
	Status      string `json:"status"`

	// SourceObject is the object-storage name of the uploaded document;
	// SourceURL is a presigned URL for the rendering surface.
	SourceObject string `json:"source_object"`
	SourceURL    string `json:"source_url"`
	Filename     string `json:"filename"`
	PageCount    int    `json:"page_count"`

	// OwnerSignedAt is nil until the owner completes their signing phase.
	OwnerSignedAt    *time.Time        `json:"owner_signed_at,omitempty"`
	OwnerFieldValues map[string]string `json:"owner_field_values,omitempty"`

	// ArtifactObject/ArtifactURL reference the exported merged document,
	// once produced.
	ArtifactObject string `json:"artifact_object,omitempty"`
	ArtifactURL    string `json:"artifact_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contract status constants. Status is operator-settable and not a strict
// state machine; the signed-by-both condition is derived, never stored.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
)

// ValidStatus reports whether s is one of the four contract states.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// SignedByBoth reports whether both parties have signed: the owner phase is
// committed and at least one counterparty submission exists. Derived on
// demand so it can never drift from the underlying records.
func (c *Contract) SignedByBoth(submissionCount int) bool {
	return c.OwnerSignedAt != nil && submissionCount > 0
}

// ClampPage clamps a page navigation target to [1, PageCount]. A contract
// with unknown page count accepts any page >= 1.
func (c *Contract) ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if c.PageCount > 0 && page > c.PageCount {
		return c.PageCount
	}
	return page
}
