package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillsign/quillsign/backend/model"
)

func newTestContract(id, owner string) *model.Contract {
	return &model.Contract{
		ID:        id,
		Title:     "Test contract",
		OwnerUser: owner,
		Status:    model.StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestMemoryStoreContractRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateContract(ctx, newTestContract("c1", "alice")); err != nil {
		t.Fatalf("Failed to create contract: %v", err)
	}

	c, err := store.GetContract(ctx, "c1")
	if err != nil {
		t.Fatalf("Failed to get contract: %v", err)
	}
	if c.Title != "Test contract" {
		t.Errorf("Expected title Test contract, got %s", c.Title)
	}

	if _, err := store.GetContract(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListContractsByOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateContract(ctx, newTestContract("c1", "alice"))
	store.CreateContract(ctx, newTestContract("c2", "alice"))
	store.CreateContract(ctx, newTestContract("c3", "bob"))

	contracts, err := store.ListContracts(ctx, "alice")
	if err != nil {
		t.Fatalf("Failed to list contracts: %v", err)
	}
	if len(contracts) != 2 {
		t.Errorf("Expected 2 contracts for alice, got %d", len(contracts))
	}

	contracts, _ = store.ListContracts(ctx, "carol")
	if len(contracts) != 0 {
		t.Errorf("Expected 0 contracts for carol, got %d", len(contracts))
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	c, _ := store.GetContract(ctx, "c1")
	c.Title = "mutated"

	again, _ := store.GetContract(ctx, "c1")
	if again.Title != "Test contract" {
		t.Error("Mutating a returned contract leaked into the store")
	}
}

func TestReplaceFieldsSwapsAtomically(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	first := []model.Field{
		{ID: "f1", Type: model.FieldText, Label: "Name", PageNumber: 1, SignerParty: model.PartyOwner, DisplayOrder: 0},
		{ID: "f2", Type: model.FieldDate, Label: "Date", PageNumber: 1, SignerParty: model.PartyOwner, DisplayOrder: 1},
	}
	if err := store.ReplaceFields(ctx, "c1", first); err != nil {
		t.Fatalf("Failed to replace fields: %v", err)
	}

	second := []model.Field{
		{ID: "f3", Type: model.FieldSignature, Label: "Signature", PageNumber: 2, SignerParty: model.PartyCounterparty, DisplayOrder: 0},
	}
	if err := store.ReplaceFields(ctx, "c1", second); err != nil {
		t.Fatalf("Failed to replace fields: %v", err)
	}

	fields, _ := store.ListFields(ctx, "c1")
	if len(fields) != 1 || fields[0].ID != "f3" {
		t.Errorf("Expected replacement set [f3], got %v", fields)
	}

	// Replacing fields of a missing contract fails and stores nothing
	if err := store.ReplaceFields(ctx, "missing", first); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestReplaceFieldsOrdersByDisplayOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	store.ReplaceFields(ctx, "c1", []model.Field{
		{ID: "f2", DisplayOrder: 1},
		{ID: "f1", DisplayOrder: 0},
	})

	fields, _ := store.ListFields(ctx, "c1")
	if fields[0].ID != "f1" || fields[1].ID != "f2" {
		t.Errorf("Fields not ordered by display order: %v", fields)
	}
}

func TestCommitOwnerSigning(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	signedAt := time.Now()
	values := map[string]string{"f1": "Alice", "f2": "2026-08-29"}
	if err := store.CommitOwnerSigning(ctx, "c1", values, signedAt); err != nil {
		t.Fatalf("Failed to commit signing: %v", err)
	}

	c, _ := store.GetContract(ctx, "c1")
	if c.Status != model.StatusActive {
		t.Errorf("Expected status active, got %s", c.Status)
	}
	if c.OwnerSignedAt == nil || !c.OwnerSignedAt.Equal(signedAt) {
		t.Errorf("Expected owner_signed_at %v, got %v", signedAt, c.OwnerSignedAt)
	}
	if c.OwnerFieldValues["f1"] != "Alice" {
		t.Errorf("Expected owner value Alice, got %q", c.OwnerFieldValues["f1"])
	}

	if err := store.CommitOwnerSigning(ctx, "missing", values, signedAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteContractCascades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))
	store.ReplaceFields(ctx, "c1", []model.Field{{ID: "f1"}})
	store.CreateSubmission(ctx, &model.Submission{
		ID:          "s1",
		ContractID:  "c1",
		SignerName:  "Bob",
		FieldValues: map[string]string{"Name": "Bob"},
		SignedAt:    time.Now(),
	})

	if err := store.DeleteContract(ctx, "c1"); err != nil {
		t.Fatalf("Failed to delete contract: %v", err)
	}

	if fields, _ := store.ListFields(ctx, "c1"); len(fields) != 0 {
		t.Error("Expected fields to cascade on delete")
	}
	if _, err := store.GetSubmission(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected submissions to cascade on delete")
	}
}

func TestSubmissionsOrderedAndRetained(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	base := time.Now()
	for i, id := range []string{"s2", "s1", "s3"} {
		offsets := []time.Duration{time.Minute, 0, 2 * time.Minute}
		store.CreateSubmission(ctx, &model.Submission{
			ID:          id,
			ContractID:  "c1",
			SignerName:  "Signer",
			FieldValues: map[string]string{},
			SignedAt:    base.Add(offsets[i]),
		})
	}

	subs, err := store.ListSubmissions(ctx, "c1")
	if err != nil {
		t.Fatalf("Failed to list submissions: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("Expected all 3 submissions retained, got %d", len(subs))
	}
	if subs[0].ID != "s1" || subs[2].ID != "s3" {
		t.Errorf("Submissions not ordered by signing time: %v, %v, %v", subs[0].ID, subs[1].ID, subs[2].ID)
	}

	// Submissions require an existing contract
	err = store.CreateSubmission(ctx, &model.Submission{ID: "sx", ContractID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSavedSignatureDefaultSwitch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.CreateSavedSignature(ctx, &model.SavedSignature{
		ID: "sig1", UserID: "alice", Name: "first", Data: "data:image/png;base64,AAAA",
		IsDefault: true, CreatedAt: time.Now(),
	})
	store.CreateSavedSignature(ctx, &model.SavedSignature{
		ID: "sig2", UserID: "alice", Name: "second", Data: "data:image/png;base64,BBBB",
		IsDefault: true, CreatedAt: time.Now().Add(time.Second),
	})

	sigs, _ := store.ListSavedSignatures(ctx, "alice")
	if len(sigs) != 2 {
		t.Fatalf("Expected 2 signatures, got %d", len(sigs))
	}
	var defaults int
	for _, s := range sigs {
		if s.IsDefault {
			defaults++
			if s.ID != "sig2" {
				t.Errorf("Expected sig2 to be the default, got %s", s.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default, got %d", defaults)
	}
}

func TestDeleteSavedSignatureIndependentOfContracts(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.CreateContract(ctx, newTestContract("c1", "alice"))

	sig := &model.SavedSignature{
		ID: "sig1", UserID: "alice", Name: "mine",
		Data: "data:image/png;base64,AAAA", CreatedAt: time.Now(),
	}
	store.CreateSavedSignature(ctx, sig)

	// The contract holds a copy of the raster value, not a reference
	store.CommitOwnerSigning(ctx, "c1", map[string]string{"f1": sig.Data}, time.Now())
	store.DeleteSavedSignature(ctx, "sig1")

	c, _ := store.GetContract(ctx, "c1")
	if c.OwnerFieldValues["f1"] != "data:image/png;base64,AAAA" {
		t.Error("Deleting a saved signature must not touch contract values")
	}
}
