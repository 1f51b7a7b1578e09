package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/quillsign/quillsign/backend/model"
)

// ErrNotFound is returned by store lookups for missing records.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary. Two implementations exist: MemoryStore
// (default, also used by tests) and PostgresStore.
type Store interface {
	CreateContract(ctx context.Context, c *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	ListContracts(ctx context.Context, ownerUser string) ([]*model.Contract, error)
	UpdateContract(ctx context.Context, c *model.Contract) error
	UpdateContractStatus(ctx context.Context, id, status string) error
	SetArtifact(ctx context.Context, id, object, url string) error
	// DeleteContract removes the contract and cascades to its fields and
	// submissions.
	DeleteContract(ctx context.Context, id string) error

	ListFields(ctx context.Context, contractID string) ([]model.Field, error)
	// ReplaceFields swaps the contract's whole field set in one atomic
	// operation. A failure leaves the previous set intact.
	ReplaceFields(ctx context.Context, contractID string, fields []model.Field) error

	// CommitOwnerSigning applies the owner's values, signing timestamp and
	// the transition to active as a single unit.
	CommitOwnerSigning(ctx context.Context, contractID string, values map[string]string, signedAt time.Time) error

	CreateSubmission(ctx context.Context, s *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, contractID string) ([]*model.Submission, error)

	CreateSavedSignature(ctx context.Context, s *model.SavedSignature) error
	GetSavedSignature(ctx context.Context, id string) (*model.SavedSignature, error)
	ListSavedSignatures(ctx context.Context, userID string) ([]*model.SavedSignature, error)
	DeleteSavedSignature(ctx context.Context, id string) error
}

// MemoryStore is a mutex-guarded in-memory Store. Reads return copies so
// callers never share mutable state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	contracts   map[string]*model.Contract
	fields      map[string][]model.Field // contractID -> ordered fields
	submissions map[string]*model.Submission
	signatures  map[string]*model.SavedSignature
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contracts:   make(map[string]*model.Contract),
		fields:      make(map[string][]model.Field),
		submissions: make(map[string]*model.Submission),
		signatures:  make(map[string]*model.SavedSignature),
	}
}

func copyContract(c *model.Contract) *model.Contract {
	cp := *c
	if c.OwnerFieldValues != nil {
		cp.OwnerFieldValues = make(map[string]string, len(c.OwnerFieldValues))
		for k, v := range c.OwnerFieldValues {
			cp.OwnerFieldValues[k] = v
		}
	}
	if c.OwnerSignedAt != nil {
		t := *c.OwnerSignedAt
		cp.OwnerSignedAt = &t
	}
	return &cp
}

func copySubmission(s *model.Submission) *model.Submission {
	cp := *s
	cp.FieldValues = make(map[string]string, len(s.FieldValues))
	for k, v := range s.FieldValues {
		cp.FieldValues[k] = v
	}
	return &cp
}

func (s *MemoryStore) CreateContract(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = copyContract(c)
	return nil
}

func (s *MemoryStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyContract(c), nil
}

func (s *MemoryStore) ListContracts(ctx context.Context, ownerUser string) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Contract
	for _, c := range s.contracts {
		if c.OwnerUser == ownerUser {
			result = append(result, copyContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpdateContract(ctx context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[c.ID]; !ok {
		return ErrNotFound
	}
	cp := copyContract(c)
	cp.UpdatedAt = time.Now()
	s.contracts[c.ID] = cp
	return nil
}

func (s *MemoryStore) UpdateContractStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetArtifact(ctx context.Context, id, object, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return ErrNotFound
	}
	c.ArtifactObject = object
	c.ArtifactURL = url
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[id]; !ok {
		return ErrNotFound
	}
	delete(s.contracts, id)
	delete(s.fields, id)
	for sid, sub := range s.submissions {
		if sub.ContractID == id {
			delete(s.submissions, sid)
		}
	}
	return nil
}

func (s *MemoryStore) ListFields(ctx context.Context, contractID string) ([]model.Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields := s.fields[contractID]
	result := make([]model.Field, len(fields))
	copy(result, fields)
	return result, nil
}

func (s *MemoryStore) ReplaceFields(ctx context.Context, contractID string, fields []model.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[contractID]; !ok {
		return ErrNotFound
	}
	replacement := make([]model.Field, len(fields))
	copy(replacement, fields)
	sort.SliceStable(replacement, func(i, j int) bool {
		return replacement[i].DisplayOrder < replacement[j].DisplayOrder
	})
	s.fields[contractID] = replacement
	return nil
}

func (s *MemoryStore) CommitOwnerSigning(ctx context.Context, contractID string, values map[string]string, signedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[contractID]
	if !ok {
		return ErrNotFound
	}
	c.OwnerFieldValues = make(map[string]string, len(values))
	for k, v := range values {
		c.OwnerFieldValues[k] = v
	}
	t := signedAt
	c.OwnerSignedAt = &t
	c.Status = model.StatusActive
	c.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[sub.ContractID]; !ok {
		return ErrNotFound
	}
	s.submissions[sub.ID] = copySubmission(sub)
	return nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubmission(sub), nil
}

func (s *MemoryStore) ListSubmissions(ctx context.Context, contractID string) ([]*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Submission
	for _, sub := range s.submissions {
		if sub.ContractID == contractID {
			result = append(result, copySubmission(sub))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SignedAt.Before(result[j].SignedAt)
	})
	return result, nil
}

func (s *MemoryStore) CreateSavedSignature(ctx context.Context, sig *model.SavedSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.IsDefault {
		for _, existing := range s.signatures {
			if existing.UserID == sig.UserID {
				existing.IsDefault = false
			}
		}
	}
	cp := *sig
	s.signatures[sig.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSavedSignature(ctx context.Context, id string) (*model.SavedSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sig
	return &cp, nil
}

func (s *MemoryStore) ListSavedSignatures(ctx context.Context, userID string) ([]*model.SavedSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.SavedSignature
	for _, sig := range s.signatures {
		if sig.UserID == userID {
			cp := *sig
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) DeleteSavedSignature(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signatures[id]; !ok {
		return ErrNotFound
	}
	delete(s.signatures, id)
	return nil
}
