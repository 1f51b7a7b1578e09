package handler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/config"
	"github.com/quillsign/quillsign/backend/model"
	"github.com/quillsign/quillsign/backend/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// authed injects the operator identity the auth middleware would set.
func authed(username string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("username", username)
		h(c)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Auth:  config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1},
		Share: config.ShareConfig{TokenSecret: "share-secret", TokenExpireDays: 1},
	}
}

// fakeStorage is an in-memory ObjectStorage.
type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) UploadObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[objectName] = data
	return nil
}

func (s *fakeStorage) CopyObject(ctx context.Context, srcObjectName, dstObjectName string) error {
	data, ok := s.objects[srcObjectName]
	if !ok {
		return errors.New("source object not found")
	}
	s.objects[dstObjectName] = data
	return nil
}

func (s *fakeStorage) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return "https://storage.test/" + objectName, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, objectName string) error {
	delete(s.objects, objectName)
	s.deleted = append(s.deleted, objectName)
	return nil
}

// fakeRenderer is a canned Renderer that records the last payload.
type fakeRenderer struct {
	pageCount   int
	rendered    []byte
	lastEntries []service.ExportEntry
	renderErr   error
}

func (r *fakeRenderer) DocumentMetadata(ctx context.Context, documentURL string) (*service.DocumentMetadata, error) {
	return &service.DocumentMetadata{PageCount: r.pageCount}, nil
}

func (r *fakeRenderer) Render(ctx context.Context, documentURL string, entries []service.ExportEntry) ([]byte, error) {
	if r.renderErr != nil {
		return nil, r.renderErr
	}
	r.lastEntries = entries
	return r.rendered, nil
}

// failingStore wraps a Store and fails CommitOwnerSigning, for the
// atomicity tests.
type failingStore struct {
	service.Store
}

var errInjected = errors.New("injected store failure")

func (s *failingStore) CommitOwnerSigning(ctx context.Context, contractID string, values map[string]string, signedAt time.Time) error {
	return errInjected
}

func seedContract(store service.Store, id, owner string) *model.Contract {
	now := time.Now()
	c := &model.Contract{
		ID:        id,
		Title:     "Sponsorship agreement",
		OwnerUser: owner,
		Status:    model.StatusDraft,
		SourceURL: "https://storage.test/" + owner + "/" + id + "/source/agreement.pdf",
		Filename:  "agreement.pdf",
		PageCount: 3,
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.CreateContract(context.Background(), c)
	return c
}

func seedFields(store service.Store, contractID string) []model.Field {
	fields := []model.Field{
		{ID: "f1", ContractID: contractID, Type: model.FieldText, Label: "Owner Name", PageNumber: 1, X: 10, Y: 10, Width: 16, Height: 4, SignerParty: model.PartyOwner, DisplayOrder: 0},
		{ID: "f2", ContractID: contractID, Type: model.FieldSignature, Label: "Owner Signature", PageNumber: 2, X: 10, Y: 60, Width: 22, Height: 8, SignerParty: model.PartyOwner, DisplayOrder: 1},
		{ID: "f3", ContractID: contractID, Type: model.FieldSignature, Label: "Counterparty Signature", PageNumber: 3, X: 50, Y: 60, Width: 22, Height: 8, SignerParty: model.PartyCounterparty, DisplayOrder: 2},
	}
	store.ReplaceFields(context.Background(), contractID, fields)
	return fields
}
