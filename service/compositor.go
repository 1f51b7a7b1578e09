package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quillsign/quillsign/backend/config"
)

// Renderer is the boundary to the external document rendering collaborator:
// it reports page metadata for an uploaded document and paints resolved
// values onto it.
type Renderer interface {
	DocumentMetadata(ctx context.Context, documentURL string) (*DocumentMetadata, error)
	Render(ctx context.Context, documentURL string, entries []ExportEntry) ([]byte, error)
}

// DocumentMetadata describes the paginated document as the renderer sees it.
type DocumentMetadata struct {
	PageCount int              `json:"page_count"`
	Pages     []PageDimensions `json:"pages"`
}

// PageDimensions are the native pixel dimensions of one page at scale 1.0.
type PageDimensions struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CompositorService talks to the rendering service over HTTP.
type CompositorService struct {
	config     *config.CompositorConfig
	httpClient *http.Client
}

func NewCompositorService(cfg *config.CompositorConfig) *CompositorService {
	return &CompositorService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type metadataRequest struct {
	URL string `json:"url"`
}

type metadataResponse struct {
	Code    int              `json:"code"`
	Message string           `json:"msg"`
	Data    DocumentMetadata `json:"data"`
}

// DocumentMetadata asks the rendering service for page count and per-page
// dimensions of the document behind documentURL.
func (s *CompositorService) DocumentMetadata(ctx context.Context, documentURL string) (*DocumentMetadata, error) {
	body, err := s.post(ctx, "/metadata", metadataRequest{URL: documentURL})
	if err != nil {
		return nil, err
	}

	var result metadataResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse metadata response: %w, body: %s", err, string(body))
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("compositor error: %s", result.Message)
	}
	return &result.Data, nil
}

type renderRequest struct {
	URL     string        `json:"url"`
	Entries []ExportEntry `json:"entries"`
}

// Render posts the export payload and returns the merged document bytes.
func (s *CompositorService) Render(ctx context.Context, documentURL string, entries []ExportEntry) ([]byte, error) {
	return s.post(ctx, "/render", renderRequest{URL: documentURL, Entries: entries})
}

func (s *CompositorService) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compositor returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
