package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Extractor pulls text out of binary document formats (PDF, PPTX, DOCX).
type Extractor interface {
	// Extract returns per-page text and OCR text recovered from embedded
	// images. Unpaginated formats return a single page numbered 0.
	Extract(ctx context.Context, data []byte, filename string) (*Extraction, error)
}

// Extraction is the result of parsing one binary document.
type Extraction struct {
	// Pages holds per-page (or per-slide) text in order.
	Pages []ExtractedPage `json:"pages"`

	// Images holds OCR text from embedded figures, tagged with the page
	// they appeared on.
	Images []ExtractedPage `json:"images"`

	Error string `json:"error,omitempty"`
}

// ExtractedPage is one page, slide or image worth of text.
type ExtractedPage struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// HTTPExtractor calls an external extraction service over HTTP. The
// service wraps the Python parsing and OCR stack (PyPDF2, python-pptx,
// pytesseract) that has no Go equivalent.
type HTTPExtractor struct {
	serviceURL string
	client     *http.Client
}

// NewHTTPExtractor creates an extractor backed by the service at
// serviceURL (default http://localhost:8081).
func NewHTTPExtractor(serviceURL string) *HTTPExtractor {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &HTTPExtractor{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Extract posts the document bytes to the service and decodes the result.
func (e *HTTPExtractor) Extract(ctx context.Context, data []byte, filename string) (*Extraction, error) {
	url := fmt.Sprintf("%s/extract?filename=%s", e.serviceURL, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extractor service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor service returned %d: %s", resp.StatusCode, body)
	}

	var result Extraction
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("extraction failed: %s", result.Error)
	}

	return &result, nil
}

// Healthy reports whether the extraction service is reachable.
func (e *HTTPExtractor) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
