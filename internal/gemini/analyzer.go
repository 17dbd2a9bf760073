// Package gemini implements the receipt analysis service on top of the
// Gemini vision models.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// DefaultModelName is the Gemini model used for receipt extraction.
const DefaultModelName = "gemini-2.5-flash"

// ImageFetcher resolves a receipt image reference (a gs:// URI) into raw
// bytes plus a MIME type.
type ImageFetcher interface {
	FetchImage(ctx context.Context, uri string) (data []byte, mimeType string, err error)
}

// Analyzer sends receipt images to Gemini and decodes the strict-JSON
// response into a ScanResult. It implements scan.ScanService.
type Analyzer struct {
	client *genai.Client
	model  string
	fetch  ImageFetcher
}

// NewAnalyzer creates an analyzer. model may be empty to use the default.
func NewAnalyzer(ctx context.Context, model string, fetch ImageFetcher) (*Analyzer, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Analyzer{client: client, model: model, fetch: fetch}, nil
}

// AnalyzeReceipt runs OCR/extraction over the given images. currency and
// storeTypeHint steer the prompt; an empty hint lets the model decide.
func (a *Analyzer) AnalyzeReceipt(ctx context.Context, images []string, currency string, storeTypeHint string) (*domain.ScanResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("gemini: no images")
	}

	parts := []*genai.Part{{Text: receiptPrompt(currency, storeTypeHint)}}
	for _, uri := range images {
		data, mime, err := a.fetch.FetchImage(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("gemini: fetch image %q: %w", uri, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: mime, Data: data},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("gemini: empty response from model")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &raw); err != nil {
		return nil, fmt.Errorf("gemini: unmarshal response: %w", err)
	}

	sr, err := DecodeScanResult(raw)
	if err != nil {
		return nil, fmt.Errorf("gemini: decode scan result: %w", err)
	}
	sr.ImageURLs = images
	sr.PromptVersion = promptVersion
	return sr, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
