// Package insights produces short spending observations for freshly saved
// transactions.
package insights

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// DefaultModelName is the Gemini model used for insight text.
const DefaultModelName = "gemini-2.5-flash"

// maxInsightLen caps insight text so it fits a single toast line.
const maxInsightLen = 200

// Generator asks Gemini for a one-sentence observation about a transaction.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a generator. model may be empty to use the default.
func NewGenerator(ctx context.Context, model string) (*Generator, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("insights: create client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

// GenerateInsight returns one short sentence about the transaction. Callers
// treat failures as non-fatal; a scan never aborts because an insight could
// not be produced.
func (g *Generator) GenerateInsight(ctx context.Context, tx *domain.Transaction) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("insights: nil transaction")
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: insightPrompt(tx)}},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("insights: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("insights: empty response from model")
	}
	text = strings.Trim(text, "\"")
	if len(text) > maxInsightLen {
		text = text[:maxInsightLen]
	}
	return text, nil
}

func insightPrompt(tx *domain.Transaction) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Write exactly one short, friendly sentence ")
	b.WriteString("about the purchase below. Mention the merchant or the category, never both. ")
	b.WriteString("No emoji, no preamble, plain text only.\n\n")
	fmt.Fprintf(&b, "Merchant: %s\n", tx.Alias)
	fmt.Fprintf(&b, "Category: %s\n", tx.Category)
	fmt.Fprintf(&b, "Total: %.2f %s\n", tx.Total, tx.Currency)
	fmt.Fprintf(&b, "Date: %s\n", tx.Date)
	fmt.Fprintf(&b, "Items: %d\n", len(tx.Items))
	return b.String()
}
