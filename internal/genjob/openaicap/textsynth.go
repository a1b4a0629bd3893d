package openaicap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campaignforge/orchestrator/internal/genjob"
)

// TextSynthesizer implements genjob.TextSynthesizer with three independent
// chat-completion calls, one per sub-task, each parsed with the same
// tolerant JSON extraction Analyzer uses.
type TextSynthesizer struct {
	client *Client
}

// NewTextSynthesizer builds a TextSynthesizer over client.
func NewTextSynthesizer(client *Client) *TextSynthesizer {
	return &TextSynthesizer{client: client}
}

func analysisSummary(a *genjob.Analysis) string {
	if a == nil {
		return "unknown"
	}
	return fmt.Sprintf("category=%s texture=%s primary_color=%s shape=%s",
		a.Category, a.Texture, a.Palette.PrimaryHex, a.Shape.Type)
}

func toneOf(req genjob.TextRequest) string {
	if req.Tone == "" {
		return "neutral"
	}
	return req.Tone
}

func languageOf(req genjob.TextRequest) string {
	if req.Language == "" {
		return "en"
	}
	return req.Language
}

// GenerateDescription implements genjob.TextSynthesizer.
func (t *TextSynthesizer) GenerateDescription(ctx context.Context, req genjob.TextRequest) (*genjob.TextDescription, error) {
	prompt := fmt.Sprintf(`Write marketing copy for the product "%s" by brand "%s" (analysis: %s).
Use a %s tone and write in language %q.
Respond with ONLY this JSON object, no prose, no markdown fences:
{"long": string, "short": string, "bullets": [string]}`,
		req.ProductName, req.BrandName, analysisSummary(req.Analysis), toneOf(req), languageOf(req))

	reply, err := t.client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out genjob.TextDescription
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &out); err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "texts.description", fmt.Errorf("invalid description JSON: %w", err))
	}
	return &out, nil
}

// GenerateCatchcopy implements genjob.TextSynthesizer.
func (t *TextSynthesizer) GenerateCatchcopy(ctx context.Context, req genjob.TextRequest) (*genjob.CatchcopyBundle, error) {
	prompt := fmt.Sprintf(`Write 5 short catchcopy variations for the product "%s" by brand "%s" (analysis: %s).
Use a %s tone and write in language %q.
Respond with ONLY this JSON object, no prose, no markdown fences:
{"variations": [string]}`,
		req.ProductName, req.BrandName, analysisSummary(req.Analysis), toneOf(req), languageOf(req))

	reply, err := t.client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out genjob.CatchcopyBundle
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &out); err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "texts.catchcopy", fmt.Errorf("invalid catchcopy JSON: %w", err))
	}
	return &out, nil
}

// GenerateSEO implements genjob.TextSynthesizer.
func (t *TextSynthesizer) GenerateSEO(ctx context.Context, req genjob.TextRequest) (*genjob.SEOBundle, error) {
	prompt := fmt.Sprintf(`Write SEO metadata for the product "%s" by brand "%s" (analysis: %s).
Use a %s tone and write in language %q.
Respond with ONLY this JSON object, no prose, no markdown fences:
{"title": string, "description": string, "keywords": [string]}`,
		req.ProductName, req.BrandName, analysisSummary(req.Analysis), toneOf(req), languageOf(req))

	reply, err := t.client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var out genjob.SEOBundle
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &out); err != nil {
		return nil, genjob.NewError(genjob.KindFatal, "texts.seo", fmt.Errorf("invalid seo JSON: %w", err))
	}
	return &out, nil
}
