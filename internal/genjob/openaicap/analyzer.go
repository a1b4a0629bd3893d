package openaicap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/campaignforge/orchestrator/internal/genjob"
)

// Analyzer implements genjob.Analyzer by asking the model to describe a
// product image as structured JSON. The reply is parsed as JSON; on
// failure one JSON-repair call is made before giving up, rather than
// failing the whole stage on a single malformed reply.
type Analyzer struct {
	client *Client
}

// NewAnalyzer builds an Analyzer over client.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

type analysisJSON struct {
	Category   string             `json:"category"`
	Palette    struct {
		PrimaryHex  string   `json:"primary_hex"`
		Secondaries []string `json:"secondaries"`
		Full        []string `json:"full_palette"`
	} `json:"palette"`
	Shape struct {
		Type               string             `json:"type"`
		RelativeDimensions map[string]float64 `json:"relative_dimensions"`
	} `json:"shape"`
	Texture    string  `json:"texture"`
	Confidence float64 `json:"confidence"`
}

const analysisPrompt = `Examine the attached product image and respond with ONLY a JSON object
(no surrounding prose, no markdown fences) with exactly this shape:
{
  "category": string,
  "palette": {"primary_hex": string, "secondaries": [string], "full_palette": [string]},
  "shape": {"type": "rectangular"|"cylindrical"|"spherical"|"irregular"|"unknown", "relative_dimensions": {"width": number, "height": number, "depth": number}},
  "texture": "glossy"|"matte"|"metallic"|"rough"|"smooth"|"unknown",
  "confidence": number between 0 and 1
}`

// Analyze implements genjob.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, req genjob.AnalyzeRequest) (*genjob.Analysis, error) {
	reply, err := a.client.GenerateTextWithImage(ctx, analysisPrompt, req.ImageBytes, req.MimeType)
	if err != nil {
		return nil, err
	}

	parsed, rawBytes, err := parseAnalysisJSON(reply)
	if err != nil {
		repaired, repairErr := a.client.GenerateText(ctx, buildRepairPrompt(reply))
		if repairErr != nil {
			return nil, genjob.NewError(genjob.KindFatal, "analysis", fmt.Errorf("analysis reply was not valid JSON and repair call failed: %w", err))
		}
		parsed, rawBytes, err = parseAnalysisJSON(repaired)
		if err != nil {
			return nil, genjob.NewError(genjob.KindFatal, "analysis", fmt.Errorf("analysis reply remained invalid JSON after repair: %w", err))
		}
	}

	return &genjob.Analysis{
		Category: parsed.Category,
		Palette: genjob.Palette{
			PrimaryHex:  parsed.Palette.PrimaryHex,
			Secondaries: parsed.Palette.Secondaries,
			Full:        parsed.Palette.Full,
		},
		Shape: genjob.Shape{
			Type:               parsed.Shape.Type,
			RelativeDimensions: parsed.Shape.RelativeDimensions,
		},
		Texture:    parsed.Texture,
		Confidence: parsed.Confidence,
		Raw:        datatypes.JSON(rawBytes),
	}, nil
}

func parseAnalysisJSON(reply string) (analysisJSON, []byte, error) {
	trimmed := extractJSONObject(reply)
	var parsed analysisJSON
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return analysisJSON{}, nil, err
	}
	return parsed, []byte(trimmed), nil
}

// extractJSONObject strips markdown code fences a chat model sometimes
// wraps its JSON reply in, mirroring caption.go's tolerant parsing.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(s[start : end+1])
	}
	return strings.TrimSpace(s)
}

func buildRepairPrompt(original string) string {
	return fmt.Sprintf("The following text was supposed to be a single JSON object but failed to parse. "+
		"Return ONLY the corrected JSON object, no prose, no markdown fences:\n\n%s", original)
}
