// Package fakecap provides deterministic Analyzer/ImageSynthesizer/
// TextSynthesizer fakes for tests and the demo command. Images are
// rasterized with github.com/fogleman/gg so fixtures are real,
// magic-number-valid PNG bytes rather than hand-faked byte slices.
package fakecap

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/fogleman/gg"

	"github.com/campaignforge/orchestrator/internal/genjob"
)

// Analyzer is a deterministic stand-in for a vision capability: it ignores
// the actual image content and returns a fixed analysis, optionally primed
// to fail for fault-injection tests. FailWith alone fails every call; with
// FailTimes set, only the first FailTimes calls fail, which is how retry
// behavior gets exercised.
type Analyzer struct {
	FailWith  error
	FailTimes int

	calls atomic.Int32
}

// Analyze implements genjob.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, req genjob.AnalyzeRequest) (*genjob.Analysis, error) {
	if a.FailWith != nil {
		if a.FailTimes == 0 || a.calls.Add(1) <= int32(a.FailTimes) {
			return nil, a.FailWith
		}
	}
	return &genjob.Analysis{
		Category: "skincare_bottle",
		Palette: genjob.Palette{
			PrimaryHex:  "#2F6F4F",
			Secondaries: []string{"#A8D5BA", "#FFFFFF"},
			Full:        []string{"#2F6F4F", "#A8D5BA", "#FFFFFF"},
		},
		Shape:      genjob.Shape{Type: "cylindrical", RelativeDimensions: map[string]float64{"width": 1, "height": 2.4, "depth": 1}},
		Texture:    "glossy",
		Confidence: 0.92,
	}, nil
}

// ImageSynth is a deterministic image-generation fake that rasterizes a
// labeled rectangle for every requested size instead of calling out to any
// provider.
type ImageSynth struct {
	FailWith error
}

func renderLabeled(width, height int, bg color.Color, label string) ([]byte, error) {
	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetColor(color.White)
	if err := dc.LoadFontFace(defaultFontPathOrSkip(), fontSizeFor(height)); err == nil {
		dc.DrawStringAnchored(label, float64(width)/2, float64(height)/2, 0.5, 0.5)
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fontSizeFor(height int) float64 {
	size := float64(height) / 12
	if size < 10 {
		size = 10
	}
	return size
}

// defaultFontPathOrSkip returns a path gg's LoadFontFace will fail to open
// in a minimal container, which is fine: renderLabeled tolerates a missing
// font and just draws the colored canvas without a label.
func defaultFontPathOrSkip() string {
	return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
}

// SynthesizePackage implements genjob.ImageSynthesizer.
func (s *ImageSynth) SynthesizePackage(ctx context.Context, req genjob.PackageRequest) (*genjob.PackageResponse, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	label := fmt.Sprintf("%s #%d", req.Style, req.VariationIndex)
	b, err := renderLabeled(1024, 1024, styleColor(req.Style), label)
	if err != nil {
		return nil, err
	}
	return &genjob.PackageResponse{ImageBytes: b, MimeType: "image/png", RevisedPrompt: label, Seed: int64(req.VariationIndex)}, nil
}

// SynthesizeAd implements genjob.ImageSynthesizer.
func (s *ImageSynth) SynthesizeAd(ctx context.Context, req genjob.AdRequest) (*genjob.AdResponse, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	b, err := renderLabeled(req.Width, req.Height, color.RGBA{R: 0x2f, G: 0x6f, B: 0x4f, A: 0xff}, req.Platform)
	if err != nil {
		return nil, err
	}
	return &genjob.AdResponse{ImageBytes: b, MimeType: "image/png", RevisedPrompt: req.Platform}, nil
}

func styleColor(style string) color.Color {
	switch style {
	case "vibrant":
		return color.RGBA{R: 0xd9, G: 0x3f, B: 0x3f, A: 0xff}
	case "premium":
		return color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	default:
		return color.RGBA{R: 0x2f, G: 0x6f, B: 0x4f, A: 0xff}
	}
}

// TextSynth is a deterministic marketing-copy fake.
type TextSynth struct {
	FailWith error
}

// GenerateDescription implements genjob.TextSynthesizer.
func (t *TextSynth) GenerateDescription(ctx context.Context, req genjob.TextRequest) (*genjob.TextDescription, error) {
	if t.FailWith != nil {
		return nil, t.FailWith
	}
	return &genjob.TextDescription{
		Long:    fmt.Sprintf("%s by %s delivers a refined experience from first use.", req.ProductName, req.BrandName),
		Short:   fmt.Sprintf("%s by %s.", req.ProductName, req.BrandName),
		Bullets: []string{"Premium finish", "Travel friendly", "Dermatologist tested"},
	}, nil
}

// GenerateCatchcopy implements genjob.TextSynthesizer.
func (t *TextSynth) GenerateCatchcopy(ctx context.Context, req genjob.TextRequest) (*genjob.CatchcopyBundle, error) {
	if t.FailWith != nil {
		return nil, t.FailWith
	}
	return &genjob.CatchcopyBundle{Variations: []string{
		fmt.Sprintf("Meet %s.", req.ProductName),
		fmt.Sprintf("%s. Reimagined.", req.ProductName),
		"Everyday luxury, every day.",
	}}, nil
}

// GenerateSEO implements genjob.TextSynthesizer.
func (t *TextSynth) GenerateSEO(ctx context.Context, req genjob.TextRequest) (*genjob.SEOBundle, error) {
	if t.FailWith != nil {
		return nil, t.FailWith
	}
	return &genjob.SEOBundle{
		Title:       fmt.Sprintf("%s | %s", req.ProductName, req.BrandName),
		Description: fmt.Sprintf("Shop %s from %s.", req.ProductName, req.BrandName),
		Keywords:    []string{req.BrandName, req.ProductName},
	}, nil
}
