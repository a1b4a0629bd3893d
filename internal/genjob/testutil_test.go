package genjob

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// analyzerFunc adapts a function (or nil, for a do-nothing analyzer) to the
// Analyzer interface for white-box tests.
type analyzerFunc func(context.Context, AnalyzeRequest) (*Analysis, error)

func (f analyzerFunc) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	if f == nil {
		return &Analysis{}, nil
	}
	return f(ctx, req)
}

// testPNG rasterizes a tiny valid PNG so validateImage's magic-number sniff
// passes in tests without touching the filesystem.
func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
