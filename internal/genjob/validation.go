package genjob

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

const (
	maxBrandNameLen   = 100
	maxProductNameLen = 200
	maxVariations     = 10
	defaultVariations = 3
)

// sniffMimeType inspects the leading bytes of an image per the supported
// magic-number table (JPEG/PNG/WebP) and returns the canonical MIME type,
// or "" if none match.
func sniffMimeType(b []byte) string {
	if bytes.HasPrefix(b, pngMagic) {
		return "image/png"
	}
	if bytes.HasPrefix(b, jpegMagic) {
		return "image/jpeg"
	}
	if len(b) >= 12 && bytes.HasPrefix(b, riffMagic) && bytes.Equal(b[8:12], webpMagic) {
		return "image/webp"
	}
	return ""
}

// validateImage enforces the submission-time image checks: non-empty, no
// larger than the configured size cap, and a recognized magic number. On success it
// returns the sniffed MIME type.
func validateImage(b []byte, maxBytes int64) (string, error) {
	if len(b) == 0 {
		return "", NewError(KindInvalidInput, "imageBuffer", fmt.Errorf("image is empty"))
	}
	if maxBytes > 0 && int64(len(b)) > maxBytes {
		return "", NewError(KindInvalidInput, "imageBuffer", fmt.Errorf("image exceeds %d byte limit", maxBytes))
	}
	mt := sniffMimeType(b)
	if mt == "" {
		return "", NewError(KindInvalidInput, "imageBuffer", fmt.Errorf("unrecognized image format"))
	}
	return mt, nil
}

// validateOptions normalizes and validates Options. Brand and product names
// are optional but length-capped; a zero PackageVariations means unset and
// receives the default, while an explicit out-of-range value is rejected
// rather than clamped.
func validateOptions(opts Options, defaultPlatforms []string) (Options, error) {
	out := opts

	if utf8.RuneCountInString(out.BrandName) > maxBrandNameLen {
		return out, NewError(KindInvalidInput, "brandName", fmt.Errorf("brandName exceeds %d characters", maxBrandNameLen))
	}
	if utf8.RuneCountInString(out.ProductName) > maxProductNameLen {
		return out, NewError(KindInvalidInput, "productName", fmt.Errorf("productName exceeds %d characters", maxProductNameLen))
	}

	if out.Tone == "" {
		out.Tone = "neutral"
	}
	if out.Language == "" {
		out.Language = "en"
	}

	if out.PackageVariations == 0 {
		out.PackageVariations = defaultVariations
	}
	if out.PackageVariations < 1 || out.PackageVariations > maxVariations {
		return out, NewError(KindInvalidInput, "packageVariations", fmt.Errorf("packageVariations must be between 1 and %d", maxVariations))
	}

	if len(out.AdPlatforms) == 0 {
		out.AdPlatforms = append([]string(nil), defaultPlatforms...)
	}
	for _, p := range out.AdPlatforms {
		if _, ok := AdPlatformDimensions[p]; !ok {
			return out, NewError(KindInvalidInput, "adPlatforms", fmt.Errorf("unknown ad platform %q", p))
		}
	}

	return out, nil
}

// validateCapabilities checks that every capability provider needed by the
// set of non-skipped stages was wired at construction: the analyzer is
// always required, image synthesis only when Packages or Ads will run, and
// text synthesis only when Texts will run.
func validateCapabilities(analyzer Analyzer, synth ImageSynthesizer, texts TextSynthesizer, opts Options) error {
	if analyzer == nil {
		return NewError(KindInvalidInput, "analyzer", fmt.Errorf("an Analyzer capability is required"))
	}
	if synth == nil && !(opts.SkipPackages && opts.SkipAds) {
		return NewError(KindInvalidInput, "imageSynthesizer", fmt.Errorf("an ImageSynthesizer capability is required unless packages and ads are both skipped"))
	}
	if texts == nil && !opts.SkipTexts {
		return NewError(KindInvalidInput, "textSynthesizer", fmt.Errorf("a TextSynthesizer capability is required unless texts are skipped"))
	}
	return nil
}
