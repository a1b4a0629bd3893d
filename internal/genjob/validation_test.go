package genjob

import (
	"strings"
	"testing"
)

func TestSniffMimeTypePNG(t *testing.T) {
	mt := sniffMimeType(testPNG())
	if mt != "image/png" {
		t.Fatalf("expected image/png, got %q", mt)
	}
}

func TestSniffMimeTypeJPEG(t *testing.T) {
	mt := sniffMimeType([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0})
	if mt != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", mt)
	}
}

func TestSniffMimeTypeWebP(t *testing.T) {
	b := append([]byte("RIFF"), 0, 0, 0, 0)
	b = append(b, []byte("WEBP")...)
	if sniffMimeType(b) != "image/webp" {
		t.Fatalf("expected image/webp")
	}
}

func TestSniffMimeTypeUnknown(t *testing.T) {
	if sniffMimeType([]byte("invalid image data")) != "" {
		t.Fatalf("expected empty mime type for unrecognized bytes")
	}
}

func TestValidateImageRejectsEmpty(t *testing.T) {
	_, err := validateImage(nil, 0)
	assertInvalidInput(t, err, "imageBuffer")
}

func TestValidateImageSizeBoundary(t *testing.T) {
	// Exactly at the cap is accepted (the payload starts with the PNG
	// signature, so it also passes the magic sniff); one byte over is
	// rejected for size.
	atLimit := make([]byte, 16)
	copy(atLimit, pngMagic)
	if _, err := validateImage(atLimit, int64(len(atLimit))); err != nil {
		t.Fatalf("expected image exactly at the size cap to pass: %v", err)
	}
	_, err := validateImage(atLimit, int64(len(atLimit))-1)
	assertInvalidInput(t, err, "imageBuffer")
}

func TestValidateImageAcceptsPNG(t *testing.T) {
	mt, err := validateImage(testPNG(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mt != "image/png" {
		t.Fatalf("expected image/png, got %q", mt)
	}
}

func TestValidateOptionsNamesAreOptional(t *testing.T) {
	out, err := validateOptions(Options{}, DefaultAdPlatforms)
	if err != nil {
		t.Fatalf("expected empty brand/product names to be accepted: %v", err)
	}
	if out.PackageVariations != 3 {
		t.Fatalf("expected default 3 package variations, got %d", out.PackageVariations)
	}
}

func TestValidateOptionsRejectsOverlongNames(t *testing.T) {
	_, err := validateOptions(Options{BrandName: strings.Repeat("b", 101)}, DefaultAdPlatforms)
	assertInvalidInput(t, err, "brandName")

	_, err = validateOptions(Options{ProductName: strings.Repeat("p", 201)}, DefaultAdPlatforms)
	assertInvalidInput(t, err, "productName")
}

func TestValidateOptionsFillsDefaults(t *testing.T) {
	out, err := validateOptions(Options{BrandName: "Acme", ProductName: "Widget"}, DefaultAdPlatforms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.PackageVariations != 3 {
		t.Fatalf("expected default 3 package variations, got %d", out.PackageVariations)
	}
	if len(out.AdPlatforms) != len(DefaultAdPlatforms) {
		t.Fatalf("expected default ad platforms to be filled in")
	}
	if out.Tone != "neutral" {
		t.Fatalf("expected default tone neutral, got %q", out.Tone)
	}
	if out.Language != "en" {
		t.Fatalf("expected default language en, got %q", out.Language)
	}
}

func TestValidateOptionsPreservesToneAndLanguage(t *testing.T) {
	out, err := validateOptions(Options{Tone: "playful", Language: "ja"}, DefaultAdPlatforms)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tone != "playful" || out.Language != "ja" {
		t.Fatalf("expected explicit tone/language preserved, got %q/%q", out.Tone, out.Language)
	}
}

func TestValidateOptionsPackageVariationBounds(t *testing.T) {
	for _, n := range []int{1, 10} {
		out, err := validateOptions(Options{PackageVariations: n}, DefaultAdPlatforms)
		if err != nil {
			t.Fatalf("expected %d variations to be accepted: %v", n, err)
		}
		if out.PackageVariations != n {
			t.Fatalf("expected %d variations preserved, got %d", n, out.PackageVariations)
		}
	}
	for _, n := range []int{-1, 11, 99} {
		_, err := validateOptions(Options{PackageVariations: n}, DefaultAdPlatforms)
		assertInvalidInput(t, err, "packageVariations")
	}
}

func TestValidateOptionsRejectsUnknownPlatform(t *testing.T) {
	_, err := validateOptions(Options{AdPlatforms: []string{"myspace-banner"}}, DefaultAdPlatforms)
	assertInvalidInput(t, err, "adPlatforms")
}

func TestValidateCapabilitiesPerStage(t *testing.T) {
	if err := validateCapabilities(nil, nil, nil, Options{SkipPackages: true, SkipAds: true, SkipTexts: true}); err == nil {
		t.Fatalf("expected a missing analyzer to always be rejected")
	}
	a := analyzerFunc(nil)
	if err := validateCapabilities(a, nil, nil, Options{SkipPackages: true, SkipAds: true, SkipTexts: true}); err != nil {
		t.Fatalf("expected analysis-only submission to need no other capability: %v", err)
	}
	err := validateCapabilities(a, nil, nil, Options{SkipPackages: true, SkipTexts: true})
	assertInvalidInput(t, err, "imageSynthesizer")
	err = validateCapabilities(a, nil, nil, Options{SkipPackages: true, SkipAds: true})
	assertInvalidInput(t, err, "textSynthesizer")
}

func assertInvalidInput(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error")
	}
	ge, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ge.Kind != KindInvalidInput {
		t.Fatalf("expected KindInvalidInput, got %s", ge.Kind)
	}
	if field != "" && ge.Field != field {
		t.Fatalf("expected field tag %q, got %q", field, ge.Field)
	}
}
