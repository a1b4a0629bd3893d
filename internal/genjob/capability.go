package genjob

import "context"

// AnalyzeRequest carries the source product image into the Analyzer
// capability. ImageBytes has already passed validation (magic-number
// sniffed, size-bounded) by the time the executor calls Analyze.
type AnalyzeRequest struct {
	ImageBytes []byte
	MimeType   string
}

// Analyzer is the capability seam for turning a product image into a
// structured Analysis. Production adapters live in openaicap; deterministic
// fakes live in fakecap.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error)
}

// PackageRequest carries one package-design generation call.
type PackageRequest struct {
	ImageBytes     []byte
	MimeType       string
	Analysis       *Analysis
	VariationIndex int
	Style          string
}

// PackageResponse is a single generated package-design image, already at
// its final size; the executor stores it as returned.
type PackageResponse struct {
	ImageBytes    []byte
	MimeType      string
	RevisedPrompt string
	Seed          int64
}

// ImageSynthesizer is the capability seam for image-generation calls shared
// by the Packages and Ads branches.
type ImageSynthesizer interface {
	SynthesizePackage(ctx context.Context, req PackageRequest) (*PackageResponse, error)
	SynthesizeAd(ctx context.Context, req AdRequest) (*AdResponse, error)
}

// AdRequest carries one platform ad-image generation call.
type AdRequest struct {
	ImageBytes []byte
	MimeType   string
	Analysis   *Analysis
	Platform   string
	Width      int
	Height     int
}

// AdResponse is a single generated ad image, already at the requested
// Width x Height; the executor stores it as returned.
type AdResponse struct {
	ImageBytes    []byte
	MimeType      string
	RevisedPrompt string
	Seed          int64
}

// TextRequest carries the Texts branch's three sub-task calls. Tone and
// Language arrive pre-defaulted ("neutral"/"en") from option validation.
type TextRequest struct {
	BrandName   string
	ProductName string
	Tone        string
	Language    string
	Analysis    *Analysis
}

// TextSynthesizer is the capability seam for marketing-copy generation.
type TextSynthesizer interface {
	GenerateDescription(ctx context.Context, req TextRequest) (*TextDescription, error)
	GenerateCatchcopy(ctx context.Context, req TextRequest) (*CatchcopyBundle, error)
	GenerateSEO(ctx context.Context, req TextRequest) (*SEOBundle, error)
}

// AdPlatformDimensions maps each supported ad platform to its canonical
// pixel dimensions. Upstream image generation only supports a handful of
// fixed size classes, so the ad adapter synthesizes at the closest class
// and resizes the result to the exact dimensions listed here.
var AdPlatformDimensions = map[string][2]int{
	"instagram-square":            {1080, 1080},
	"instagram-story":             {1080, 1920},
	"twitter-card":                {1200, 628},
	"facebook-feed":               {1200, 628},
	"web-banner-medium-rectangle": {300, 250},
	"web-banner-leaderboard":      {728, 90},
}

// DefaultAdPlatforms is the platform set used when Options.AdPlatforms is
// empty.
var DefaultAdPlatforms = []string{"instagram-square", "twitter-card", "facebook-feed", "web-banner-medium-rectangle"}
