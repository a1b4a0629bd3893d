// Package genjob implements the generation job orchestrator: a single-node,
// in-process engine that turns one product image into a bundle of package
// designs, platform-sized ad images, and marketing text by driving an
// Analysis -> {Packages, Ads, Texts} stage DAG against pluggable capability
// providers.
package genjob

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Status is the overall lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StageName identifies one of the four stages tracked in a Job's progress map.
type StageName string

const (
	StageAnalysis StageName = "analysis"
	StagePackages StageName = "packages"
	StageAds      StageName = "ads"
	StageTexts    StageName = "texts"
)

// Stages lists every tracked stage in DAG order. Analysis gates the other
// three, which then fan out and may finish in any order.
var Stages = []StageName{StageAnalysis, StagePackages, StageAds, StageTexts}

// StageStatus is the lifecycle state of a single stage within a Job.
type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusProcessing StageStatus = "processing"
	StageStatusDone       StageStatus = "done"
	StageStatusFailed     StageStatus = "failed"
	StageStatusSkipped    StageStatus = "skipped"
)

// Options is the frozen submission configuration for one Job. A copy is
// stored on the Job record at creation time; later mutation by the caller
// of Submit has no effect on the running job.
type Options struct {
	BrandName         string
	ProductName       string
	Tone              string   // marketing voice for generated copy, default "neutral"
	Language          string   // output language for generated copy, default "en"
	PackageVariations int      // default 3; explicit values must be in [1, 10]
	AdPlatforms       []string // default Config.DefaultAdPlatforms
	SkipPackages      bool
	SkipAds           bool
	SkipTexts         bool
}

// Palette is the color-palette portion of an Analysis record.
type Palette struct {
	PrimaryHex  string   `json:"primary_hex"`
	Secondaries []string `json:"secondaries,omitempty"`
	Full        []string `json:"full_palette,omitempty"`
}

// Shape describes the physical form the vision capability detected.
type Shape struct {
	Type               string             `json:"type"` // rectangular|cylindrical|spherical|irregular|unknown
	RelativeDimensions map[string]float64 `json:"relative_dimensions,omitempty"`
}

// Analysis is the opaque analysis record produced by the Analyzer capability
// and consumed by the three downstream branches.
type Analysis struct {
	Category   string         `json:"category"`
	Palette    Palette        `json:"palette"`
	Shape      Shape          `json:"shape"`
	Texture    string         `json:"texture"` // glossy|matte|metallic|rough|smooth|unknown
	Confidence float64        `json:"confidence"`
	Raw        datatypes.JSON `json:"raw,omitempty"` // provider fields not modeled above
}

// PackageDesign is one successful output slot in the Packages branch.
type PackageDesign struct {
	VariationIndex int    `json:"variation_index"`
	Style          string `json:"style"` // minimalist|vibrant|premium
	Template       string `json:"template"`
	ImageBytes     []byte `json:"-"`
	MimeType       string `json:"mime_type"`
	RevisedPrompt  string `json:"revised_prompt,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
}

// AdImage is one successful output slot in the Ads branch.
type AdImage struct {
	Platform      string `json:"platform"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ImageBytes    []byte `json:"-"`
	MimeType      string `json:"mime_type"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
	Seed          int64  `json:"seed,omitempty"`
}

// TextDescription holds the long/short/bullet description sub-bundle.
type TextDescription struct {
	Long    string   `json:"long"`
	Short   string   `json:"short"`
	Bullets []string `json:"bullets,omitempty"`
}

// CatchcopyBundle holds catchcopy variations.
type CatchcopyBundle struct {
	Variations []string `json:"variations"`
}

// SEOBundle holds SEO title/description/keywords.
type SEOBundle struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

// TextBundle is the assembled output of the Texts branch's three sub-tasks.
type TextBundle struct {
	Description TextDescription `json:"description"`
	Catchcopy   CatchcopyBundle `json:"catchcopy"`
	SEO         SEOBundle       `json:"seo"`
	Raw         datatypes.JSON  `json:"raw,omitempty"`
}

// Result is the lazy-filled bag of per-stage outputs. A field is populated
// only once its producing stage reaches StageStatusDone.
type Result struct {
	Analysis    *Analysis       `json:"analysis,omitempty"`
	Packages    []PackageDesign `json:"packages,omitempty"`
	Ads         []AdImage       `json:"ads,omitempty"`
	Texts       *TextBundle     `json:"texts,omitempty"`
	DownloadURL string          `json:"download_url,omitempty"`
}

// Job is a snapshot of an in-flight or terminal unit of work. Values
// returned by the Job Store are copies made by Clone; see Clone for which
// parts are shared with stored state.
type Job struct {
	ID          uuid.UUID
	Status      Status
	Progress    map[StageName]StageStatus
	Options     Options
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	Error       string
	Result      *Result
}

// cloneProgress returns an independent copy of a stage-status map.
func cloneProgress(p map[StageName]StageStatus) map[StageName]StageStatus {
	out := make(map[StageName]StageStatus, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the Job with its own Progress map, AdPlatforms
// slice, CompletedAt, Result struct, and Packages/Ads slices. The Analysis
// and TextBundle records the Result points to, and the image byte slices
// inside package and ad entries, are shared with the original.
func (j Job) Clone() Job {
	out := j
	out.Progress = cloneProgress(j.Progress)
	out.Options.AdPlatforms = append([]string(nil), j.Options.AdPlatforms...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		r.Packages = append([]PackageDesign(nil), j.Result.Packages...)
		r.Ads = append([]AdImage(nil), j.Result.Ads...)
		out.Result = &r
	}
	return out
}

// EventKind classifies a ProgressEvent.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// ProgressEvent is delivered to subscribers after every store mutation for
// a job, reflecting post-transition state (never the state before the
// mutation that produced it).
type ProgressEvent struct {
	JobID    uuid.UUID
	Kind     EventKind
	Progress map[StageName]StageStatus
	Result   *Result
	Error    string
}

// Unsubscribe tears down a Progress Bus subscription. After it returns, no
// further callbacks for that subscription will begin; a callback already
// running is allowed to finish.
type Unsubscribe func()
