package genjob

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/campaignforge/orchestrator/internal/pkg/httpx"
	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// sourceImage is the validated product image an Executor.Run call carries
// through every stage.
type sourceImage struct {
	Bytes    []byte
	MimeType string
}

// packageStyles is the auto-selection pool for package variations. Styles
// are assigned round-robin by variation index so output ordering is stable
// and no style repeats before the pool is exhausted.
var packageStyles = []string{"minimalist", "vibrant", "premium"}

// Executor drives one job through the Analysis -> {Packages, Ads, Texts}
// DAG, fanning the three independent branches out concurrently and
// retrying each capability call with exponential backoff.
type Executor struct {
	store    *Store
	analyzer Analyzer
	synth    ImageSynthesizer
	texts    TextSynthesizer
	cfg      Config
	log      *logger.Logger
}

// NewExecutor builds a Pipeline Executor bound to store and the three
// capability providers.
func NewExecutor(store *Store, analyzer Analyzer, synth ImageSynthesizer, texts TextSynthesizer, cfg Config, log *logger.Logger) *Executor {
	return &Executor{store: store, analyzer: analyzer, synth: synth, texts: texts, cfg: cfg, log: log}
}

// Run executes the full pipeline for jobID. It is designed to be launched
// on its own goroutine by the Orchestrator immediately after admission; ctx
// is the job's long-lived cancellation context (cancelled by CancelJob).
func (e *Executor) Run(ctx context.Context, jobID uuid.UUID, img sourceImage, opts Options) {
	ctx, span := e.cfg.Tracer.Start(ctx, "genjob.pipeline", trace.WithAttributes(
		attribute.String("job.id", jobID.String()),
	))
	defer span.End()

	e.store.UpdateStatus(jobID, StatusProcessing)
	e.store.UpdateStage(jobID, StageAnalysis, StageStatusProcessing)

	analysis, err := e.runAnalysis(ctx, jobID, img)
	if err != nil {
		e.failAnalysis(jobID, err, span)
		return
	}
	e.store.UpdateStage(jobID, StageAnalysis, StageStatusDone)
	e.store.MergeAnalysis(jobID, analysis)

	e.runBranches(ctx, jobID, img, opts, analysis)

	if ctx.Err() != nil {
		err := NewError(KindCancelled, "", errors.New("job cancelled"))
		e.store.SetError(jobID, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	e.store.SetDownloadURL(jobID, bundleURL(jobID))
	e.store.UpdateStatus(jobID, StatusCompleted)
	span.SetStatus(codes.Ok, "")
}

// failAnalysis records a fatal analysis failure. Downstream stages are left
// in StageStatusPending: they were never entered and their Skipped marker is
// reserved for stages the submission itself opted out of.
func (e *Executor) failAnalysis(jobID uuid.UUID, err error, span trace.Span) {
	e.store.UpdateStage(jobID, StageAnalysis, StageStatusFailed)
	e.store.SetError(jobID, err.Error())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if e.log != nil {
		e.log.Warn("analysis stage failed, job aborted", "job_id", jobID.String(), "error", err.Error())
	}
}

func (e *Executor) runAnalysis(ctx context.Context, jobID uuid.UUID, img sourceImage) (*Analysis, error) {
	ctx, span := e.cfg.Tracer.Start(ctx, "genjob.stage.analysis")
	defer span.End()

	var out *Analysis
	err := e.retry(ctx, e.cfg.Timeouts.Analysis, func(callCtx context.Context) error {
		a, err := e.analyzer.Analyze(callCtx, AnalyzeRequest{ImageBytes: img.Bytes, MimeType: img.MimeType})
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// runBranches fans Packages/Ads/Texts out concurrently. Each branch fully
// owns its own stage transitions and never aborts the other branches or
// the job on failure.
func (e *Executor) runBranches(ctx context.Context, jobID uuid.UUID, img sourceImage, opts Options, analysis *Analysis) {
	var g errgroup.Group

	g.Go(func() error {
		e.runPackagesBranch(ctx, jobID, img, opts, analysis)
		return nil
	})
	g.Go(func() error {
		e.runAdsBranch(ctx, jobID, img, opts, analysis)
		return nil
	})
	g.Go(func() error {
		e.runTextsBranch(ctx, jobID, opts, analysis)
		return nil
	})

	_ = g.Wait()
}

// pause sleeps the configured inter-chunk delay between generation chunks
// inside a branch, respecting upstream rate limits. Returns early if ctx is
// cancelled.
func (e *Executor) pause(ctx context.Context) {
	if e.cfg.IntraBranchPause <= 0 {
		return
	}
	t := time.NewTimer(e.cfg.IntraBranchPause)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (e *Executor) runPackagesBranch(ctx context.Context, jobID uuid.UUID, img sourceImage, opts Options, analysis *Analysis) {
	// Skipped stages were marked at creation and are never entered.
	if opts.SkipPackages {
		return
	}
	ctx, span := e.cfg.Tracer.Start(ctx, "genjob.stage.packages")
	defer span.End()
	e.store.UpdateStage(jobID, StagePackages, StageStatusProcessing)

	n := opts.PackageVariations
	results := make([]PackageDesign, n)

	// Generations run in chunks of IntraBranchConcurrency with a short
	// pause between chunks; results land at their variation index so output
	// ordering matches input ordering regardless of completion order.
	for start := 0; start < n; start += e.cfg.IntraBranchConcurrency {
		end := min(start+e.cfg.IntraBranchConcurrency, n)
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				style := packageStyles[i%len(packageStyles)]
				var resp *PackageResponse
				err := e.retry(ctx, e.cfg.Timeouts.PackagePerImage, func(callCtx context.Context) error {
					r, err := e.synth.SynthesizePackage(callCtx, PackageRequest{
						ImageBytes: img.Bytes, MimeType: img.MimeType,
						Analysis: analysis, VariationIndex: i, Style: style,
					})
					if err != nil {
						return err
					}
					resp = r
					return nil
				})
				if err != nil {
					if e.log != nil {
						e.log.Warn("package variation failed", "job_id", jobID.String(), "variation", i, "error", err.Error())
					}
					return nil
				}
				results[i] = PackageDesign{
					VariationIndex: i,
					Style:          style,
					Template:       templateFor(analysis),
					ImageBytes:     resp.ImageBytes,
					MimeType:       resp.MimeType,
					RevisedPrompt:  resp.RevisedPrompt,
					Seed:           resp.Seed,
				}
				return nil
			})
		}
		_ = g.Wait()
		if end < n {
			e.pause(ctx)
		}
	}

	out := make([]PackageDesign, 0, n)
	for _, r := range results {
		if len(r.ImageBytes) > 0 {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		e.store.UpdateStage(jobID, StagePackages, StageStatusFailed)
		return
	}
	e.store.UpdateStage(jobID, StagePackages, StageStatusDone)
	e.store.MergePackages(jobID, out)
}

// templateFor auto-selects a package template from the analysis shape type.
// The analysis category is not consulted, and Options has no field for a
// caller-chosen template, so every package variation uses this choice.
func templateFor(analysis *Analysis) string {
	if analysis == nil {
		return "standard-box"
	}
	switch analysis.Shape.Type {
	case "cylindrical":
		return "label-wrap"
	case "spherical":
		return "sleeve"
	case "irregular":
		return "pouch"
	default:
		return "standard-box"
	}
}

func (e *Executor) runAdsBranch(ctx context.Context, jobID uuid.UUID, img sourceImage, opts Options, analysis *Analysis) {
	if opts.SkipAds {
		return
	}
	ctx, span := e.cfg.Tracer.Start(ctx, "genjob.stage.ads")
	defer span.End()
	e.store.UpdateStage(jobID, StageAds, StageStatusProcessing)

	platforms := opts.AdPlatforms
	results := make([]AdImage, len(platforms))

	for start := 0; start < len(platforms); start += e.cfg.IntraBranchConcurrency {
		end := min(start+e.cfg.IntraBranchConcurrency, len(platforms))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i, platform := i, platforms[i]
			dims := AdPlatformDimensions[platform]
			g.Go(func() error {
				var resp *AdResponse
				err := e.retry(ctx, e.cfg.Timeouts.AdPerImage, func(callCtx context.Context) error {
					r, err := e.synth.SynthesizeAd(callCtx, AdRequest{
						ImageBytes: img.Bytes, MimeType: img.MimeType,
						Analysis: analysis, Platform: platform, Width: dims[0], Height: dims[1],
					})
					if err != nil {
						return err
					}
					resp = r
					return nil
				})
				if err != nil {
					if e.log != nil {
						e.log.Warn("ad image failed", "job_id", jobID.String(), "platform", platform, "error", err.Error())
					}
					return nil
				}
				results[i] = AdImage{
					Platform:      platform,
					Width:         dims[0],
					Height:        dims[1],
					ImageBytes:    resp.ImageBytes,
					MimeType:      resp.MimeType,
					RevisedPrompt: resp.RevisedPrompt,
					Seed:          resp.Seed,
				}
				return nil
			})
		}
		_ = g.Wait()
		if end < len(platforms) {
			e.pause(ctx)
		}
	}

	out := make([]AdImage, 0, len(platforms))
	for _, r := range results {
		if len(r.ImageBytes) > 0 {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		e.store.UpdateStage(jobID, StageAds, StageStatusFailed)
		return
	}
	e.store.UpdateStage(jobID, StageAds, StageStatusDone)
	e.store.MergeAds(jobID, out)
}

func (e *Executor) runTextsBranch(ctx context.Context, jobID uuid.UUID, opts Options, analysis *Analysis) {
	if opts.SkipTexts {
		return
	}
	ctx, span := e.cfg.Tracer.Start(ctx, "genjob.stage.texts")
	defer span.End()
	e.store.UpdateStage(jobID, StageTexts, StageStatusProcessing)

	req := TextRequest{
		BrandName:   opts.BrandName,
		ProductName: opts.ProductName,
		Tone:        opts.Tone,
		Language:    opts.Language,
		Analysis:    analysis,
	}

	var desc *TextDescription
	var catch *CatchcopyBundle
	var seo *SEOBundle

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.IntraBranchConcurrency)
	g.Go(func() error {
		return e.retry(gctx, e.cfg.Timeouts.Texts, func(callCtx context.Context) error {
			d, err := e.texts.GenerateDescription(callCtx, req)
			if err != nil {
				return err
			}
			desc = d
			return nil
		})
	})
	g.Go(func() error {
		return e.retry(gctx, e.cfg.Timeouts.Texts, func(callCtx context.Context) error {
			c, err := e.texts.GenerateCatchcopy(callCtx, req)
			if err != nil {
				return err
			}
			catch = c
			return nil
		})
	})
	g.Go(func() error {
		return e.retry(gctx, e.cfg.Timeouts.Texts, func(callCtx context.Context) error {
			s, err := e.texts.GenerateSEO(callCtx, req)
			if err != nil {
				return err
			}
			seo = s
			return nil
		})
	})

	err := g.Wait()
	if err != nil || desc == nil || catch == nil || seo == nil {
		if e.log != nil && err != nil {
			e.log.Warn("texts branch failed", "job_id", jobID.String(), "error", err.Error())
		}
		e.store.UpdateStage(jobID, StageTexts, StageStatusFailed)
		return
	}

	e.store.UpdateStage(jobID, StageTexts, StageStatusDone)
	e.store.MergeTexts(jobID, &TextBundle{Description: *desc, Catchcopy: *catch, SEO: *seo})
}

// retry runs op with exponential backoff and jitter, per-attempt timeout
// composed with ctx, stopping early on a non-retryable Kind or on parent
// cancellation.
func (e *Executor) retry(ctx context.Context, timeout time.Duration, op func(callCtx context.Context) error) error {
	backoff := e.cfg.Retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= e.cfg.Retry.MaxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := op(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := kindOf(err)
		if !kind.IsRetryable() || attempt == e.cfg.Retry.MaxAttempts {
			return err
		}

		sleep := httpx.JitterSleep(backoff)
		var ge *Error
		if errors.As(err, &ge) && ge.RetryAfter > 0 {
			sleep = ge.RetryAfter
		}
		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * e.cfg.Retry.Multiplier)
		if e.cfg.Retry.MaxBackoff > 0 && backoff > e.cfg.Retry.MaxBackoff {
			backoff = e.cfg.Retry.MaxBackoff
		}
	}
	return lastErr
}
