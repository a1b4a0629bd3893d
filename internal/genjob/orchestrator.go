package genjob

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	pkgerrors "github.com/campaignforge/orchestrator/internal/pkg/errors"
	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// SystemStatus is the snapshot returned by Orchestrator.SystemStatus.
type SystemStatus struct {
	ActiveJobs    int
	MaxConcurrent int
	TotalJobs     int
}

// Submission is what Submit hands back to the caller: the freshly created
// job snapshot plus a closed-form estimate of how long it will take.
type Submission struct {
	Job              Job
	EstimatedSeconds int
}

// instruments is the orchestrator's OTel metric set; every instrument is
// created against Config.Meter, which defaults to the no-op meter, so
// recording is always safe.
type instruments struct {
	submitted metric.Int64Counter
	completed metric.Int64Counter
	failed    metric.Int64Counter
	active    metric.Int64UpDownCounter
}

func newInstruments(m metric.Meter) instruments {
	submitted, _ := m.Int64Counter("genjob.jobs.submitted")
	completed, _ := m.Int64Counter("genjob.jobs.completed")
	failed, _ := m.Int64Counter("genjob.jobs.failed")
	active, _ := m.Int64UpDownCounter("genjob.jobs.active")
	return instruments{submitted: submitted, completed: completed, failed: failed, active: active}
}

// Orchestrator is the public entry point: Submit/GetStatus/ListJobs/
// DeleteJob/CancelJob/SubscribeProgress/WaitForCompletion/SystemStatus/
// Shutdown. It owns the Job Store, Progress Bus, Scheduler, Pipeline
// Executor and TTL Reaper as internal collaborators; callers never
// construct those directly.
type Orchestrator struct {
	cfg       Config
	store     *Store
	bus       *Bus
	scheduler *Scheduler
	executor  *Executor
	reaper    *Reaper
	inst      instruments
	log       *logger.Logger

	analyzer Analyzer
	synth    ImageSynthesizer
	texts    TextSynthesizer

	reaperCancel context.CancelFunc
}

// New constructs an Orchestrator wired to the given capability providers.
// cfg is normalized in place; zero-valued fields receive DefaultConfig
// values.
func New(analyzer Analyzer, synth ImageSynthesizer, texts TextSynthesizer, cfg Config) *Orchestrator {
	cfg.normalize()
	bus := NewBus(cfg.Logger)
	store := NewStore(bus)
	scheduler := NewScheduler(cfg.MaxConcurrentJobs)
	executor := NewExecutor(store, analyzer, synth, texts, cfg, cfg.Logger)
	reaper := NewReaper(store, cfg.CleanupInterval, cfg.JobTTL, cfg.Logger)

	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	reaper.Start(reaperCtx)

	return &Orchestrator{
		cfg: cfg, store: store, bus: bus, scheduler: scheduler,
		executor: executor, reaper: reaper, inst: newInstruments(cfg.Meter),
		log:      cfg.Logger,
		analyzer: analyzer, synth: synth, texts: texts,
		reaperCancel: reaperCancel,
	}
}

// EstimateSeconds computes the closed-form duration estimate returned by
// Submit: a fixed analysis cost plus per-variation, per-platform, and text
// costs for each stage the submission does not skip.
func EstimateSeconds(opts Options) int {
	est := 10
	if !opts.SkipPackages {
		est += opts.PackageVariations * 15
	}
	if !opts.SkipAds {
		est += len(opts.AdPlatforms) * 10
	}
	if !opts.SkipTexts {
		est += 10
	}
	return est
}

// Submit validates image and opts, admits the job through the Scheduler,
// and launches the Pipeline Executor on a new goroutine. It returns the
// freshly created Job (status Pending, about to transition to Processing)
// with its duration estimate, or a CapacityExhausted/InvalidInput *Error.
func (o *Orchestrator) Submit(ctx context.Context, image []byte, opts Options) (Submission, error) {
	mimeType, err := validateImage(image, o.cfg.MaxImageBytes)
	if err != nil {
		return Submission{}, err
	}
	opts, err = validateOptions(opts, o.cfg.DefaultAdPlatforms)
	if err != nil {
		return Submission{}, err
	}
	if err := validateCapabilities(o.analyzer, o.synth, o.texts, opts); err != nil {
		return Submission{}, err
	}

	if err := o.scheduler.Acquire(); err != nil {
		return Submission{}, err
	}

	jobCtx, jobCancel := context.WithCancel(context.Background())
	imgCopy := append([]byte(nil), image...)

	job := o.store.Create(opts, jobCancel)
	o.inst.submitted.Add(ctx, 1)
	o.inst.active.Add(ctx, 1)

	go func() {
		defer o.scheduler.Release()
		defer jobCancel()
		o.executor.Run(jobCtx, job.ID, sourceImage{Bytes: imgCopy, MimeType: mimeType}, opts)
		o.recordTerminal(job.ID)
	}()

	return Submission{Job: job, EstimatedSeconds: EstimateSeconds(opts)}, nil
}

func (o *Orchestrator) recordTerminal(id uuid.UUID) {
	ctx := context.Background()
	o.inst.active.Add(ctx, -1)
	if final, ok := o.store.Get(id); ok && final.Status == StatusFailed {
		o.inst.failed.Add(ctx, 1)
		return
	}
	o.inst.completed.Add(ctx, 1)
}

// GetStatus returns a snapshot of job id.
func (o *Orchestrator) GetStatus(id uuid.UUID) (Job, error) {
	job, ok := o.store.Get(id)
	if !ok {
		return Job{}, pkgerrors.ErrNotFound
	}
	return job, nil
}

// ListJobs returns a snapshot of every job currently tracked, newest first.
func (o *Orchestrator) ListJobs() []Job {
	return o.store.List()
}

// DeleteJob removes job id's record and tears down its subscriptions.
func (o *Orchestrator) DeleteJob(id uuid.UUID) error {
	return o.store.Delete(id)
}

// CancelJob requests cooperative cancellation of an in-flight job. It is a
// no-op (returns ErrNotFound) if the job does not exist, and has no effect
// on an already-terminal job.
func (o *Orchestrator) CancelJob(id uuid.UUID) error {
	terminal, ok := o.store.IsTerminal(id)
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if terminal {
		return pkgerrors.ErrAlreadyTerminal
	}
	o.store.Cancel(id)
	return nil
}

// SubscribeProgress registers cb for job id's progress events, delivering
// one replay event synchronously before returning. The returned
// Unsubscribe must be called exactly once to release the subscription.
func (o *Orchestrator) SubscribeProgress(id uuid.UUID, cb func(ProgressEvent)) (Unsubscribe, error) {
	unsub, ok := o.store.Subscribe(id, cb)
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return unsub, nil
}

// WaitForCompletion blocks until job id reaches a terminal status, ctx is
// cancelled, or timeout elapses (timeout <= 0 means no timeout beyond
// ctx). It returns the terminal Job snapshot. A job that is already
// terminal at call time resolves immediately off the replay event.
func (o *Orchestrator) WaitForCompletion(ctx context.Context, id uuid.UUID, timeout time.Duration) (Job, error) {
	if _, ok := o.store.Get(id); !ok {
		return Job{}, pkgerrors.ErrNotFound
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Job, 1)
	unsub, ok := o.store.Subscribe(id, func(ev ProgressEvent) {
		if ev.Kind == EventComplete || ev.Kind == EventError {
			if job, ok := o.store.Get(id); ok {
				select {
				case done <- job:
				default:
				}
			}
		}
	})
	if !ok {
		return Job{}, pkgerrors.ErrNotFound
	}
	defer unsub()

	select {
	case job := <-done:
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// SystemStatus reports current Scheduler occupancy and store size.
func (o *Orchestrator) SystemStatus() SystemStatus {
	return SystemStatus{
		ActiveJobs:    o.scheduler.InUse(),
		MaxConcurrent: o.scheduler.Max(),
		TotalJobs:     o.store.Len(),
	}
}

// Shutdown stops the TTL Reaper. In-flight jobs are not cancelled; they run
// to completion on their own goroutines. Callers that want to interrupt
// them use CancelJob per job.
func (o *Orchestrator) Shutdown() {
	o.reaper.Stop()
	o.reaperCancel()
}
