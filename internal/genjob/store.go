package genjob

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/campaignforge/orchestrator/internal/pkg/errors"
)

// record is the Job Store's internal representation: one job plus the
// per-job lock guarding it and the job's own cancellation hook.
type record struct {
	mu     sync.Mutex
	job    Job
	cancel func()
}

// Store is the single authority for job state. All reads return deep
// copies; all writes go through one of its mutator methods, which update
// state and publish exactly one ProgressEvent per call while still holding
// the record's lock (see bus.go for why that is safe).
type Store struct {
	bus *Bus

	mu      sync.RWMutex
	records map[uuid.UUID]*record
}

// NewStore constructs an empty Job Store bound to bus.
func NewStore(bus *Bus) *Store {
	return &Store{bus: bus, records: make(map[uuid.UUID]*record)}
}

// Create inserts a new pending Job and returns its snapshot. cancel is the
// Pipeline Executor's cancellation hook for this job, invoked by CancelJob.
func (s *Store) Create(opts Options, cancel func()) Job {
	now := time.Now().UTC()
	progress := make(map[StageName]StageStatus, len(Stages))
	for _, st := range Stages {
		progress[st] = StageStatusPending
	}
	if opts.SkipPackages {
		progress[StagePackages] = StageStatusSkipped
	}
	if opts.SkipAds {
		progress[StageAds] = StageStatusSkipped
	}
	if opts.SkipTexts {
		progress[StageTexts] = StageStatusSkipped
	}
	job := Job{
		ID:        uuid.New(),
		Status:    StatusPending,
		Progress:  progress,
		Options:   opts,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec := &record{job: job, cancel: cancel}

	s.mu.Lock()
	s.records[job.ID] = rec
	s.mu.Unlock()

	return job.Clone()
}

func (s *Store) get(id uuid.UUID) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	return rec, ok
}

// Get returns a snapshot of job id, or false if it does not exist.
func (s *Store) Get(id uuid.UUID) (Job, bool) {
	rec, ok := s.get(id)
	if !ok {
		return Job{}, false
	}
	rec.mu.Lock()
	j := rec.job.Clone()
	rec.mu.Unlock()
	return j, true
}

// List returns a snapshot of every job currently in the store, newest
// first.
func (s *Store) List() []Job {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]Job, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.job.Clone())
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cancel invokes the stored cancellation hook for id, if any. It does not
// itself mutate job state; the Pipeline Executor observes ctx.Err() and
// calls SetError/UpdateStatus to record the cancellation.
func (s *Store) Cancel(id uuid.UUID) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	cancel := rec.cancel
	rec.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// eventFor builds the ProgressEvent reflecting rec.job's current state.
// Caller must hold rec.mu. The event carries cloned state: subscribers
// read it on their own goroutines while the store keeps mutating the live
// record.
func eventFor(job Job) ProgressEvent {
	kind := EventProgress
	switch job.Status {
	case StatusCompleted:
		kind = EventComplete
	case StatusFailed:
		kind = EventError
	}
	snap := job.Clone()
	return ProgressEvent{
		JobID:    job.ID,
		Kind:     kind,
		Progress: snap.Progress,
		Result:   snap.Result,
		Error:    job.Error,
	}
}

// UpdateStatus transitions job id to status, stamping CompletedAt when the
// new status is terminal.
func (s *Store) UpdateStatus(id uuid.UUID, status Status) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	rec.job.Status = status
	rec.job.UpdatedAt = time.Now().UTC()
	if status == StatusCompleted || status == StatusFailed {
		t := rec.job.UpdatedAt
		rec.job.CompletedAt = &t
	}
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// UpdateStage transitions a single stage's status within job id.
func (s *Store) UpdateStage(id uuid.UUID, stage StageName, status StageStatus) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	if rec.job.Progress == nil {
		rec.job.Progress = make(map[StageName]StageStatus, len(Stages))
	}
	rec.job.Progress[stage] = status
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

func (s *Store) ensureResult(job *Job) {
	if job.Result == nil {
		job.Result = &Result{}
	}
}

// MergeAnalysis writes the Analysis stage's output into job id's Result.
func (s *Store) MergeAnalysis(id uuid.UUID, analysis *Analysis) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	s.ensureResult(&rec.job)
	rec.job.Result.Analysis = analysis
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// MergePackages writes the Packages branch's output into job id's Result.
func (s *Store) MergePackages(id uuid.UUID, packages []PackageDesign) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	s.ensureResult(&rec.job)
	rec.job.Result.Packages = packages
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// MergeAds writes the Ads branch's output into job id's Result.
func (s *Store) MergeAds(id uuid.UUID, ads []AdImage) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	s.ensureResult(&rec.job)
	rec.job.Result.Ads = ads
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// MergeTexts writes the Texts branch's output into job id's Result.
func (s *Store) MergeTexts(id uuid.UUID, texts *TextBundle) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	s.ensureResult(&rec.job)
	rec.job.Result.Texts = texts
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// SetDownloadURL stamps the lazily-computed bundle URL into job id's Result.
func (s *Store) SetDownloadURL(id uuid.UUID, url string) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	s.ensureResult(&rec.job)
	rec.job.Result.DownloadURL = url
	rec.job.UpdatedAt = time.Now().UTC()
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// SetError records a terminal failure message on job id and transitions it
// to StatusFailed.
func (s *Store) SetError(id uuid.UUID, message string) bool {
	rec, ok := s.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	rec.job.Status = StatusFailed
	rec.job.Error = message
	rec.job.UpdatedAt = time.Now().UTC()
	t := rec.job.UpdatedAt
	rec.job.CompletedAt = &t
	ev := eventFor(rec.job)
	s.bus.publish(id, ev)
	rec.mu.Unlock()
	return true
}

// Delete removes job id from the store and tears down its subscriptions.
// It returns pkgerrors.ErrNotFound if the job does not exist.
func (s *Store) Delete(id uuid.UUID) error {
	s.mu.Lock()
	_, ok := s.records[id]
	if ok {
		delete(s.records, id)
	}
	s.mu.Unlock()
	if !ok {
		return pkgerrors.ErrNotFound
	}
	s.bus.closeJob(id)
	return nil
}

// IsTerminal reports whether job id has reached a terminal status. Returns
// false, false if the job does not exist.
func (s *Store) IsTerminal(id uuid.UUID) (terminal bool, ok bool) {
	rec, found := s.get(id)
	if !found {
		return false, false
	}
	rec.mu.Lock()
	status := rec.job.Status
	rec.mu.Unlock()
	return status == StatusCompleted || status == StatusFailed, true
}

// Subscribe registers cb to receive every subsequent ProgressEvent for job
// id, after synchronously delivering one replay event carrying the job's
// current state. It returns false if the job does not exist.
func (s *Store) Subscribe(id uuid.UUID, cb func(ProgressEvent)) (Unsubscribe, bool) {
	rec, ok := s.get(id)
	if !ok {
		return nil, false
	}

	rec.mu.Lock()
	replay := eventFor(rec.job)
	subID, sub := s.bus.subscribe(id, replay, cb)
	rec.mu.Unlock()

	sub.waitReplay()

	return func() { s.bus.unsubscribe(id, subID) }, true
}

// TerminalCreatedBefore returns the IDs of every terminal job created
// before cutoff, for use by the TTL Reaper. Job age runs from creation,
// not from the terminal transition.
func (s *Store) TerminalCreatedBefore(cutoff time.Time) []uuid.UUID {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	var out []uuid.UUID
	for _, rec := range recs {
		rec.mu.Lock()
		if rec.job.CompletedAt != nil && rec.job.CreatedAt.Before(cutoff) {
			out = append(out, rec.job.ID)
		}
		rec.mu.Unlock()
	}
	return out
}

// Len returns the number of jobs currently held by the store.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()
	return n
}
