package genjob

import (
	"sync"

	"github.com/google/uuid"

	"github.com/campaignforge/orchestrator/internal/platform/logger"
)

// subscriber owns one dedicated delivery goroutine draining a FIFO queue of
// ProgressEvents for a single subscription. The queue is an unbounded
// slice guarded by a sync.Cond, so a slow subscriber's queue grows rather
// than dropping events or blocking the publisher.
type subscriber struct {
	mu             sync.Mutex
	cond           *sync.Cond
	queue          []ProgressEvent
	closed         bool
	running        bool
	firstDelivered bool
	replayDone     chan struct{}
	cb             func(ProgressEvent)
	log            *logger.Logger
}

func newSubscriber(cb func(ProgressEvent), log *logger.Logger) *subscriber {
	s := &subscriber{cb: cb, log: log, replayDone: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

// waitReplay blocks until the first queued event (the replay snapshot) has
// been delivered to the callback.
func (s *subscriber) waitReplay() {
	<-s.replayDone
}

func (s *subscriber) loop() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.running = true
		s.mu.Unlock()

		s.safeInvoke(ev)

		s.mu.Lock()
		s.running = false
		if !s.firstDelivered {
			s.firstDelivered = true
			close(s.replayDone)
		}
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

func (s *subscriber) safeInvoke(ev ProgressEvent) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Warn("progress subscriber callback panicked", "panic", r, "job_id", ev.JobID.String())
		}
	}()
	s.cb(ev)
}

// enqueue appends ev to the queue. Safe to call while holding a caller's own
// lock (e.g. the job record lock) since it never runs user code.
func (s *subscriber) enqueue(ev ProgressEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.cond.Signal()
}

// close stops the delivery loop. Already-queued events that have not begun
// delivery are dropped; an in-flight callback is allowed to finish, but
// close does not wait for it (callers needing that guarantee use
// waitIdle). Closing before the replay event was delivered releases any
// waitReplay caller so a racing Subscribe/Delete pair cannot deadlock.
func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	if !s.firstDelivered {
		s.firstDelivered = true
		close(s.replayDone)
	}
	s.mu.Unlock()
	s.cond.Broadcast()
}

// waitIdle blocks until no callback is in flight for this subscriber. Used
// by Unsubscribe to honor the "no callback begins after return" contract.
func (s *subscriber) waitIdle() {
	s.mu.Lock()
	for s.running {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Bus is the Progress Bus: an in-process publish/subscribe fabric keyed by
// job ID. It never touches the network and holds no state beyond the live
// subscriber set; the Job Store is the only component that publishes to it,
// always from inside the job's own per-record lock, which is what gives
// subscribers their per-job total-ordering guarantee.
type Bus struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[uuid.UUID]*subscriber
	log  *logger.Logger
}

// NewBus constructs an empty Progress Bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{subs: make(map[uuid.UUID]map[uuid.UUID]*subscriber), log: log}
}

// subscribe registers a new subscription for jobID and enqueues the replay
// event as its first queue item. It must be called by the Job Store while
// holding that job's record lock, so the replay enqueue and any
// concurrently-racing publish() for the same job are strictly ordered.
// It returns the subscriber so the caller (Store.Subscribe) can wait for
// the replay event to be delivered after releasing the job lock.
func (b *Bus) subscribe(jobID uuid.UUID, replay ProgressEvent, cb func(ProgressEvent)) (subID uuid.UUID, sub *subscriber) {
	sub = newSubscriber(cb, b.log)
	sub.enqueue(replay)

	subID = uuid.New()
	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[uuid.UUID]*subscriber)
	}
	b.subs[jobID][subID] = sub
	b.mu.Unlock()
	return subID, sub
}

// unsubscribe removes subID from jobID's subscriber set and blocks until no
// further callback will begin.
func (b *Bus) unsubscribe(jobID, subID uuid.UUID) {
	b.mu.Lock()
	var sub *subscriber
	if set, ok := b.subs[jobID]; ok {
		sub = set[subID]
		delete(set, subID)
		if len(set) == 0 {
			delete(b.subs, jobID)
		}
	}
	b.mu.Unlock()
	if sub == nil {
		return
	}
	sub.close()
	sub.waitIdle()
}

// publish fans ev out to every live subscriber of jobID. It must be called
// by the Job Store while still holding that job's record lock; it never
// invokes subscriber callbacks directly (those run on each subscriber's own
// delivery goroutine), so holding the lock here cannot deadlock on
// reentrant calls from a callback.
func (b *Bus) publish(jobID uuid.UUID, ev ProgressEvent) {
	b.mu.Lock()
	set := b.subs[jobID]
	list := make([]*subscriber, 0, len(set))
	for _, s := range set {
		list = append(list, s)
	}
	b.mu.Unlock()
	for _, s := range list {
		s.enqueue(ev)
	}
}

// closeJob tears down every subscription for jobID, e.g. when the Job Store
// deletes the record (explicit delete or TTL reap).
func (b *Bus) closeJob(jobID uuid.UUID) {
	b.mu.Lock()
	set := b.subs[jobID]
	delete(b.subs, jobID)
	b.mu.Unlock()
	for _, s := range set {
		s.close()
	}
}
