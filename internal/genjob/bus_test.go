package genjob

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeDeliversReplaySynchronously(t *testing.T) {
	s := newTestStore()
	job := s.Create(Options{BrandName: "Acme", ProductName: "Widget"}, func() {})
	s.UpdateStage(job.ID, StageAnalysis, StageStatusProcessing)

	var mu sync.Mutex
	var received []ProgressEvent
	unsub, ok := s.Subscribe(job.ID, func(ev ProgressEvent) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	})
	if !ok {
		t.Fatalf("expected subscribe to succeed")
	}
	defer unsub()

	mu.Lock()
	n := len(received)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("expected exactly one replay event delivered before Subscribe returns, got %d", n)
	}
}

func TestSubscribePreservesPerJobOrdering(t *testing.T) {
	s := newTestStore()
	job := s.Create(Options{BrandName: "Acme", ProductName: "Widget"}, func() {})

	var mu sync.Mutex
	var seenStatuses []Status
	unsub, ok := s.Subscribe(job.ID, func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		j, found := s.Get(job.ID)
		_ = found
		seenStatuses = append(seenStatuses, j.Status)
	})
	if !ok {
		t.Fatalf("expected subscribe to succeed")
	}
	defer unsub()

	s.UpdateStatus(job.ID, StatusProcessing)
	s.UpdateStatus(job.ID, StatusCompleted)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(seenStatuses)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for 3 events, got %d", n)
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if seenStatuses[0] != StatusPending || seenStatuses[1] != StatusProcessing || seenStatuses[2] != StatusCompleted {
		t.Fatalf("expected strictly ordered status progression, got %v", seenStatuses)
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	s := newTestStore()
	job := s.Create(Options{BrandName: "Acme", ProductName: "Widget"}, func() {})

	var mu sync.Mutex
	count := 0
	unsub, ok := s.Subscribe(job.ID, func(ev ProgressEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if !ok {
		t.Fatalf("expected subscribe to succeed")
	}

	unsub()

	s.UpdateStatus(job.ID, StatusProcessing)
	s.UpdateStatus(job.ID, StatusCompleted)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected only the replay event to have been delivered, got %d", count)
	}
}

func TestMultipleSubscribersEachReplayIndependently(t *testing.T) {
	s := newTestStore()
	job := s.Create(Options{BrandName: "Acme", ProductName: "Widget"}, func() {})
	s.UpdateStatus(job.ID, StatusProcessing)

	var muA, muB sync.Mutex
	var aEvents, bEvents []ProgressEvent
	unsubA, _ := s.Subscribe(job.ID, func(ev ProgressEvent) {
		muA.Lock()
		aEvents = append(aEvents, ev)
		muA.Unlock()
	})
	defer unsubA()
	unsubB, _ := s.Subscribe(job.ID, func(ev ProgressEvent) {
		muB.Lock()
		bEvents = append(bEvents, ev)
		muB.Unlock()
	})
	defer unsubB()

	muA.Lock()
	na := len(aEvents)
	muA.Unlock()
	muB.Lock()
	nb := len(bEvents)
	muB.Unlock()

	if na != 1 || nb != 1 {
		t.Fatalf("expected each subscriber to get exactly one replay event, got a=%d b=%d", na, nb)
	}
}
