package genjob

import "testing"

func TestSchedulerAdmitsUpToMax(t *testing.T) {
	s := NewScheduler(2)
	if err := s.Acquire(); err != nil {
		t.Fatalf("expected first acquire to succeed: %v", err)
	}
	if err := s.Acquire(); err != nil {
		t.Fatalf("expected second acquire to succeed: %v", err)
	}
	err := s.Acquire()
	if err == nil {
		t.Fatalf("expected third acquire to be rejected")
	}
	genErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if genErr.Kind != KindCapacityExhausted {
		t.Fatalf("expected KindCapacityExhausted, got %s", genErr.Kind)
	}
	if genErr.Current != 2 || genErr.Max != 2 {
		t.Fatalf("expected current=2 max=2, got current=%d max=%d", genErr.Current, genErr.Max)
	}
}

func TestSchedulerReleaseFreesSlot(t *testing.T) {
	s := NewScheduler(1)
	if err := s.Acquire(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Acquire(); err == nil {
		t.Fatalf("expected capacity exhausted before release")
	}
	s.Release()
	if err := s.Acquire(); err != nil {
		t.Fatalf("expected acquire to succeed after release: %v", err)
	}
}

func TestSchedulerInUseAndMax(t *testing.T) {
	s := NewScheduler(3)
	_ = s.Acquire()
	_ = s.Acquire()
	if s.InUse() != 2 {
		t.Fatalf("expected InUse()==2, got %d", s.InUse())
	}
	if s.Max() != 3 {
		t.Fatalf("expected Max()==3, got %d", s.Max())
	}
}
