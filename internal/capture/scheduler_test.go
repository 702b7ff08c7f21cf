package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startScheduler(t *testing.T) (*Scheduler, context.CancelFunc) {
	t.Helper()
	s := NewScheduler(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Errorf("scheduler did not stop")
		}
	})
	return s, cancel
}

func TestScheduleValues(t *testing.T) {
	if !Terminate.Terminated() {
		t.Fatalf("Terminate not terminated")
	}
	a := Again(16 * time.Millisecond)
	if a.Terminated() || a.After() != 16*time.Millisecond {
		t.Fatalf("Again=%+v", a)
	}
}

func TestScheduler_RepeatsUntilTerminate(t *testing.T) {
	s, _ := startScheduler(t)

	var calls atomic.Int32
	s.Register("count", func(time.Time) Schedule {
		if calls.Add(1) >= 3 {
			return Terminate
		}
		return Again(5 * time.Millisecond)
	}, 0)

	waitUntil(t, time.Second, func() bool { return calls.Load() == 3 }, "task did not run three times")
	waitUntil(t, time.Second, func() bool { return len(s.Pending()) == 0 }, "terminated task still pending")

	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 3 {
		t.Fatalf("task ran %d times after terminating", got)
	}
}

func TestScheduler_RegisterReplacesTask(t *testing.T) {
	s, _ := startScheduler(t)

	var oldCalls, newCalls atomic.Int32
	s.Register("loop", func(time.Time) Schedule {
		oldCalls.Add(1)
		return Again(5 * time.Millisecond)
	}, time.Hour)
	s.Register("loop", func(time.Time) Schedule {
		newCalls.Add(1)
		return Again(5 * time.Millisecond)
	}, 0)

	waitUntil(t, time.Second, func() bool { return newCalls.Load() >= 2 }, "replacement task did not run")
	if oldCalls.Load() != 0 {
		t.Fatalf("replaced task ran")
	}
	if got := s.Pending(); len(got) != 1 || got[0] != "loop" {
		t.Fatalf("Pending=%v", got)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s, _ := startScheduler(t)

	s.Register("later", func(time.Time) Schedule { return Terminate }, time.Hour)
	if !s.Cancel("later") {
		t.Fatalf("Cancel reported missing task")
	}
	if s.Cancel("later") {
		t.Fatalf("second Cancel reported present task")
	}
}

func TestScheduler_DoRunsOnLoop(t *testing.T) {
	s, _ := startScheduler(t)

	var ran atomic.Int32
	s.Register("tick", func(time.Time) Schedule {
		ran.Add(1)
		return Again(time.Millisecond)
	}, 0)

	// Do and tasks are serialized: the counter cannot move while fn runs.
	err := s.Do(context.Background(), func() {
		before := ran.Load()
		time.Sleep(20 * time.Millisecond)
		if after := ran.Load(); after != before {
			t.Errorf("task ran concurrently with Do: %d -> %d", before, after)
		}
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestScheduler_RegisterFromDo(t *testing.T) {
	s, _ := startScheduler(t)

	called := make(chan struct{})
	err := s.Do(context.Background(), func() {
		s.Register("inner", func(time.Time) Schedule {
			close(called)
			return Terminate
		}, 0)
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatalf("task registered from Do never ran")
	}
}

func TestScheduler_DoAfterStop(t *testing.T) {
	s, cancel := startScheduler(t)
	cancel()

	waitUntil(t, time.Second, func() bool {
		err := s.Do(context.Background(), func() {})
		return errors.Is(err, ErrSchedulerStopped)
	}, "Do did not report a stopped scheduler")
}

func TestScheduler_DoHonorsContext(t *testing.T) {
	// Never started: the call cannot be delivered.
	s := NewScheduler(quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := s.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v, want DeadlineExceeded", err)
	}
}
