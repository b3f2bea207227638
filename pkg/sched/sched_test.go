package sched

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManualEveryFiresOncePerInterval(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired int
	task := m.Every(3*time.Second, func() { fired++ })

	m.Advance(2 * time.Second)
	if fired != 0 {
		t.Fatalf("nothing should fire before the first interval, got %d", fired)
	}

	m.Advance(10 * time.Second)
	if fired != 4 {
		t.Fatalf("expected 4 ticks within 12s at 3s cadence, got %d", fired)
	}

	task.Stop()
	m.Advance(time.Minute)
	if fired != 4 {
		t.Fatalf("stopped task must not fire, got %d", fired)
	}
}

func TestManualAfterFiresOnce(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var fired int
	m.After(10*time.Second, func() { fired++ })

	m.Advance(9 * time.Second)
	if fired != 0 {
		t.Fatalf("deadline fired early: %d", fired)
	}
	m.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected one firing, got %d", fired)
	}
	m.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("one-shot must not refire, got %d", fired)
	}
}

func TestManualInterleavesByDeadline(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var order []string
	m.Every(4*time.Second, func() { order = append(order, "poll") })
	m.After(6*time.Second, func() { order = append(order, "deadline") })

	m.Advance(10 * time.Second)

	want := []string{"poll", "deadline", "poll"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestManualCallbackMayStopSiblingTask(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	var pollFired int
	var poll Task
	poll = m.Every(2*time.Second, func() { pollFired++ })
	m.After(5*time.Second, func() { poll.Stop() })

	m.Advance(20 * time.Second)
	if pollFired != 2 {
		t.Fatalf("poll should stop after the deadline callback, got %d ticks", pollFired)
	}
}

func TestSystemAfterAndStop(t *testing.T) {
	var fired atomic.Int32
	s := System()

	task := s.After(5*time.Millisecond, func() { fired.Add(1) })
	defer task.Stop()

	deadline := time.After(time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("deadline never fired")
		case <-time.After(time.Millisecond):
		}
	}

	stopped := s.After(time.Hour, func() { fired.Add(100) })
	stopped.Stop()
	stopped.Stop() // idempotent

	if fired.Load() != 1 {
		t.Fatalf("expected exactly one firing, got %d", fired.Load())
	}
}

func TestSystemEveryStops(t *testing.T) {
	var fired atomic.Int32
	s := System()
	task := s.Every(2*time.Millisecond, func() { fired.Add(1) })

	deadline := time.After(time.Second)
	for fired.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("ticker never fired twice")
		case <-time.After(time.Millisecond):
		}
	}
	task.Stop()
	task.Stop()
	at := fired.Load()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() > at+1 {
		t.Fatalf("ticker kept firing after stop: %d -> %d", at, fired.Load())
	}
}
