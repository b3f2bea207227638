package sched

import (
	"sort"
	"sync"
	"time"
)

// Manual is a hand-driven Scheduler for tests. Nothing fires until Advance
// moves the clock; due callbacks then run synchronously, in deadline order,
// on the calling goroutine.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

// NewManual builds a manual scheduler anchored at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn func()) Task {
	return m.schedule(interval, fn, true)
}

func (m *Manual) After(delay time.Duration, fn func()) Task {
	return m.schedule(delay, fn, false)
}

func (m *Manual) schedule(d time.Duration, fn func(), repeating bool) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	task := &manualTask{
		owner: m,
		next:  m.now.Add(d),
		fn:    fn,
	}
	if repeating {
		task.interval = d
	}
	m.tasks = append(m.tasks, task)
	return task
}

// Advance moves the clock forward, firing every task that falls due within
// the window. Callbacks may stop tasks or schedule new ones.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		task := m.nextDue(target)
		if task == nil {
			break
		}
		task.fn()
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
}

// nextDue pops the earliest live task due at or before target, advancing
// the clock to its deadline and rescheduling it if repeating.
func (m *Manual) nextDue(target time.Time) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.tasks[:0]
	for _, task := range m.tasks {
		if !task.stopped {
			live = append(live, task)
		}
	}
	m.tasks = live

	sort.SliceStable(m.tasks, func(i, j int) bool {
		return m.tasks[i].next.Before(m.tasks[j].next)
	})

	for _, task := range m.tasks {
		if task.next.After(target) {
			continue
		}
		if task.next.After(m.now) {
			m.now = task.next
		}
		if task.interval > 0 {
			task.next = task.next.Add(task.interval)
		} else {
			task.stopped = true
		}
		return task
	}
	return nil
}

type manualTask struct {
	owner    *Manual
	next     time.Time
	interval time.Duration
	fn       func()
	stopped  bool
}

func (t *manualTask) Stop() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.stopped = true
}
