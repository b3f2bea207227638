// Package sched provides the two timer shapes the checkout core composes:
// a repeating task (payment polling) and a one-shot deadline task (session
// expiry). Owning them behind an interface keeps teardown synchronous and
// lets tests drive time by hand.
package sched

import (
	"sync"
	"time"
)

// Task is a scheduled unit of work. Stop is idempotent; after Stop returns
// the callback will not be started again.
type Task interface {
	Stop()
}

// Scheduler hands out repeating and one-shot tasks.
type Scheduler interface {
	// Every runs fn every interval until the task is stopped. The first run
	// happens one interval after scheduling.
	Every(interval time.Duration, fn func()) Task
	// After runs fn once after the delay unless the task is stopped first.
	After(delay time.Duration, fn func()) Task
	// Now returns the scheduler's current time.
	Now() time.Time
}

// System returns the wall-clock scheduler.
func System() Scheduler {
	return systemScheduler{}
}

type systemScheduler struct{}

func (systemScheduler) Now() time.Time {
	return time.Now()
}

func (systemScheduler) Every(interval time.Duration, fn func()) Task {
	task := &repeatingTask{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-task.done:
				return
			case <-task.ticker.C:
				fn()
			}
		}
	}()
	return task
}

func (systemScheduler) After(delay time.Duration, fn func()) Task {
	task := &deadlineTask{}
	task.timer = time.AfterFunc(delay, fn)
	return task
}

type repeatingTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *repeatingTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

type deadlineTask struct {
	timer *time.Timer
	once  sync.Once
}

func (t *deadlineTask) Stop() {
	t.once.Do(func() {
		t.timer.Stop()
	})
}
