package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the repeating timers of the current page. Reset drops every
// timer at once; named timers can also be replaced or removed one by one.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	started bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    newCron(),
		entries: make(map[string]cron.EntryID),
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

// Every registers fn under name to run every d, replacing a timer of the
// same name. Runs of one timer never overlap.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) error {
	if d < time.Second {
		return fmt.Errorf("timer %s: interval %v below one second", name, d)
	}
	return s.add(name, fmt.Sprintf("@every %s", d), fn)
}

// Cron registers fn under name with a six-field cron spec (seconds first).
// A CRON_TZ= prefix selects the zone the spec is read in.
func (s *Scheduler) Cron(name, spec string, fn func()) error {
	return s.add(name, spec, fn)
}

func (s *Scheduler) add(name, spec string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("register timer %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// Cancel removes the timer registered under name.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Has reports whether a timer named name is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Names lists the registered timers.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for name := range s.entries {
		out = append(out, name)
	}
	return out
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	log.Println("[INFO] scheduler started")
}

// Reset stops every timer and leaves an empty scheduler in the same
// started state. Jobs already running are not waited for.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Stop()
	s.cron = newCron()
	s.entries = make(map[string]cron.EntryID)
	if s.started {
		s.cron.Start()
	}
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.started = false
	s.mu.Unlock()
	<-c.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}
