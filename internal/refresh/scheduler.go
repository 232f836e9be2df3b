package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"OrderFlowDash/internal/model"
)

const (
	maxConcurrency = 6
	progressEvery  = 10
)

// FetchFunc loads the series of one board.
type FetchFunc func(ctx context.Context, code string) ([]model.Point, error)

// RenderFunc draws the series of one visible board.
type RenderFunc func(code string, points []model.Point)

// Options controls one refresh call.
type Options struct {
	BatchSize   int
	Concurrency int
	Gap         time.Duration
	OnlyMissing bool

	// Progress is called with completed/total after every tenth completion
	// and once when the run finishes.
	Progress func(done, total int)
	// OnChunk is called after each chunk settles with its index.
	OnChunk func(chunk int)
}

func (o Options) normalized() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Concurrency > maxConcurrency {
		o.Concurrency = maxConcurrency
	}
	if o.Gap < 0 {
		o.Gap = 0
	}
	return o
}

// Result summarises a refresh call.
type Result struct {
	Total      int
	Batches    int
	Fetched    int
	Failed     int
	Superseded bool
}

// Scheduler runs batched, bounded-parallel refreshes against a cache.
type Scheduler struct {
	Runs    *Runs
	Metrics *Metrics
	// Sleep pauses between chunks. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a scheduler with its own generation table.
func NewScheduler(m *Metrics) *Scheduler {
	return &Scheduler{Runs: NewRuns(), Metrics: m}
}

// Refresh fetches the series of codes for target in consecutive chunks of
// BatchSize, running Concurrency workers inside each chunk and pausing Gap
// between chunks. A newer Refresh for the same target stops this one before
// its next chunk; workers of the chunk in flight finish normally.
func (s *Scheduler) Refresh(ctx context.Context, target string, cache *Cache, codes []string, fetch FetchFunc, render RenderFunc, opts Options) Result {
	opts = opts.normalized()
	if opts.OnlyMissing {
		codes = cache.Missing(codes)
	}
	res := Result{Total: len(codes)}
	if len(codes) == 0 {
		return res
	}

	token := s.Runs.Begin(target)
	var (
		mu   sync.Mutex
		done int
	)
	report := func(ok bool) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if ok {
			res.Fetched++
		} else {
			res.Failed++
		}
		if opts.Progress != nil && done%progressEvery == 0 {
			opts.Progress(done, res.Total)
		}
	}

	for start := 0; start < len(codes); start += opts.BatchSize {
		if !token.Valid() || ctx.Err() != nil {
			res.Superseded = true
			s.Metrics.supersede(target)
			log.Printf("[INFO] refresh %s: run superseded after %d batches", target, res.Batches)
			return res
		}
		end := start + opts.BatchSize
		if end > len(codes) {
			end = len(codes)
		}
		s.runChunk(ctx, target, cache, codes[start:end], fetch, render, opts.Concurrency, report)
		res.Batches++
		s.Metrics.batch(target)
		if opts.OnChunk != nil {
			opts.OnChunk(res.Batches - 1)
		}

		if end < len(codes) && opts.Gap > 0 {
			if err := s.sleep(ctx, opts.Gap); err != nil {
				res.Superseded = true
				s.Metrics.supersede(target)
				return res
			}
		}
	}

	if opts.Progress != nil {
		opts.Progress(done, res.Total)
	}
	log.Printf("[INFO] refresh %s: %d ok, %d failed in %d batches", target, res.Fetched, res.Failed, res.Batches)
	return res
}

// runChunk drains chunk with conc workers sharing one cursor.
func (s *Scheduler) runChunk(ctx context.Context, target string, cache *Cache, chunk []string, fetch FetchFunc, render RenderFunc, conc int, report func(bool)) {
	if conc > len(chunk) {
		conc = len(chunk)
	}
	var (
		mu     sync.Mutex
		cursor int
		wg     sync.WaitGroup
	)
	next := func() (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(chunk) {
			return "", false
		}
		code := chunk[cursor]
		cursor++
		return code, true
	}

	for w := 0; w < conc; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				code, ok := next()
				if !ok {
					return
				}
				report(s.fetchOne(ctx, target, cache, code, fetch, render))
			}
		}()
	}
	wg.Wait()
}

func (s *Scheduler) fetchOne(ctx context.Context, target string, cache *Cache, code string, fetch FetchFunc, render RenderFunc) bool {
	started := time.Now()
	points, err := fetch(ctx, code)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		s.Metrics.fetched(target, "error", elapsed)
		log.Printf("[WARN] refresh %s: fetch %s: %v", target, code, err)
		return false
	}
	if len(points) < 2 {
		s.Metrics.fetched(target, "short", elapsed)
		return true
	}
	s.Metrics.fetched(target, "ok", elapsed)

	exists, visible := cache.Store(code, points)
	if exists && visible && render != nil {
		render(code, points)
		cache.MarkRendered(code)
	}
	return true
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
