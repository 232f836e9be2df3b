package refresh

import "sync"

// Runs tracks the live generation of each refresh target. Starting a run
// bumps the generation; a run stays valid only while nobody has started a
// newer one for the same target.
type Runs struct {
	mu   sync.Mutex
	live map[string]uint64
}

// NewRuns creates an empty generation table.
func NewRuns() *Runs {
	return &Runs{live: make(map[string]uint64)}
}

// Token is the generation captured when a run started.
type Token struct {
	runs   *Runs
	target string
	gen    uint64
}

// Begin starts a new run for target, superseding any run in flight.
func (r *Runs) Begin(target string) Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[target]++
	return Token{runs: r, target: target, gen: r.live[target]}
}

// Cancel supersedes the current run of target without starting a new one.
func (r *Runs) Cancel(target string) {
	r.mu.Lock()
	r.live[target]++
	r.mu.Unlock()
}

// Generation returns the live generation of target.
func (r *Runs) Generation(target string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[target]
}

// Valid reports whether the token's run has not been superseded.
func (t Token) Valid() bool {
	if t.runs == nil {
		return false
	}
	return t.runs.Generation(t.target) == t.gen
}

// Target returns the refresh target the token was issued for.
func (t Token) Target() string { return t.target }
