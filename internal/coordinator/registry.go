package coordinator

import "sync"

// reserveOutcome classifies an admission attempt against the registry.
type reserveOutcome int

const (
	reserved reserveOutcome = iota
	repoBusy
	atCapacity
)

// activeRegistry enforces the one-active-run-per-repository invariant.
// The check-then-insert admission sequence is atomic under one mutex; a
// race here would allow two overlapping runs for the same repository.
type activeRegistry struct {
	mu   sync.Mutex
	runs map[string]string // repository name -> job ID
}

func newActiveRegistry() *activeRegistry {
	return &activeRegistry{runs: make(map[string]string)}
}

// tryReserve registers jobID for repo unless a run is already active or the
// concurrency limit (0 = unbounded) is reached. On repoBusy the returned
// string is the existing run's job ID.
func (r *activeRegistry) tryReserve(repo, jobID string, limit int) (string, reserveOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.runs[repo]; ok {
		return existing, repoBusy
	}
	if limit > 0 && len(r.runs) >= limit {
		return "", atCapacity
	}
	r.runs[repo] = jobID
	return jobID, reserved
}

// release removes the repository's entry. Called on every terminal path.
func (r *activeRegistry) release(repo string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, repo)
}

// size returns the number of active runs.
func (r *activeRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
