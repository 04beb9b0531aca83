package testutil

import "sync"

// Journal records side effects across fakes in the order they happened.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// Append records one entry.
func (j *Journal) Append(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of everything recorded so far.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}
