package commands

import "sync"

// voteLocks serializes mutating operations per vote id. Operations on
// different votes run in parallel; every read-modify-write on a single vote
// (cast, veto, close, overturn relabel) holds that vote's lock end to end.
type voteLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newVoteLocks() *voteLocks {
	return &voteLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the given vote id and returns the release function.
func (l *voteLocks) acquire(voteID string) func() {
	l.mu.Lock()
	lock, found := l.locks[voteID]
	if !found {
		lock = &sync.Mutex{}
		l.locks[voteID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
