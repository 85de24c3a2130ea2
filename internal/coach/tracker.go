package coach

import (
	"context"
	"sync"
)

// Token identifies one in-flight request of a (user, kind) pair.
type Token struct {
	User string
	Kind string
	Seq  uint64
}

type trackKey struct{ user, kind string }

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Tracker issues monotonic tokens per (user, kind). Beginning a request
// cancels the previous one of the same pair, and only the latest token
// may publish its result.
type Tracker struct {
	mu      sync.Mutex
	seq     map[trackKey]uint64
	running map[trackKey]inflight
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		seq:     make(map[trackKey]uint64),
		running: make(map[trackKey]inflight),
	}
}

// Begin starts a request and returns its context and token.
func (t *Tracker) Begin(parent context.Context, user, kind string) (context.Context, Token) {
	ctx, cancel := context.WithCancel(parent)
	key := trackKey{user, kind}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.running[key]; ok {
		prev.cancel()
	}
	t.seq[key]++
	seq := t.seq[key]
	t.running[key] = inflight{seq: seq, cancel: cancel}
	return ctx, Token{User: user, Kind: kind, Seq: seq}
}

// Finish releases the token and reports whether it was still the latest.
// A false result means the caller must discard its outcome.
func (t *Tracker) Finish(tok Token) bool {
	key := trackKey{tok.User, tok.Kind}

	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.seq[key] == tok.Seq
	if r, ok := t.running[key]; ok && r.seq == tok.Seq {
		r.cancel()
		delete(t.running, key)
	}
	return current
}

// Current reports whether tok is still the latest of its pair.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq[trackKey{tok.User, tok.Kind}] == tok.Seq
}
