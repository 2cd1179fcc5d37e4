// Package epoch provides the token that invalidates the process cache: whenever the offline writer
// processes a map update it publishes a new epoch, and readers drop every grid loaded under the old one.
package epoch

import (
	"context"
	"sync"
	"time"
)

// Epoch is an opaque token. Only equality matters.
type Epoch string

type Source interface {
	CurrentEpoch(ctx context.Context) (Epoch, error)
}

// Static always returns the same epoch.
type Static Epoch

func (s Static) CurrentEpoch(context.Context) (Epoch, error) {
	return Epoch(s), nil
}

type throttled struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	epoch   Epoch
	fetched time.Time
	valid   bool
}

// Throttle asks source at most once per ttl and answers from memory in between. Errors are not remembered.
func Throttle(source Source, ttl time.Duration) Source {
	if ttl <= 0 {
		return source
	}
	return &throttled{source: source, ttl: ttl, now: time.Now}
}

func (t *throttled) CurrentEpoch(ctx context.Context) (Epoch, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.valid && now.Sub(t.fetched) < t.ttl {
		return t.epoch, nil
	}
	e, err := t.source.CurrentEpoch(ctx)
	if err != nil {
		t.valid = false
		return "", err
	}
	t.epoch, t.fetched, t.valid = e, now, true
	return e, nil
}
