package ledger

import (
	"context"
	"slices"
	"sync"
)

// Locker hands out exclusive locks on sets of member ids. Ids are always
// acquired in sorted order so overlapping sets never deadlock.
//
// Each id gets a one-slot channel that lives as long as the Locker.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]chan struct{})}
}

func (lk *Locker) slot(id string) chan struct{} {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	ch, ok := lk.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		lk.slots[id] = ch
	}
	return ch
}

// Lock blocks until every id is held or ctx is done. The returned func
// releases all of them and must be called exactly once.
func (lk *Locker) Lock(ctx context.Context, ids ...string) (func(), error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ordered {
		if id == "" {
			continue
		}
		ch := lk.slot(id)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
