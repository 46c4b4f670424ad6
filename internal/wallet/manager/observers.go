package manager

import (
	"log/slog"
	"sync"
)

// observers is a typed listener list. Listeners run outside the lock, in
// registration order.
type observers[T any] struct {
	mu   sync.Mutex
	next uint64
	ids  []uint64
	fns  map[uint64]func(T)
}

func (o *observers[T]) add(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[uint64]func(T))
	}
	id := o.next
	o.next++
	o.ids = append(o.ids, id)
	o.fns[id] = fn

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.fns[id]; !ok {
			return
		}
		delete(o.fns, id)
		for i, v := range o.ids {
			if v == id {
				o.ids = append(o.ids[:i], o.ids[i+1:]...)
				break
			}
		}
	}
}

func (o *observers[T]) emit(logger *slog.Logger, event string, v T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.ids))
	for _, id := range o.ids {
		fns = append(fns, o.fns[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Observer panicked", "event", event, "panic", r)
				}
			}()
			fn(v)
		}()
	}
}
