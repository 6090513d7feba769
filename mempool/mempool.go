// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils/linked"
	"github.com/ava-labs/avalanchego/utils/set"
)

type Item interface {
	ID() ids.ID
}

// Mempool holds undecided items in insertion order. Pops are LIFO.
type Mempool[T Item] struct {
	tracer trace.Tracer

	mu      sync.RWMutex
	maxSize int
	items   *linked.Hashmap[ids.ID, T]

	// pending holds at most one outstanding "new item" signal
	pending chan struct{}
}

// New creates a new [Mempool]. [maxSize] must be > 0.
func New[T Item](tracer trace.Tracer, maxSize int) *Mempool[T] {
	return &Mempool[T]{
		tracer:  tracer,
		maxSize: maxSize,
		items:   linked.NewHashmap[ids.ID, T](),
		pending: make(chan struct{}, 1),
	}
}

// Add appends [item] unless it is already present. When full, the oldest
// item is dropped to make room.
func (th *Mempool[T]) Add(ctx context.Context, item T) bool {
	_, span := th.tracer.Start(ctx, "Mempool.Add")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	itemID := item.ID()
	if _, ok := th.items.Get(itemID); ok {
		return false
	}
	if th.items.Len() >= th.maxSize {
		oldestID, _, _ := th.items.Oldest()
		th.items.Delete(oldestID)
	}
	th.items.Put(itemID, item)

	select {
	case th.pending <- struct{}{}:
	default:
	}
	return true
}

// PopBack removes and returns the newest item.
func (th *Mempool[T]) PopBack(ctx context.Context) (T, bool) {
	_, span := th.tracer.Start(ctx, "Mempool.PopBack")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	itemID, item, ok := th.items.Newest()
	if !ok {
		return item, false
	}
	th.items.Delete(itemID)
	return item, true
}

// Newest returns up to [n] items, newest first, without removing them.
func (th *Mempool[T]) Newest(ctx context.Context, n int) []T {
	_, span := th.tracer.Start(ctx, "Mempool.Newest")
	defer span.End()

	th.mu.RLock()
	defer th.mu.RUnlock()

	all := th.items.Len()
	if n > all {
		n = all
	}
	items := make([]T, n)
	i := 0
	iter := th.items.NewIterator()
	for iter.Next() {
		// Iteration is oldest first, so the last [n] land in reverse
		if idx := all - 1 - i; idx < n {
			items[idx] = iter.Value()
		}
		i++
	}
	return items
}

// Remove removes [itemID], if present.
func (th *Mempool[T]) Remove(ctx context.Context, itemID ids.ID) (T, bool) {
	_, span := th.tracer.Start(ctx, "Mempool.Remove")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	return th.remove(itemID)
}

// RemoveAll removes every id in [itemIDs].
func (th *Mempool[T]) RemoveAll(ctx context.Context, itemIDs []ids.ID) {
	_, span := th.tracer.Start(ctx, "Mempool.RemoveAll")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	for _, itemID := range itemIDs {
		th.remove(itemID)
	}
}

func (th *Mempool[T]) remove(itemID ids.ID) (T, bool) {
	item, ok := th.items.Get(itemID)
	if !ok {
		return item, false
	}
	th.items.Delete(itemID)
	return item, true
}

// Prune removes every item not in [valid] and returns how many were
// removed.
func (th *Mempool[T]) Prune(ctx context.Context, valid set.Set[ids.ID]) int {
	_, span := th.tracer.Start(ctx, "Mempool.Prune")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	return th.prune(valid)
}

// PruneFunc keeps only the items for which [keep] returns true. [keep] must
// not call back into [th].
func (th *Mempool[T]) PruneFunc(ctx context.Context, keep func(T) bool) int {
	_, span := th.tracer.Start(ctx, "Mempool.PruneFunc")
	defer span.End()

	th.mu.Lock()
	defer th.mu.Unlock()

	valid := set.NewSet[ids.ID](th.items.Len())
	iter := th.items.NewIterator()
	for iter.Next() {
		if keep(iter.Value()) {
			valid.Add(iter.Key())
		}
	}
	return th.prune(valid)
}

func (th *Mempool[T]) prune(valid set.Set[ids.ID]) int {
	removed := 0
	iter := th.items.NewIterator()
	for iter.Next() {
		// Deleting entries already visited is safe
		if itemID := iter.Key(); !valid.Contains(itemID) {
			th.items.Delete(itemID)
			removed++
		}
	}
	return removed
}

func (th *Mempool[T]) Get(ctx context.Context, itemID ids.ID) (T, bool) {
	_, span := th.tracer.Start(ctx, "Mempool.Get")
	defer span.End()

	th.mu.RLock()
	defer th.mu.RUnlock()

	return th.items.Get(itemID)
}

func (th *Mempool[T]) Has(ctx context.Context, itemID ids.ID) bool {
	_, span := th.tracer.Start(ctx, "Mempool.Has")
	defer span.End()

	th.mu.RLock()
	defer th.mu.RUnlock()

	_, ok := th.items.Get(itemID)
	return ok
}

func (th *Mempool[T]) Len(ctx context.Context) int {
	_, span := th.tracer.Start(ctx, "Mempool.Len")
	defer span.End()

	th.mu.RLock()
	defer th.mu.RUnlock()

	return th.items.Len()
}

func (th *Mempool[T]) IsEmpty(ctx context.Context) bool {
	return th.Len(ctx) == 0
}

// Items returns every item, oldest first.
func (th *Mempool[T]) Items(ctx context.Context) []T {
	_, span := th.tracer.Start(ctx, "Mempool.Items")
	defer span.End()

	th.mu.RLock()
	defer th.mu.RUnlock()

	items := make([]T, 0, th.items.Len())
	iter := th.items.NewIterator()
	for iter.Next() {
		items = append(items, iter.Value())
	}
	return items
}

// Pending is signaled after an [Add]. Repeated adds before the signal is
// consumed coalesce into one.
func (th *Mempool[T]) Pending() <-chan struct{} {
	return th.pending
}
