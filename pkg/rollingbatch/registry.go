package rollingbatch

import (
	"github.com/Sternrassler/rollingbatch/pkg/transfer"
)

// registry tracks the transfer handle of every active item, keyed both by
// item and by handle so completions can be resolved in O(1).
type registry[I comparable] struct {
	byItem   map[I]transfer.Handle
	byHandle map[transfer.Handle]I

	// detach removes a handle from the multiplexer before it is closed.
	detach func(transfer.Handle)
}

func newRegistry[I comparable](detach func(transfer.Handle)) *registry[I] {
	return &registry[I]{
		byItem:   make(map[I]transfer.Handle),
		byHandle: make(map[transfer.Handle]I),
		detach:   detach,
	}
}

// Register binds h to item.
func (r *registry[I]) Register(item I, h transfer.Handle) {
	r.byItem[item] = h
	r.byHandle[h] = item
}

// Resolve returns the item owning h.
func (r *registry[I]) Resolve(h transfer.Handle) (I, bool) {
	item, ok := r.byHandle[h]
	return item, ok
}

// Handle returns the handle registered for item.
func (r *registry[I]) Handle(item I) (transfer.Handle, bool) {
	h, ok := r.byItem[item]
	return h, ok
}

// Release unbinds, detaches and closes the handle of item.
// Releasing an item without a handle is a no-op.
func (r *registry[I]) Release(item I) error {
	h, ok := r.byItem[item]
	if !ok {
		return nil
	}

	delete(r.byItem, item)
	delete(r.byHandle, h)

	if r.detach != nil {
		r.detach(h)
	}
	return h.Close()
}

// Items returns the items with a registered handle, in no particular order.
func (r *registry[I]) Items() []I {
	items := make([]I, 0, len(r.byItem))
	for item := range r.byItem {
		items = append(items, item)
	}
	return items
}

// Count returns the number of registered handles.
func (r *registry[I]) Count() int {
	return len(r.byItem)
}
