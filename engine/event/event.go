package event

// subscription pairs a handler with the token used to unsubscribe it.
type subscription[T any] struct {
	id      uint64
	handler func(T)
}

// Event is an ordered multi-cast notification. Handlers run in registration order.
// Emit snapshots the subscriber list before dispatch, so handlers that subscribe or
// unsubscribe while an emit is running only affect later emits.
// Not safe for concurrent use; events are emitted on the owning goroutine.
type Event[T any] struct {
	nextID uint64
	subs   []subscription[T]
}

// Subscribe registers a handler and returns a function that removes it.
// Calling the returned function more than once is a no-op.
//
// Parameters:
//   - handler: the function invoked on every Emit
//
// Returns:
//   - func(): unsubscribe function
func (e *Event[T]) Subscribe(handler func(T)) func() {
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscription[T]{id: id, handler: handler})
	return func() {
		e.unsubscribe(id)
	}
}

// Emit invokes every handler registered at the time of the call with value.
//
// Parameters:
//   - value: the payload delivered to handlers
func (e *Event[T]) Emit(value T) {
	if len(e.subs) == 0 {
		return
	}
	snapshot := make([]subscription[T], len(e.subs))
	copy(snapshot, e.subs)
	for _, s := range snapshot {
		s.handler(value)
	}
}

// Len returns the number of registered handlers.
func (e *Event[T]) Len() int {
	return len(e.subs)
}

// Clear removes every handler.
func (e *Event[T]) Clear() {
	e.subs = nil
}

func (e *Event[T]) unsubscribe(id uint64) {
	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}
