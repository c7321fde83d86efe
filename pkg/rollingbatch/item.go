package rollingbatch

// State is the lifecycle state of a work item.
type State int

const (
	// StatePending is the zero value: the item waits in the pending queue.
	StatePending State = iota

	// StateActive means a transfer handle is registered for the item.
	StateActive

	// StateComplete means the transfer finished without a transport error.
	StateComplete

	// StateError means the transfer failed; the item carries the error.
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Item is a caller-supplied unit of work producing a result of type R.
//
// Items are compared by identity, so implementations are usually pointers.
// The engine mutates state but never copies an item.
type Item[R any] interface {
	comparable

	// State returns the current lifecycle state.
	State() State

	// SetState moves the item to s. err is non-nil only for StateError.
	SetState(s State, err error)

	// Result returns the produced result once the item is finalized.
	Result() (R, bool)
}
