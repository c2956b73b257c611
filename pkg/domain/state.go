package domain

// State is the mutable value a task operates on.
//
// The executor never inspects a State. It only needs to fork it: Clone must
// return an independent deep copy that shares no mutable substructure with
// the receiver. Exactly one task instance owns a State at a time, and each
// child task receives its own clone.
type State interface {
	Clone() State
}

// StateFactory produces the fresh, empty State a run starts from.
type StateFactory func() State
