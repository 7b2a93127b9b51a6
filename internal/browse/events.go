package browse

import "fmt"

// EventKind identifies a browse state change.
type EventKind int

const (
	FetchStarted EventKind = iota
	FetchSucceeded
	FetchFailed
	FetchDiscarded
	SearchCommitted
	SelectionChanged
)

func (k EventKind) String() string {
	switch k {
	case FetchStarted:
		return "fetch-started"
	case FetchSucceeded:
		return "fetch-succeeded"
	case FetchFailed:
		return "fetch-failed"
	case FetchDiscarded:
		return "fetch-discarded"
	case SearchCommitted:
		return "search-committed"
	case SelectionChanged:
		return "selection-changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event tells a renderer that browse state changed. Genre is empty for controller-wide changes.
type Event struct {
	Kind  EventKind
	Genre string
	Err   error
}
