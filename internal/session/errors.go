package session

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind int

const (
	// KindConfigLoad: dataset metadata could not be fetched. Non-fatal.
	KindConfigLoad Kind = iota + 1
	// KindCategoryLoad: the category list could not be fetched. Non-fatal;
	// the category list is left empty.
	KindCategoryLoad
	// KindSearch: a search request failed. Results are cleared.
	KindSearch
)

func (k Kind) String() string {
	switch k {
	case KindConfigLoad:
		return "config load failed"
	case KindCategoryLoad:
		return "category load failed"
	case KindSearch:
		return "search failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified failure recorded in session state.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a session *Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// ErrSuperseded is returned when a response arrives after a newer request
// (or a table switch) has made it irrelevant. The response was discarded and
// state was not touched.
var ErrSuperseded = errors.New("superseded by a newer request")
