package persistence

import "fmt"

// VisibilityState is the logical lifecycle state shared by every
// soft-deletable table. Rows are never removed on the default delete path;
// they transition to VisibilityDeleted and drop out of alive reads.
type VisibilityState string

const (
	// VisibilityPrivate keeps the row readable by its owners only.
	VisibilityPrivate VisibilityState = "private"
	// VisibilityOpen is the default state for newly created rows.
	VisibilityOpen VisibilityState = "open"
	// VisibilityDeleted marks the row as logically removed. Terminal on the
	// default delete path; only an explicit hard delete removes the row.
	VisibilityDeleted VisibilityState = "deleted"
)

// ParseVisibilityState validates a raw state value.
func ParseVisibilityState(raw string) (VisibilityState, error) {
	switch VisibilityState(raw) {
	case VisibilityPrivate, VisibilityOpen, VisibilityDeleted:
		return VisibilityState(raw), nil
	default:
		return "", fmt.Errorf("unknown visibility state %q", raw)
	}
}

// Alive reports whether rows in this state appear on default reads.
func (s VisibilityState) Alive() bool {
	return s == VisibilityPrivate || s == VisibilityOpen
}

// String implements fmt.Stringer.
func (s VisibilityState) String() string {
	return string(s)
}
