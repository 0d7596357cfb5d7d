package order

import "time"

// Size is the pizza size; recipes are keyed by it.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Sizes returns every size in menu order.
func Sizes() []Size {
	return []Size{SizeSmall, SizeMedium, SizeLarge}
}

// Quantity bounds accepted at submission.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Record is one order as persisted in the session file.
type Record struct {
	ID          int64      `json:"id"`
	ItemKind    string     `json:"item_kind"`
	Size        Size       `json:"size"`
	Quantity    int        `json:"quantity"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Draft is the in-progress selection the presentation layer autosaves.
// The core does not interpret it; keys are whatever the front end edits.
type Draft map[string]any

// Stamp returns t in UTC, stripped of its monotonic reading and truncated to
// microseconds so it survives a text round trip unchanged.
func Stamp(t time.Time) time.Time {
	return t.UTC().Round(0).Truncate(time.Microsecond)
}
