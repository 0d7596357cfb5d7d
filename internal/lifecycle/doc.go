// Package lifecycle advances a single order through its stages.
//
// STATE MACHINE:
//
//	Registered -> Cooking -> ReadyForCollection -> Collected
//	(any non-terminal) -> Error
//
// Each stage has a dwell duration; the transition out of a stage fires only
// after the dwell has elapsed. Registered -> Cooking also needs an inventory
// reservation and does not fire until the reservation succeeds.
//
// CANCELLATION:
//
// Cancellation is cooperative. The context is checked before and after each
// dwell; a dwell that has started always runs to completion. A cancelled order
// keeps its current status so a later run can resume it.
//
// FAILURE:
//
// Any failure inside a stage (unknown size, unknown ingredient, a rejected
// status move, a panic) moves the order to Error, writes an Error log entry
// and stops. Failed orders are never retried.
package lifecycle
