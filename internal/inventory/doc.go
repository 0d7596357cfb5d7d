// Package inventory tracks ingredient stock shared by every order worker.
//
// CONCURRENCY:
//
// One mutex guards the whole inventory. A reservation holds it across the
// entire check, replenish and decrement sequence for an order's ingredient
// set, so two orders can never both pass a check that only one of them could
// satisfy. Helpers that run under the lock use the *Locked suffix and never
// re-acquire it.
//
// REPLENISHMENT POLICY:
//
// An ingredient is restocked to the maximum only when its stock is at or
// below zero. A reservation that finds stock short but still positive flags
// the ingredient and decrements anyway, which can drive the stock negative.
// That behaviour is kept as-is; see DESIGN.md.
package inventory
