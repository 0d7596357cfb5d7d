// Package order defines the durable order record, its status machine, the
// menu it is validated against, and the in-memory store of every known order.
//
// Ownership: the Store owns every Record. Records are never deleted; terminal
// orders (Collected, Error) stay in the store and are only hidden from the
// active view. Status changes go through Store.Transition, which rejects any
// move the status machine does not allow.
//
// Ids come from an IDAllocator seeded from the persisted next id, so an id is
// never handed out twice even across restarts.
package order
