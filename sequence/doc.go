// Package sequence allocates human-readable, year-scoped record numbers such
// as "HAL-2025-0007".
//
// For a fixed (prefix, year) pair, concurrent callers never receive the same
// number twice and numbers are strictly increasing. There is no contiguity
// guarantee: a failed transaction may skip a value. The increment-and-read is
// always a single atomic operation against the backing store — never a
// read-then-write pair from application code, which would race under
// concurrent creation.
//
// Two allocator backends are provided: StoreAllocator over the document
// store's atomic counter, and EtcdAllocator over an etcd compare-and-swap
// transaction.
package sequence
