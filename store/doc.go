// Package store provides the transactional key-document store consumed by
// the finding lifecycle engine, plus the repository and directory adapters
// built on top of it.
//
// The Store interface models a generic document store: JSON documents keyed
// by collection and id, predicate queries, partial updates, and an atomic
// counter primitive. RedisStore is the production implementation; tests run
// it against miniredis.
//
// The atomic counter is the one truly contended resource in the system. It
// is mutated only through AtomicIncrement, a single round trip to the store,
// never through a read-then-write pair issued from application code.
package store
