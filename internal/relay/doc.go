// Package relay correlates commands handed to a polling remote peer with the
// results it pushes back.
//
// ARCHITECTURE:
//
// The relay owns three pieces of state behind one mutex:
//   - a FIFO queue of commands waiting to be fetched
//   - a waiter per in-flight command id (a buffered channel of size 1)
//   - the instant of the peer's most recent poll
//
// Dispatch registers a waiter, enqueues the command and blocks on the waiter
// without holding the mutex. Next and PostResult only mutate the queue and
// the waiter table, so the peer's poll loop is never stalled by a blocked
// caller. A result is delivered to exactly one waiter; results that arrive
// for an id nobody is waiting on (late answers after a timeout, duplicates)
// are kept as orphans until the reaper drops them.
//
// Ordering: commands are delivered in enqueue order. The executor enqueues
// one command at a time, so completion order matches enqueue order.
package relay
