package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/figbridge/internal/ir"
)

// DefaultLivenessWindow is how recent the peer's last poll must be for the
// peer to count as connected.
const DefaultLivenessWindow = 2500 * time.Millisecond

// peerPollInterval is how often WaitForPeer re-checks liveness.
const peerPollInterval = 200 * time.Millisecond

// Relay hands commands to one remote peer and routes its results back to the
// blocked callers.
//
// A Relay is created once per hosting process and shared by reference between
// the transport (which calls Next and PostResult on behalf of the peer) and
// the executor (which calls Dispatch).
type Relay struct {
	mu       sync.Mutex
	queue    *commandQueue
	waiters  map[string]chan ir.Result
	orphans  map[string]orphan
	lastPoll time.Time

	ids    IDGenerator
	now    func() time.Time
	logger *slog.Logger
}

// orphan is a result nobody was waiting for when it arrived.
type orphan struct {
	result  ir.Result
	arrived time.Time
}

// Option configures a Relay.
type Option func(*Relay)

// WithIDGenerator overrides the command id generator (default UUIDGenerator).
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Relay) { r.ids = g }
}

// WithClock overrides the wall clock used for liveness and orphan ages.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// WithLogger sets the relay's logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// New creates an empty relay.
func New(opts ...Option) *Relay {
	r := &Relay{
		queue:   newCommandQueue(),
		waiters: make(map[string]chan ir.Result),
		orphans: make(map[string]orphan),
		ids:     UUIDGenerator{},
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch enqueues a command with a fresh id and blocks until the peer posts
// its result, timeout elapses, or ctx is done.
//
// The mutex is held only while registering the waiter and enqueuing; the wait
// itself is lock-free so Next and PostResult proceed concurrently. On timeout
// the command stays queued and a late result becomes an orphan; no other
// relay state changes.
func (r *Relay) Dispatch(ctx context.Context, kind ir.Kind, args ir.Args, timeout time.Duration) (ir.Result, error) {
	if timeout <= 0 {
		return ir.Result{}, fmt.Errorf("relay: dispatch timeout must be positive, got %s", timeout)
	}

	id := r.ids.Generate()
	ch := make(chan ir.Result, 1)

	r.mu.Lock()
	if _, inFlight := r.waiters[id]; inFlight {
		r.mu.Unlock()
		return ir.Result{}, &RelayError{Code: ErrCodeDuplicateID, Message: "command id already in flight", CommandID: id, Kind: kind}
	}
	r.waiters[id] = ch
	r.queue.push(ir.Command{ID: id, Kind: kind, Args: args})
	pending := r.queue.len()
	r.mu.Unlock()

	r.logger.Debug("command queued", "id", id, "kind", kind, "pending", pending)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res, nil
	case <-timer.C:
		if res, ok := r.abandon(id, ch); ok {
			return res, nil
		}
		return ir.Result{}, NewTimeoutError(id, kind, timeout)
	case <-ctx.Done():
		if res, ok := r.abandon(id, ch); ok {
			r.storeOrphan(res)
		}
		return ir.Result{}, ctx.Err()
	}
}

// abandon deregisters a waiter. A result that raced in between the wakeup
// and the deregistration is returned instead of being lost.
func (r *Relay) abandon(id string, ch chan ir.Result) (ir.Result, bool) {
	r.mu.Lock()
	delete(r.waiters, id)
	r.mu.Unlock()

	select {
	case res := <-ch:
		return res, true
	default:
		return ir.Result{}, false
	}
}

// Next records a poll and pops the oldest queued command. It never blocks.
func (r *Relay) Next() (ir.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastPoll = r.now()
	return r.queue.pop()
}

// PostResult hands a result to the caller waiting on its id. Results for ids
// nobody is waiting on are kept as orphans. It never blocks.
func (r *Relay) PostResult(res ir.Result) error {
	if strings.TrimSpace(res.ID) == "" {
		return &RelayError{Code: ErrCodeMissingID, Message: "result has no id"}
	}

	r.mu.Lock()
	ch, ok := r.waiters[res.ID]
	if ok {
		delete(r.waiters, res.ID)
		// Buffered with capacity 1 and removed from the table under the
		// mutex, so this send happens at most once and never blocks.
		ch <- res
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("result for command nobody is waiting on", "id", res.ID, "ok", res.OK)
		r.storeOrphan(res)
	}
	return nil
}

func (r *Relay) storeOrphan(res ir.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphans[res.ID] = orphan{result: res, arrived: r.now()}
}

// IsLive reports whether the peer polled within window.
// A relay that has never been polled is not live.
func (r *Relay) IsLive(window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastPoll.IsZero() {
		return false
	}
	return r.now().Sub(r.lastPoll) < window
}

// LastPoll returns the instant of the most recent poll (zero if none).
func (r *Relay) LastPoll() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPoll
}

// WaitForPeer blocks until the peer is live or wait elapses.
func (r *Relay) WaitForPeer(ctx context.Context, wait, window time.Duration) error {
	if r.IsLive(window) {
		return nil
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(peerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			if r.IsLive(window) {
				return nil
			}
			return NewPeerNotConnectedError(wait)
		case <-ticker.C:
			if r.IsLive(window) {
				return nil
			}
		}
	}
}

// Pending returns the number of commands not yet fetched by the peer.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.len()
}

// Waiting returns the number of callers blocked in Dispatch.
func (r *Relay) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// Orphans returns the number of unread results held for reaping.
func (r *Relay) Orphans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orphans)
}
