package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/figbridge/internal/ir"
)

// Endpoint is the peer's view of a relay: fetch one command, post one result.
type Endpoint interface {
	Fetch(ctx context.Context) (ir.Envelope, bool, error)
	Post(ctx context.Context, res ir.Result) error
}

// Responder decides the peer's answer to one command.
type Responder func(cmd ir.Envelope) ir.Result

// Peer is a simulated remote plugin. It polls an Endpoint, records every
// command it receives in wire form, and answers through a Responder.
type Peer struct {
	endpoint Endpoint
	respond  Responder
	interval time.Duration

	mu       sync.Mutex
	received []ir.Envelope
	errs     []error
}

// NewPeer creates a peer that polls every 2ms.
func NewPeer(endpoint Endpoint, respond Responder) *Peer {
	return &Peer{endpoint: endpoint, respond: respond, interval: 2 * time.Millisecond}
}

// Run polls until ctx is done.
func (p *Peer) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cmd, ok, err := p.endpoint.Fetch(ctx)
		if err != nil {
			p.recordErr(err)
			continue
		}
		if !ok {
			continue
		}

		p.mu.Lock()
		p.received = append(p.received, cmd)
		p.mu.Unlock()

		if p.respond == nil {
			continue
		}
		res := p.respond(cmd)
		if err := p.endpoint.Post(ctx, res); err != nil {
			p.recordErr(err)
		}
	}
}

// Start runs the peer in a goroutine and returns a stop function that waits
// for it to exit.
func (p *Peer) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Received returns a copy of every command fetched so far, in order.
func (p *Peer) Received() []ir.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ir.Envelope, len(p.received))
	copy(out, p.received)
	return out
}

// Errors returns transport errors seen while polling (ctx cancellation
// excluded).
func (p *Peer) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.errs))
	copy(out, p.errs)
	return out
}

func (p *Peer) recordErr(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// Scripted answers commands with the given results in order, copying each
// command's id into its result. Commands beyond the script get ok=false.
func Scripted(results ...ir.Result) Responder {
	var mu sync.Mutex
	idx := 0
	return func(cmd ir.Envelope) ir.Result {
		mu.Lock()
		defer mu.Unlock()
		if idx >= len(results) {
			return ir.Result{ID: cmd.ID, OK: false, Error: "no scripted result"}
		}
		res := results[idx]
		idx++
		res.ID = cmd.ID
		return res
	}
}

// NodeIDs answers every command ok with sequential node ids "1:1", "1:2", ...
func NodeIDs() Responder {
	var mu sync.Mutex
	n := 0
	return func(cmd ir.Envelope) ir.Result {
		mu.Lock()
		defer mu.Unlock()
		n++
		return ir.Result{ID: cmd.ID, OK: true, Result: map[string]any{"nodeId": fmt.Sprintf("1:%d", n)}}
	}
}

// Poller is the subset of a relay a DirectEndpoint needs.
type Poller interface {
	Next() (ir.Command, bool)
	PostResult(ir.Result) error
}

// DirectEndpoint talks to a relay in-process. Commands are passed through
// JSON so the peer sees exactly what the wire would carry.
type DirectEndpoint struct {
	Relay Poller
}

// Fetch pops the next command.
func (e DirectEndpoint) Fetch(context.Context) (ir.Envelope, bool, error) {
	cmd, ok := e.Relay.Next()
	if !ok {
		return ir.Envelope{}, false, nil
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return ir.Envelope{}, false, err
	}
	var env ir.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ir.Envelope{}, false, err
	}
	return env, true, nil
}

// Post delivers a result.
func (e DirectEndpoint) Post(_ context.Context, res ir.Result) error {
	return e.Relay.PostResult(res)
}

// HTTPEndpoint talks to a transport server over HTTP.
type HTTPEndpoint struct {
	BaseURL string
	Client  *http.Client
}

func (e HTTPEndpoint) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

// Fetch performs GET /next.
func (e HTTPEndpoint) Fetch(ctx context.Context) (ir.Envelope, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.BaseURL+"/next", nil)
	if err != nil {
		return ir.Envelope{}, false, err
	}
	resp, err := e.client().Do(req)
	if err != nil {
		return ir.Envelope{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return ir.Envelope{}, false, nil
	case http.StatusOK:
		var env ir.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return ir.Envelope{}, false, fmt.Errorf("decode command: %w", err)
		}
		return env, true, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return ir.Envelope{}, false, fmt.Errorf("GET /next: %d %s", resp.StatusCode, body)
	}
}

// Post performs POST /result.
func (e HTTPEndpoint) Post(ctx context.Context, res ir.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/result", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("POST /result: %d", resp.StatusCode)
	}
	return nil
}
