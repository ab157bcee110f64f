package kademlia

// rpc.go: request/response correlation. Every request carries a fresh
// request_id; responses echo it, so replies can arrive out of order
// without racing two lookups that happen to query the same peer at
// once — a request_id keys the pending table rather than the peer's
// address, which a sender-address scheme could not distinguish.

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rpcTimeout is T_rpc: how long a requester waits for a correlated
// response before treating the peer as unreachable.
const rpcTimeout = 2 * time.Second

type rpc struct {
	transport *Transport
	metrics   *metrics

	mu       sync.Mutex
	inflight map[string]chan message
}

func newRPC(t *Transport, m *metrics) *rpc {
	return &rpc{transport: t, metrics: m, inflight: make(map[string]chan message)}
}

// register allocates a response channel for requestID and returns a
// cleanup func that must be deferred by the caller.
func (r *rpc) register(requestID string) (chan message, func()) {
	ch := make(chan message, 1)
	r.mu.Lock()
	r.inflight[requestID] = ch
	r.mu.Unlock()
	return ch, func() {
		r.mu.Lock()
		delete(r.inflight, requestID)
		r.mu.Unlock()
	}
}

// deliver routes an inbound response to its waiting requester, if any.
// Late responses for requests that already gave up (deregistered, or a
// lookup that cancelled cooperatively) are discarded silently.
func (r *rpc) deliver(m message) {
	r.mu.Lock()
	ch := r.inflight[m.RequestID]
	r.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- m:
	default:
	}
}

// request sends m to addr and blocks for a correlated response or ctx's
// deadline/cancellation, whichever comes first.
func (r *rpc) request(ctx context.Context, addr string, m message, kind string) (message, error) {
	ch, cleanup := r.register(m.RequestID)
	defer cleanup()

	if err := r.transport.sendTo(addr, m); err != nil {
		return message{}, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		if r.metrics != nil {
			r.metrics.rpcTimeouts.WithLabelValues(kind).Inc()
		}
		return message{}, ctx.Err()
	}
}

// requestWithTimeout is the common case: a fresh bounded-deadline context.
func (r *rpc) requestWithTimeout(addr string, m message, timeout time.Duration, kind string) (message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return r.request(ctx, addr, m, kind)
}

// fireAndForget sends m without waiting for any reply — used for STORE,
// which has no response in this protocol.
func (r *rpc) fireAndForget(addr string, m message) error {
	if addr == "" {
		return fmt.Errorf("kademlia: empty address")
	}
	return r.transport.sendTo(addr, m)
}
