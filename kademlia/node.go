package kademlia

// node.go: the node façade. Binds one local Contact, one
// RoutingTable, one Transport/rpc pair, one Storage handle, and exposes
// the public operations: Ping, Store, FindValue, Bootstrap, Close. The
// receive loop is started by NewNode and runs until Close.

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Node is a single Kademlia participant.
type Node struct {
	me           Contact
	routingTable *RoutingTable
	transport    *Transport
	rpc          *rpc
	storage      Storage
	metrics      *metrics

	// originKeys tracks keys this node originated via Store(), so the
	// republisher only re-announces what it is responsible for.
	originMu   sync.RWMutex
	originKeys map[string]string // key -> value

	republishInterval time.Duration
	republishStop     chan struct{}
	republishDone     chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewNode binds a node to ip:port under identity me, using storage for
// persistence. If storage is nil, an in-memory store is used.
func NewNode(me Contact, ip string, port int, storage Storage) (*Node, error) {
	m := newMetrics(me.ID.String())
	transport, err := bindTransport(ip, port, m)
	if err != nil {
		return nil, err
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	n := &Node{
		me:                me,
		routingTable:      NewRoutingTable(me),
		transport:         transport,
		rpc:               newRPC(transport, m),
		storage:           storage,
		metrics:           m,
		originKeys:        make(map[string]string),
		republishInterval: 15 * time.Minute,
		republishStop:     make(chan struct{}),
		republishDone:     make(chan struct{}),
	}
	n.routingTable.SetPingFunc(func(c Contact) bool { return n.Ping(c.Address) })

	go transport.receiveLoop(n.onMessage)
	go n.republisher()

	log().WithFields(map[string]interface{}{"id": me.ID.String(), "addr": transport.LocalAddr().String()}).Info("node started")
	return n, nil
}

// Close shuts the node down: stops the republisher and the transport's
// receive loop, and abandons any in-flight lookups (their pending
// requests simply time out). Safe to call more than once.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		close(n.republishStop)
		<-n.republishDone
		n.closeErr = n.transport.close()
	})
	return n.closeErr
}

// LocalAddr returns the node's bound UDP address.
func (n *Node) LocalAddr() string {
	return n.transport.LocalAddr().String()
}

// Me returns the node's own contact.
func (n *Node) Me() Contact { return n.me }

// RoutingTable exposes the routing table for inspection (tests, CLI).
func (n *Node) RoutingTable() *RoutingTable { return n.routingTable }

// MetricsHandler exposes the node's Prometheus registry for scraping.
func (n *Node) MetricsHandler() http.Handler {
	return n.metrics.Handler()
}

// Ping sends a PING to addr and reports whether a PONG arrived before
// T_rpc elapses. The responder is learned into the routing table as a
// side effect of message dispatch (every inbound message's sender is
// inserted, regardless of type).
func (n *Node) Ping(addr string) bool {
	req := message{Type: msgPing, RequestID: newRequestID(), Sender: toWireContact(n.me)}
	_, err := n.rpc.requestWithTimeout(addr, req, rpcTimeout, "ping")
	return err == nil
}

// sendFindNode issues one FIND_NODE to peer for target and returns the
// responder's contact plus the contacts it returned.
func (n *Node) sendFindNode(ctx context.Context, peer Contact, target *ID) (Contact, []Contact, error) {
	req := message{
		Type:      msgFindNode,
		RequestID: newRequestID(),
		Sender:    toWireContact(n.me),
		Target:    target.String(),
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	resp, err := n.rpc.request(ctx, peer.Address, req, "find_node")
	if err != nil {
		return Contact{}, nil, err
	}
	sender, err := resp.Sender.toContact()
	if err != nil {
		return Contact{}, nil, err
	}
	contacts := make([]Contact, 0, len(resp.Nodes))
	for _, wc := range resp.Nodes {
		if c, err := wc.toContact(); err == nil {
			contacts = append(contacts, c)
		}
	}
	return sender, contacts, nil
}

// sendFindValue issues one FIND_VALUE to peer for the literal key.
func (n *Node) sendFindValue(ctx context.Context, peer Contact, key string) (Contact, []Contact, string, bool, error) {
	req := message{
		Type:      msgFindValue,
		RequestID: newRequestID(),
		Sender:    toWireContact(n.me),
		Key:       key,
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	resp, err := n.rpc.request(ctx, peer.Address, req, "find_value")
	if err != nil {
		return Contact{}, nil, "", false, err
	}
	sender, err := resp.Sender.toContact()
	if err != nil {
		return Contact{}, nil, "", false, err
	}
	if resp.HasValue {
		return sender, nil, resp.FoundVal, true, nil
	}
	contacts := make([]Contact, 0, len(resp.Nodes))
	for _, wc := range resp.Nodes {
		if c, err := wc.toContact(); err == nil {
			contacts = append(contacts, c)
		}
	}
	return sender, contacts, "", false, nil
}

// Bootstrap joins the overlay through a known peer: PING it (learning its
// real ID from the PONG), then immediately run a FIND_NODE for our own
// ID to populate the routing table with peers close to us.
func (n *Node) Bootstrap(addr string) error {
	if addr == "" {
		return nil
	}
	if !n.Ping(addr) {
		return fmt.Errorf("kademlia: bootstrap ping to %s failed", addr)
	}
	n.lookup(n.me.ID, "", false)
	return nil
}

// Store computes hash(key), performs a FIND_NODE for it, and issues
// STORE to each of the resulting k contacts. The value is also
// kept locally.
func (n *Node) Store(key, value string) error {
	if err := n.storage.Store(key, value); err != nil {
		n.metrics.storageErrors.WithLabelValues("store").Inc()
		return fmt.Errorf("kademlia: local store: %w", err)
	}
	n.originMu.Lock()
	n.originKeys[key] = value
	n.originMu.Unlock()

	n.replicate(key, value)
	return nil
}

// replicate performs the FIND_NODE + STORE fan-out shared by Store() and
// the periodic republisher.
func (n *Node) replicate(key, value string) {
	keyID := HashID(key)
	result := n.lookup(keyID, key, false)
	for _, c := range result.closest {
		if c.ID.Equals(n.me.ID) {
			continue
		}
		req := message{Type: msgStore, RequestID: newRequestID(), Sender: toWireContact(n.me), Key: key, Value: value}
		if err := n.rpc.fireAndForget(c.Address, req); err != nil {
			log().WithError(err).WithField("to", c.Address).Warn("STORE send failed")
		}
	}
}

// FindValue checks the local store first; on a miss it runs an iterative
// FIND_VALUE. On success the value is cached locally, and written through
// to the closest contact in the lookup's shortlist other than the one that
// returned it (the first one a STORE could be sent to).
func (n *Node) FindValue(key string) (string, bool, error) {
	if v, ok, err := n.storage.Get(key); err != nil {
		n.metrics.storageErrors.WithLabelValues("get").Inc()
		return "", false, fmt.Errorf("kademlia: local get: %w", err)
	} else if ok {
		return v, true, nil
	}

	keyID := HashID(key)
	result := n.lookup(keyID, key, true)
	if !result.found {
		return "", false, nil
	}

	if err := n.storage.Store(key, result.value); err != nil {
		n.metrics.storageErrors.WithLabelValues("store").Inc()
		log().WithError(err).Warn("failed to cache found value locally")
	}

	for _, c := range result.closest {
		if c.ID.Equals(n.me.ID) || c.ID.Equals(result.source.ID) {
			continue
		}
		req := message{Type: msgStore, RequestID: newRequestID(), Sender: toWireContact(n.me), Key: key, Value: result.value}
		if err := n.rpc.fireAndForget(c.Address, req); err == nil {
			break
		}
	}

	return result.value, true, nil
}

// republisher periodically re-announces self-originated keys to the
// current k-closest contacts, so peers that joined closer to the key
// after the initial Store() still receive it.
func (n *Node) republisher() {
	defer close(n.republishDone)
	ticker := time.NewTicker(n.republishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.republishOwnedKeys()
		case <-n.republishStop:
			return
		}
	}
}

func (n *Node) republishOwnedKeys() {
	n.originMu.RLock()
	snapshot := make(map[string]string, len(n.originKeys))
	for k, v := range n.originKeys {
		snapshot[k] = v
	}
	n.originMu.RUnlock()

	for key, value := range snapshot {
		n.replicate(key, value)
	}
}
