package kademlia

// lookup.go: the iterative lookup algorithm — the core of
// Kademlia. A lookup proceeds over a shortlist of up to k contacts
// closest to the target seen so far, probing alpha of them in parallel
// per round, merging newly discovered contacts, and converging once a
// fruitless round finds nothing left worth querying.

import (
	"context"
	"sort"
	"sync"
)

// maxLookupRounds bounds pathological loops.
const maxLookupRounds = 20

// lookupResult is what an iterative lookup produces: for FIND_NODE, the
// converged shortlist; for FIND_VALUE, either a value (plus the contact
// that returned it, for the optional caching step) or not-found.
type lookupResult struct {
	closest []Contact
	value   string
	found   bool
	source  Contact
}

// shortlistState is the in-flight lookup state: target,
// shortlist ordered by distance, and the queried/dead bookkeeping that
// keeps a contact from being re-probed. Guarded by mu so round barriers
// (which wait for all of a round's goroutines before the caller reads
// back best()/allTopProbed()) observe merges atomically.
type shortlistState struct {
	mu       sync.Mutex
	target   *ID
	contacts []Contact
	queried  map[ID]bool
	dead     map[ID]bool
}

func newShortlistState(target *ID, seed []Contact) *shortlistState {
	s := &shortlistState{
		target:   target,
		contacts: append([]Contact(nil), seed...),
		queried:  make(map[ID]bool),
		dead:     make(map[ID]bool),
	}
	s.sortAndTruncateLocked()
	return s
}

func (s *shortlistState) sortAndTruncateLocked() {
	for i := range s.contacts {
		s.contacts[i].CalcDistance(s.target)
	}
	sort.SliceStable(s.contacts, func(i, j int) bool {
		return s.contacts[i].distance.Less(s.contacts[j].distance)
	})
	if len(s.contacts) > bucketSize {
		s.contacts = s.contacts[:bucketSize]
	}
}

// merge folds newly discovered contacts into the shortlist, deduplicating
// by ID and excluding self, then re-sorts and truncates to k.
func (s *shortlistState) merge(self *ID, discovered []Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[ID]bool, len(s.contacts))
	for _, c := range s.contacts {
		seen[*c.ID] = true
	}
	for _, c := range discovered {
		if c.ID == nil || c.ID.Equals(self) || seen[*c.ID] {
			continue
		}
		seen[*c.ID] = true
		s.contacts = append(s.contacts, c)
	}
	s.sortAndTruncateLocked()
}

func (s *shortlistState) markQueried(id *ID) {
	s.mu.Lock()
	s.queried[*id] = true
	s.mu.Unlock()
}

func (s *shortlistState) markDead(id *ID) {
	s.mu.Lock()
	s.dead[*id] = true
	for i, c := range s.contacts {
		if c.ID.Equals(id) {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// best returns the closest contact currently in the shortlist, if any.
func (s *shortlistState) best() (Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.contacts) == 0 {
		return Contact{}, false
	}
	return s.contacts[0], true
}

// topUnprobed returns up to n contacts from the top-k that have been
// neither queried nor marked dead.
func (s *shortlistState) topUnprobed(n int) []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Contact, 0, n)
	for _, c := range s.contacts {
		if len(out) >= n {
			break
		}
		if s.queried[*c.ID] || s.dead[*c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// allTopProbed reports whether every contact currently in the top-k has
// been queried or marked dead (the convergence condition).
func (s *shortlistState) allTopProbed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if !s.queried[*c.ID] && !s.dead[*c.ID] {
			return false
		}
	}
	return true
}

func (s *shortlistState) snapshot() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Contact(nil), s.contacts...)
}

// roundOutcome is what one barrier-synchronized round of probes produces.
type roundOutcome struct {
	found bool
	value string
	from  Contact
}

// runRound probes every contact in batch concurrently, folding each
// response into state. If findValue is set and any probe turns up a
// value, the round's context is cancelled so siblings stop mattering
// (their late responses are discarded by rpc.deliver once this round's
// per-request cleanup has already run).
func (n *Node) runRound(target *ID, key string, findValue bool, state *shortlistState, batch []Contact) roundOutcome {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	outcome := roundOutcome{}

	for _, peer := range batch {
		peer := peer
		state.markQueried(peer.ID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.probe(ctx, state, peer, target, key, findValue, &mu, &outcome, cancel)
		}()
	}
	wg.Wait()
	return outcome
}

// probe issues one FIND_NODE or FIND_VALUE RPC to peer and folds the
// result back into state. key is the literal lookup key, sent as-is on
// the wire for FIND_VALUE; target is its hash, used only for distance.
func (n *Node) probe(ctx context.Context, state *shortlistState, peer Contact, target *ID, key string, findValue bool, mu *sync.Mutex, outcome *roundOutcome, cancel context.CancelFunc) {
	if findValue {
		resp, contacts, value, ok, err := n.sendFindValue(ctx, peer, key)
		if err != nil {
			state.markDead(peer.ID)
			return
		}
		n.routingTable.Insert(resp)
		if ok {
			mu.Lock()
			if !outcome.found {
				outcome.found = true
				outcome.value = value
				outcome.from = resp
			}
			mu.Unlock()
			cancel()
			return
		}
		state.merge(n.me.ID, contacts)
		return
	}

	resp, contacts, err := n.sendFindNode(ctx, peer, target)
	if err != nil {
		state.markDead(peer.ID)
		return
	}
	n.routingTable.Insert(resp)
	state.merge(n.me.ID, contacts)
}

// lookup runs the iterative algorithm for target, the hashed distance
// metric. key is the literal lookup key and is only meaningful (sent on
// the wire) when findValue selects FIND_VALUE probes (early exit on the
// first value found) over FIND_NODE probes. Empty shortlist returns
// immediately.
func (n *Node) lookup(target *ID, key string, findValue bool) lookupResult {
	seed := n.routingTable.FindClosestContacts(target, bucketSize)
	if len(seed) == 0 {
		return lookupResult{}
	}
	state := newShortlistState(target, seed)

	widened := false
	rounds := 0
	for round := 0; round < maxLookupRounds; round++ {
		batch := state.topUnprobed(alpha)
		if len(batch) == 0 {
			break
		}

		bestBefore, hadBest := state.best()
		outcome := n.runRound(target, key, findValue, state, batch)
		rounds = round + 1

		if outcome.found {
			n.observeRounds(round + 1)
			return lookupResult{value: outcome.value, found: true, source: outcome.from, closest: state.snapshot()}
		}

		bestAfter, hasAfter := state.best()
		fruitful := hasAfter && (!hadBest || bestAfter.ID.Xor(target).Less(bestBefore.ID.Xor(target)))
		if fruitful {
			continue
		}

		if state.allTopProbed() || widened {
			break
		}

		// Fruitless round, but unqueried top-k members remain: widen to a
		// final sweep across all of them, then converge regardless.
		widened = true
		remaining := state.topUnprobed(bucketSize)
		if len(remaining) == 0 {
			break
		}
		finalOutcome := n.runRound(target, key, findValue, state, remaining)
		rounds = round + 2
		if finalOutcome.found {
			n.observeRounds(rounds)
			return lookupResult{value: finalOutcome.value, found: true, source: finalOutcome.from, closest: state.snapshot()}
		}
		break
	}

	n.observeRounds(rounds)
	return lookupResult{closest: state.snapshot()}
}

func (n *Node) observeRounds(rounds int) {
	if n.metrics != nil {
		n.metrics.lookupRounds.Observe(float64(rounds))
	}
}
