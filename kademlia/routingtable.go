package kademlia

import "sync"

// bucketSize is k: the replication and bucket-capacity parameter.
const bucketSize = 20

// alpha is the lookup concurrency parameter.
const alpha = 3

// RoutingTable holds exactly IDLength*8 k-buckets indexed by common-prefix
// length from the local ID. A coarse table-wide lock serializes all bucket
// mutation and lookup, favoring simplicity over a per-bucket lock; traffic
// at this scale never contends enough for it to matter.
type RoutingTable struct {
	me      Contact
	buckets [IDLength * 8]*bucket
	mu      sync.RWMutex

	// pingFunc is invoked outside the table lock to test the liveness of a
	// bucket's LRU contact when the eviction policy needs a decision. Wired
	// by the node façade to its own PING RPC.
	pingFunc func(Contact) bool
}

// NewRoutingTable returns a RoutingTable for the local contact me.
func NewRoutingTable(me Contact) *RoutingTable {
	rt := &RoutingTable{me: me}
	for i := range rt.buckets {
		rt.buckets[i] = newBucket()
	}
	return rt
}

// SetPingFunc wires the liveness probe used by the eviction policy.
func (rt *RoutingTable) SetPingFunc(pf func(Contact) bool) {
	rt.mu.Lock()
	rt.pingFunc = pf
	rt.mu.Unlock()
}

// bucketIndex returns cpl(rt.me.ID, id): the bucket id belongs in.
func (rt *RoutingTable) bucketIndex(id *ID) int {
	return CommonPrefixLen(rt.me.ID, id)
}

// Insert adds contact to the correct bucket, applying the eviction policy
// if that bucket is already full. A contact whose ID equals the
// local ID is rejected silently.
func (rt *RoutingTable) Insert(contact Contact) {
	if contact.ID == nil {
		return
	}
	if rt.me.ID != nil && rt.me.ID.Equals(contact.ID) {
		return
	}

	idx := rt.bucketIndex(contact.ID)

	// Phase 1: decide under lock — already present, or room to spare.
	rt.mu.Lock()
	b := rt.buckets[idx]
	if b.contains(contact.ID) {
		b.moveToFrontByID(contact.ID)
		rt.mu.Unlock()
		return
	}
	if b.Len() < bucketSize {
		b.add(contact)
		rt.mu.Unlock()
		return
	}
	lru, ok := b.head()
	rt.mu.Unlock()
	if !ok {
		return
	}

	// Phase 2: liveness check OUTSIDE the lock — this is an RPC.
	alive := false
	if rt.pingFunc != nil {
		alive = rt.pingFunc(lru)
	}

	// Phase 3: mutate based on the liveness result.
	rt.mu.Lock()
	defer rt.mu.Unlock()
	b = rt.buckets[idx]
	if !alive {
		b.removeByID(lru.ID)
		if promoted, ok := b.popReplacement(); ok {
			b.add(promoted)
			b.addReplacement(contact)
			log().WithFields(map[string]interface{}{
				"bucket": idx, "evicted": lru.Address, "promoted": promoted.Address,
			}).Info("evicted unresponsive bucket head, promoted queued replacement")
			return
		}
		b.add(contact)
		log().WithFields(map[string]interface{}{
			"bucket": idx, "evicted": lru.Address, "inserted": contact.Address,
		}).Info("evicted unresponsive bucket head")
		return
	}
	b.moveToFrontByID(lru.ID)
	b.addReplacement(contact)
}

// AddContact is an alias for Insert kept for readability at call sites
// that read like "add this contact to the table."
func (rt *RoutingTable) AddContact(contact Contact) { rt.Insert(contact) }

// FindClosestContacts returns up to count contacts closest to target by
// XOR distance, : start at bucket cpl(me,target), expand outward
// (i-1, i+1, i-2, i+2, ...) until count are collected or all buckets are
// exhausted, then sort by distance and truncate.
func (rt *RoutingTable) FindClosestContacts(target *ID, count int) []Contact {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var candidates ContactCandidates
	idx := rt.bucketIndex(target)
	candidates.Append(rt.buckets[idx].contactsWithDistance(target))

	for i := 1; (idx-i >= 0 || idx+i < IDLength*8) && candidates.Len() < count; i++ {
		if idx-i >= 0 {
			candidates.Append(rt.buckets[idx-i].contactsWithDistance(target))
		}
		if idx+i < IDLength*8 {
			candidates.Append(rt.buckets[idx+i].contactsWithDistance(target))
		}
	}

	candidates.Sort()
	if count > candidates.Len() {
		count = candidates.Len()
	}
	return candidates.GetContacts(count)
}

// Contains reports whether id is present anywhere in the table.
func (rt *RoutingTable) Contains(id *ID) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.buckets[rt.bucketIndex(id)].contains(id)
}

// Snapshot returns every contact currently known across all buckets.
func (rt *RoutingTable) Snapshot() []Contact {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	var all []Contact
	for _, b := range rt.buckets {
		all = append(all, b.snapshot()...)
	}
	return all
}
