package kademlia

import "container/list"

// bucket is an ordered sequence of at most bucketSize contacts, ordered
// least-recently-seen (back) to most-recently-seen (front). It also keeps
// a small bounded replacement cache of contacts seen while full, so a
// contact that loses a liveness race isn't simply discarded.
type bucket struct {
	list *list.List

	repl    []Contact
	replCap int
}

func newBucket() *bucket {
	return &bucket{list: list.New(), replCap: 32}
}

// add inserts or refreshes contact at the front (most-recently-seen). It
// does not apply the eviction policy — callers (RoutingTable) own that,
// since eviction requires pinging outside of any bucket lock.
func (b *bucket) add(contact Contact) {
	for e := b.list.Front(); e != nil; e = e.Next() {
		if e.Value.(Contact).ID.Equals(contact.ID) {
			b.list.MoveToFront(e)
			return
		}
	}
	if b.list.Len() < bucketSize {
		b.list.PushFront(contact)
	}
}

// contactsWithDistance returns every contact in the bucket, each with its
// scratch distance field populated relative to target.
func (b *bucket) contactsWithDistance(target *ID) []Contact {
	var contacts []Contact
	for e := b.list.Front(); e != nil; e = e.Next() {
		c := e.Value.(Contact)
		c.CalcDistance(target)
		contacts = append(contacts, c)
	}
	return contacts
}

// Len returns the number of contacts currently held.
func (b *bucket) Len() int {
	return b.list.Len()
}

// head returns the least-recently-seen contact (eviction candidate).
func (b *bucket) head() (Contact, bool) {
	e := b.list.Back()
	if e == nil {
		return Contact{}, false
	}
	return e.Value.(Contact), true
}

// tail returns the most-recently-seen contact.
func (b *bucket) tail() (Contact, bool) {
	e := b.list.Front()
	if e == nil {
		return Contact{}, false
	}
	return e.Value.(Contact), true
}

// removeByID drops the contact with the given ID, if present.
func (b *bucket) removeByID(id *ID) {
	for e := b.list.Back(); e != nil; e = e.Prev() {
		if e.Value.(Contact).ID.Equals(id) {
			b.list.Remove(e)
			return
		}
	}
}

// moveToFrontByID marks the contact with the given ID as most-recently-seen.
func (b *bucket) moveToFrontByID(id *ID) {
	for e := b.list.Back(); e != nil; e = e.Prev() {
		if e.Value.(Contact).ID.Equals(id) {
			b.list.MoveToFront(e)
			return
		}
	}
}

// contains reports whether id is present in the bucket.
func (b *bucket) contains(id *ID) bool {
	for e := b.list.Front(); e != nil; e = e.Next() {
		if e.Value.(Contact).ID.Equals(id) {
			return true
		}
	}
	return false
}

// snapshot returns all contacts in the bucket, head to tail order not
// guaranteed beyond "oldest seen last" semantics of the underlying list.
func (b *bucket) snapshot() []Contact {
	contacts := make([]Contact, 0, b.list.Len())
	for e := b.list.Front(); e != nil; e = e.Next() {
		contacts = append(contacts, e.Value.(Contact))
	}
	return contacts
}

// addReplacement appends to the bounded replacement cache, de-duplicating
// by ID and dropping the oldest entry once replCap is exceeded.
func (b *bucket) addReplacement(c Contact) {
	for i := range b.repl {
		if b.repl[i].ID.Equals(c.ID) {
			return
		}
	}
	if len(b.repl) >= b.replCap {
		copy(b.repl, b.repl[1:])
		b.repl = b.repl[:b.replCap-1]
	}
	b.repl = append(b.repl, c)
}

// popReplacement returns the most recently queued replacement candidate.
func (b *bucket) popReplacement() (Contact, bool) {
	n := len(b.repl)
	if n == 0 {
		return Contact{}, false
	}
	c := b.repl[n-1]
	b.repl = b.repl[:n-1]
	return c, true
}
