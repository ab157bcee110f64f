package kademlia

import (
	"fmt"
	"sort"
)

// Contact is a (node_id, address) pair identifying a peer. Equality and
// identity are defined by ID alone — a peer that re-homes to a new address
// is still the same logical contact.
type Contact struct {
	ID      *ID
	Address string

	// distance is a scratch field populated by CalcDistance for sorting;
	// it is never serialized and never compared for equality.
	distance *ID
}

// NewContact builds a Contact from an ID and a "host:port" address.
func NewContact(id *ID, address string) Contact {
	return Contact{ID: id, Address: address}
}

// CalcDistance populates the contact's scratch distance field relative to
// target and returns it.
func (c *Contact) CalcDistance(target *ID) *ID {
	c.distance = c.ID.Xor(target)
	return c.distance
}

// Equals compares contacts by ID only, per the data model's identity rule.
func (c Contact) Equals(other Contact) bool {
	if c.ID == nil || other.ID == nil {
		return c.ID == other.ID
	}
	return c.ID.Equals(other.ID)
}

// String renders the contact for logs and CLI output.
func (c Contact) String() string {
	idStr := ""
	if c.ID != nil {
		idStr = c.ID.String()
	}
	distStr := ""
	if c.distance != nil {
		distStr = fmt.Sprintf(" distance: %s", c.distance.String())
	}
	return fmt.Sprintf("contact(%q, %q)%s", idStr, c.Address, distStr)
}

// ContactCandidates is an accumulator of Contacts with distances already
// computed, sorted ascending by that distance and truncatable. Used by
// RoutingTable.FindClosestContacts to merge several buckets' worth of
// contacts into one ranked result.
type ContactCandidates struct {
	contacts []Contact
}

// Append adds contacts to the candidate set.
func (cc *ContactCandidates) Append(contacts []Contact) {
	cc.contacts = append(cc.contacts, contacts...)
}

// GetContacts returns the first count candidates (call Sort first).
func (cc *ContactCandidates) GetContacts(count int) []Contact {
	if count > len(cc.contacts) {
		count = len(cc.contacts)
	}
	return cc.contacts[:count]
}

// Sort orders candidates by ascending distance. Ties keep their relative
// input order (stable sort) since distance.CalcDistance was already
// called against a common target.
func (cc *ContactCandidates) Sort() {
	sort.Stable(cc)
}

func (cc *ContactCandidates) Len() int {
	return len(cc.contacts)
}

func (cc *ContactCandidates) Swap(i, j int) {
	cc.contacts[i], cc.contacts[j] = cc.contacts[j], cc.contacts[i]
}

func (cc *ContactCandidates) Less(i, j int) bool {
	return cc.contacts[i].distance.Less(cc.contacts[j].distance)
}
