package kademlia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContact_Equals(t *testing.T) {
	a := NewContact(NewID("1111111111111111111111111111111111111111"), "127.0.0.1:9000")
	b := NewContact(NewID("1111111111111111111111111111111111111111"), "127.0.0.1:9999")
	c := NewContact(NewID("2222222222222222222222222222222222222222"), "127.0.0.1:9000")

	assert.True(t, a.Equals(b), "identity is by ID alone, address may change")
	assert.False(t, a.Equals(c))
}

func TestContactCandidates_SortTruncate(t *testing.T) {
	target := NewID("0000000000000000000000000000000000000000")

	far := NewContact(NewID("ffffffffffffffffffffffffffffffffffffffff"), "a")
	near := NewContact(NewID("0000000000000000000000000000000000000001"), "b")
	mid := NewContact(NewID("0000000000000000000000000f00000000000000"), "c")

	var cc ContactCandidates
	for _, c := range []Contact{far, near, mid} {
		c.CalcDistance(target)
		cc.Append([]Contact{c})
	}
	cc.Sort()

	got := cc.GetContacts(2)
	assert.Len(t, got, 2)
	assert.Equal(t, near.ID.String(), got[0].ID.String())
	assert.Equal(t, mid.ID.String(), got[1].ID.String())
}
