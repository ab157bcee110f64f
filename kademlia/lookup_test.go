package kademlia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_EmptyRoutingTableReturnsEmpty(t *testing.T) {
	n := newTestNode(t)
	result := n.lookup(NewRandomID(), "", false)
	assert.False(t, result.found)
	assert.Empty(t, result.closest)
}

func TestLookup_ConvergesAcrossLiveNetwork(t *testing.T) {
	nodes := make([]*Node, 5)
	for i := range nodes {
		nodes[i] = newTestNode(t)
	}
	for i := 1; i < len(nodes); i++ {
		require.NoError(t, nodes[i].Bootstrap(nodes[0].LocalAddr()))
	}
	// One extra round so every node learns about its peers, not just node 0.
	for _, n := range nodes {
		n.lookup(n.Me().ID, "", false)
	}

	target := nodes[3].Me().ID
	result := nodes[1].lookup(target, "", false)
	assert.False(t, result.found, "FIND_NODE lookups never set found")
	assert.NotEmpty(t, result.closest)

	found := false
	for _, c := range result.closest {
		if c.ID.Equals(target) {
			found = true
			break
		}
	}
	assert.True(t, found, "the target itself should surface in its own closest set in a 5-node network")
}

func TestLookup_SkipsDeadPeers(t *testing.T) {
	a := newTestNode(t)
	b := newTestNode(t)
	require.NoError(t, b.Bootstrap(a.LocalAddr()))

	// Seed a's routing table with a contact that will never answer.
	dead := NewContact(NewRandomID(), "127.0.0.1:1")
	a.routingTable.Insert(dead)

	result := b.lookup(a.Me().ID, "", false)
	assert.NotEmpty(t, result.closest)
	for _, c := range result.closest {
		assert.NotEqual(t, dead.Address, c.Address, "a dead contact discovered mid-lookup must not linger in the final result")
	}
}

func TestShortlistState_MergeDedupsAndExcludesSelf(t *testing.T) {
	self := NewRandomID()
	target := NewRandomID()
	seedID := NewRandomID()
	seed := []Contact{NewContact(seedID, "seed:1")}
	state := newShortlistState(target, seed)

	dup := NewContact(seedID, "seed:1")
	selfContact := NewContact(self, "self:1")
	fresh := NewContact(NewRandomID(), "fresh:1")

	state.merge(self, []Contact{dup, selfContact, fresh})

	snap := state.snapshot()
	assert.Len(t, snap, 2, "duplicate and self must not appear")
}

func TestShortlistState_MarkDeadRemovesFromShortlist(t *testing.T) {
	target := NewRandomID()
	id := NewRandomID()
	state := newShortlistState(target, []Contact{NewContact(id, "x:1")})

	state.markDead(id)
	assert.Empty(t, state.snapshot())
}

func TestShortlistState_AllTopProbed(t *testing.T) {
	target := NewRandomID()
	id := NewRandomID()
	state := newShortlistState(target, []Contact{NewContact(id, "x:1")})

	assert.False(t, state.allTopProbed())
	state.markQueried(id)
	assert.True(t, state.allTopProbed())
}
