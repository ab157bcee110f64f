package kademlia

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkContact(n byte, addr string) Contact {
	id := ID{}
	id[0] = n
	return NewContact(&id, addr)
}

func TestBucket_AddAndLen(t *testing.T) {
	b := newBucket()
	b.add(mkContact(1, "a"))
	b.add(mkContact(2, "b"))
	assert.Equal(t, 2, b.Len())
}

func TestBucket_AddRefreshesExisting(t *testing.T) {
	b := newBucket()
	b.add(mkContact(1, "a"))
	b.add(mkContact(2, "b"))
	b.add(mkContact(1, "a")) // re-seen

	assert.Equal(t, 2, b.Len(), "re-adding an existing contact must not grow the bucket")
	tail, ok := b.tail()
	require.True(t, ok)
	assert.Equal(t, byte(1), tail.ID[0], "re-seen contact moves to most-recently-seen")
}

func TestBucket_CapacityEnforced(t *testing.T) {
	b := newBucket()
	for i := 0; i < bucketSize+5; i++ {
		b.add(mkContact(byte(i), fmt.Sprintf("addr-%d", i)))
	}
	assert.Equal(t, bucketSize, b.Len())
}

func TestBucket_HeadIsLeastRecentlySeen(t *testing.T) {
	b := newBucket()
	b.add(mkContact(1, "a"))
	b.add(mkContact(2, "b"))
	b.add(mkContact(3, "c"))

	head, ok := b.head()
	require.True(t, ok)
	assert.Equal(t, byte(1), head.ID[0])

	tail, ok := b.tail()
	require.True(t, ok)
	assert.Equal(t, byte(3), tail.ID[0])
}

func TestBucket_RemoveByID(t *testing.T) {
	b := newBucket()
	b.add(mkContact(1, "a"))
	b.add(mkContact(2, "b"))
	id := ID{}
	id[0] = 1
	b.removeByID(&id)
	assert.Equal(t, 1, b.Len())
	assert.False(t, b.contains(&id))
}

func TestBucket_ReplacementCache(t *testing.T) {
	b := newBucket()
	c := mkContact(9, "repl")
	b.addReplacement(c)
	b.addReplacement(c) // dedup

	got, ok := b.popReplacement()
	require.True(t, ok)
	assert.Equal(t, c.ID.String(), got.ID.String())

	_, ok = b.popReplacement()
	assert.False(t, ok, "deduplicated replacement popped only once")
}
