package votecache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
)

func TestCacheInsertAndTake(t *testing.T) {
	c := NewCache(2)
	h := block.Hash{1}
	voter := block.Hash{2}
	c.Insert(h, CachedVote{Voter: voter, Timestamp: 1})

	votes, found := c.Take(h)
	require.True(t, found)
	require.Len(t, votes, 1)

	_, found = c.Take(h)
	require.False(t, found, "Take should consume the entry")
}

func TestCacheUpdatesNewerVoteForSameVoter(t *testing.T) {
	c := NewCache(4)
	h := block.Hash{1}
	voter := block.Hash{2}
	c.Insert(h, CachedVote{Voter: voter, Timestamp: 1})
	c.Insert(h, CachedVote{Voter: voter, Timestamp: 5})

	votes, _ := c.Take(h)
	require.Len(t, votes, 1)
	require.Equal(t, uint64(5), votes[0].Timestamp)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	h1, h2, h3 := block.Hash{1}, block.Hash{2}, block.Hash{3}
	c.Insert(h1, CachedVote{Voter: block.Hash{9}, Timestamp: 1})
	c.Insert(h2, CachedVote{Voter: block.Hash{9}, Timestamp: 1})
	c.Insert(h3, CachedVote{Voter: block.Hash{9}, Timestamp: 1})

	require.Equal(t, 2, c.Len())
	_, found := c.Take(h1)
	require.False(t, found, "h1 should have been evicted as least recently used")
}

func TestRecentlyConfirmedEvictsOldest(t *testing.T) {
	rc := NewRecentlyConfirmed(2)
	rc.Insert(RootHash{Root: block.Hash{1}, Hash: block.Hash{1}})
	rc.Insert(RootHash{Root: block.Hash{2}, Hash: block.Hash{2}})
	rc.Insert(RootHash{Root: block.Hash{3}, Hash: block.Hash{3}})

	require.False(t, rc.HashExists(block.Hash{1}))
	require.True(t, rc.HashExists(block.Hash{2}))
	require.True(t, rc.HashExists(block.Hash{3}))
}
