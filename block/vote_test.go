package block

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoteRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, MaxVoteHashes} {
		n := n
		v := Vote{Timestamp: 0x10}
		for i := 0; i < n; i++ {
			var h Hash
			h[0] = byte(i)
			h[1] = byte(i >> 8)
			v.Hashes = append(v.Hashes, h)
		}
		enc, err := EncodeVote(v)
		require.NoError(t, err)
		dec, err := DecodeVote(enc)
		require.NoError(t, err)
		require.Equal(t, v.Account, dec.Account)
		require.Equal(t, v.Timestamp, dec.Timestamp)
		require.Equal(t, v.Hashes, dec.Hashes)
	}
}

func TestVoteTooManyHashesRejected(t *testing.T) {
	v := Vote{Hashes: make([]Hash, MaxVoteHashes+1)}
	_, err := EncodeVote(v)
	require.Error(t, err)
}

func TestVoteFinalSentinel(t *testing.T) {
	v := Vote{Timestamp: FinalTimestamp}
	require.True(t, v.IsFinal())

	v2 := Vote{Timestamp: 0x23}
	require.False(t, v2.IsFinal())
	require.Equal(t, uint8(0x3), v2.DurationExponent())
}

func TestVoteSigningDigestDeterministic(t *testing.T) {
	v := Vote{Timestamp: 7, Hashes: []Hash{{1}, {2}}}
	d1 := v.SigningDigest()
	d2 := v.SigningDigest()
	require.Equal(t, d1, d2)

	v2 := v
	v2.Timestamp = 8
	require.NotEqual(t, d1, v2.SigningDigest())
}
