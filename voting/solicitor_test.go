package voting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/node/block"
)

type fakeSender struct {
	reqs      map[string][]ConfirmReq
	publishes map[string]int
}

func newFakeSender() *fakeSender {
	return &fakeSender{reqs: make(map[string][]ConfirmReq), publishes: make(map[string]int)}
}

func (f *fakeSender) SendConfirmReq(channelID string, reqs []ConfirmReq) {
	f.reqs[channelID] = append(f.reqs[channelID], reqs...)
}

func (f *fakeSender) SendPublish(channelID string, blk block.Block) {
	f.publishes[channelID]++
}

func TestSolicitorBundlesRequestsPerChannel(t *testing.T) {
	s := NewSolicitor(30, 50, 10)
	s.Prepare([]PeeredRep{{ChannelID: "a"}, {ChannelID: "b"}})
	s.AddRequest(block.Hash{1}, block.Hash{2})
	s.AddRequest(block.Hash{3}, block.Hash{4})

	sender := newFakeSender()
	s.Flush(sender)
	require.Len(t, sender.reqs["a"], 2)
	require.Len(t, sender.reqs["b"], 2)
}

func TestSolicitorCapsBroadcastsPerRound(t *testing.T) {
	s := NewSolicitor(1, 50, 10)
	s.Prepare([]PeeredRep{{ChannelID: "a"}})

	sender := newFakeSender()
	require.True(t, s.Broadcast(block.Hash{9}, block.Block{}, sender))
	require.False(t, s.Broadcast(block.Hash{9}, block.Block{}, sender), "round broadcast budget should be exhausted")
	require.Equal(t, 1, sender.publishes["a"])
}

func TestSolicitorCapsRequestsPerChannel(t *testing.T) {
	s := NewSolicitor(30, 1, 10)
	s.Prepare([]PeeredRep{{ChannelID: "a"}})
	s.AddRequest(block.Hash{1}, block.Hash{2})
	s.AddRequest(block.Hash{3}, block.Hash{4})

	sender := newFakeSender()
	s.Flush(sender)
	require.Len(t, sender.reqs["a"], 1)
}
