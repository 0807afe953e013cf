package voting

import (
	"sync"

	"github.com/latticenet/node/block"
)

// ConfirmReq is a request to a peered representative to vote for (hash,
// root) — one entry of a batched confirm_req packet (spec.md §6).
type ConfirmReq struct {
	Hash block.Hash
	Root block.Hash
}

// PeeredRep is a representative known to be reachable on ChannelID, used to
// target solicitation (grounded on reptiers.Tracker's peered-rep set).
type PeeredRep struct {
	Account   block.Hash
	ChannelID string
}

// RequestSender is the transport-facing sink the solicitor flushes batched
// requests to.
type RequestSender interface {
	SendConfirmReq(channelID string, reqs []ConfirmReq)
	SendPublish(channelID string, blk block.Block)
}

// Solicitor batches confirmation requests and winner broadcasts for a
// single preparation round (spec.md §4.8, grounded on
// confirmation_solicitor.rs). Every method takes the solicitor's own lock;
// one instance is scoped to one round's fill then Flush.
type Solicitor struct {
	maxBroadcasts      int
	maxElectionRequests int
	maxElectionBroadcasts int

	mu                 sync.Mutex
	reps               []PeeredRep
	requests           map[string][]ConfirmReq
	broadcasted        int
	electionBroadcasts map[block.Hash]int
}

// NewSolicitor configures fanout caps. maxBroadcasts is the process-wide
// cap on direct winner broadcasts per round (confirmation_solicitor.rs:
// "30 on live networks, 4 on dev networks"); maxElectionBroadcasts caps
// winner broadcasts per election. maxElectionRequests caps how many
// confirm_req entries one channel accumulates in a round, summed over all
// elections; requests are not counted per election.
func NewSolicitor(maxBroadcasts, maxElectionRequests, maxElectionBroadcasts int) *Solicitor {
	return &Solicitor{
		maxBroadcasts:         maxBroadcasts,
		maxElectionRequests:   maxElectionRequests,
		maxElectionBroadcasts: maxElectionBroadcasts,
		requests:              make(map[string][]ConfirmReq),
	}
}

// Prepare resets the round's accumulator with the current peered-rep set.
func (s *Solicitor) Prepare(reps []PeeredRep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reps = reps
	s.requests = make(map[string][]ConfirmReq)
	s.broadcasted = 0
	s.electionBroadcasts = make(map[block.Hash]int)
}

// Broadcast queues the winner of an election for direct publish to every
// peered rep, up to maxBroadcasts total for the round and
// maxElectionBroadcasts for that one election. Returns false once either
// budget is exhausted.
func (s *Solicitor) Broadcast(electionRoot block.Hash, winner block.Block, sender RequestSender) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broadcasted >= s.maxBroadcasts {
		return false
	}
	if s.electionBroadcasts[electionRoot] >= s.maxElectionBroadcasts {
		return false
	}
	s.broadcasted++
	s.electionBroadcasts[electionRoot]++
	for _, rep := range s.reps {
		sender.SendPublish(rep.ChannelID, winner)
	}
	return true
}

// AddRequest queues a confirm_req for hash/root to every peered rep,
// bundling per-channel, unless that channel has already reached
// maxElectionRequests entries for this round.
func (s *Solicitor) AddRequest(hash, root block.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rep := range s.reps {
		bucket := s.requests[rep.ChannelID]
		if len(bucket) >= s.maxElectionRequests {
			continue
		}
		s.requests[rep.ChannelID] = append(bucket, ConfirmReq{Hash: hash, Root: root})
	}
}

// Flush sends every accumulated per-channel confirm_req batch.
func (s *Solicitor) Flush(sender RequestSender) {
	s.mu.Lock()
	batches := s.requests
	s.requests = make(map[string][]ConfirmReq)
	s.mu.Unlock()
	for channelID, reqs := range batches {
		sender.SendConfirmReq(channelID, reqs)
	}
}
