// Package nodeconfig holds the single ambient Config struct wired through
// cmd/latticenode, generalized from the teacher's node/config.go
// (network/data-dir/bind-addr/peers/log-level) plus the consensus-tuning
// knobs this ledger's components need that the teacher's UTXO node never
// had (quorum delta, cementation batch target, pruning depth, rate
// limits).
package nodeconfig

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Network  string   `json:"network"`
	DataDir  string   `json:"data_dir"`
	BindAddr string   `json:"bind_addr"`
	LogLevel string   `json:"log_level"`
	Peers    []string `json:"peers"`
	MaxPeers int      `json:"max_peers"`

	// Consensus tuning (spec.md §4.5, §4.9, §4.13, §4.14).
	QuorumDeltaPercent   uint64        `json:"quorum_delta_percent"`
	ElectionExpiry       time.Duration `json:"election_expiry"`
	CementationTarget    time.Duration `json:"cementation_target"`
	BacklogBatchSize     int           `json:"backlog_batch_size"`
	BacklogFrequency     int           `json:"backlog_frequency"`
	MaxPruningDepth      uint64        `json:"max_pruning_depth"`
	InboundVoteRateLimit uint64        `json:"inbound_vote_rate_limit"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".latticenode"
	}
	return filepath.Join(home, ".latticenode")
}

func DefaultConfig() Config {
	return Config{
		Network:  "devnet",
		DataDir:  DefaultDataDir(),
		BindAddr: "0.0.0.0:7075",
		Peers:    nil,
		LogLevel: "info",
		MaxPeers: 64,

		QuorumDeltaPercent:   67,
		ElectionExpiry:       5 * time.Minute,
		CementationTarget:    250 * time.Millisecond,
		BacklogBatchSize:     10_000,
		BacklogFrequency:     10,
		MaxPruningDepth:      0,
		InboundVoteRateLimit: 10_000,
	}
}

func NormalizePeers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		for _, p := range strings.Split(token, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if err := validateAddr(cfg.BindAddr); err != nil {
		return fmt.Errorf("invalid bind_addr: %w", err)
	}
	for _, peer := range cfg.Peers {
		if err := validatePeerAddr(peer); err != nil {
			return fmt.Errorf("invalid peer %q: %w", peer, err)
		}
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPeers <= 0 || cfg.MaxPeers > 4096 {
		return errors.New("max_peers must be in (0, 4096]")
	}
	if cfg.QuorumDeltaPercent == 0 || cfg.QuorumDeltaPercent > 100 {
		return errors.New("quorum_delta_percent must be in (0, 100]")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}

func validatePeerAddr(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(addr)
	if strings.TrimSpace(host) == "" {
		return errors.New("missing host")
	}
	return nil
}
