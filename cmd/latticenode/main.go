// Command latticenode hosts the ledger core components behind a cobra CLI,
// generalized from the teacher's cmd/rubin-node/main.go flag.FlagSet
// wiring into subcommands (run, version, dump-config, plus
// reset-confirmation-height per SPEC_FULL.md's supplemented feature),
// since the teacher's single flat flag set has no natural home for an
// operational escape-hatch subcommand.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/latticenet/node/backlog"
	"github.com/latticenet/node/block"
	"github.com/latticenet/node/cement"
	"github.com/latticenet/node/cryptosuite"
	"github.com/latticenet/node/election"
	"github.com/latticenet/node/kvstore"
	"github.com/latticenet/node/ledger"
	"github.com/latticenet/node/nodeconfig"
	"github.com/latticenet/node/prune"
	"github.com/latticenet/node/reptiers"
	"github.com/latticenet/node/scheduler"
	"github.com/latticenet/node/votecache"
	"github.com/latticenet/node/writequeue"
)

// version is set at build time via -ldflags; "dev" is the unreleased
// default.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg := nodeconfig.DefaultConfig()
	root := &cobra.Command{Use: "latticenode", SilenceUsage: true}

	root.PersistentFlags().StringVar(&cfg.Network, "network", cfg.Network, "network name (devnet/testnet/mainnet)")
	root.PersistentFlags().StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "node data directory")
	root.PersistentFlags().StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "bind address host:port")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	root.PersistentFlags().IntVar(&cfg.MaxPeers, "max-peers", cfg.MaxPeers, "max connected peers")
	var peerCSV string
	root.PersistentFlags().StringVar(&peerCSV, "peers", "", "bootstrap peers, comma-separated host:port")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newDumpConfigCmd(&cfg, &peerCSV))
	root.AddCommand(newRunCmd(&cfg, &peerCSV))
	root.AddCommand(newResetConfirmationHeightCmd(&cfg, &peerCSV))

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use: "version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func finalize(cfg *nodeconfig.Config, peerCSV *string) error {
	cfg.Peers = nodeconfig.NormalizePeers(*peerCSV)
	return nodeconfig.Validate(*cfg)
}

func newDumpConfigCmd(cfg *nodeconfig.Config, peerCSV *string) *cobra.Command {
	return &cobra.Command{
		Use: "dump-config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finalize(cfg, peerCSV); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}

// components bundles everything run and reset-confirmation-height both
// need opened against the same store.
type components struct {
	store   *kvstore.Store
	ledger  *ledger.Ledger
	queue   *writequeue.Queue
	cement  *cement.Cementor
	reps    *reptiers.Tracker
	router  *election.Router
	sched   *scheduler.Scheduler
	backlog *backlog.Populator
	pruner  *prune.Pruner
	logger  *zap.Logger
}

// routerAdmitter satisfies scheduler.Admitter by spinning up an election
// and connecting it into the vote router under the block's hash.
type routerAdmitter struct {
	router  *election.Router
	weights election.WeightSource
	onConfirmed func(root, winner block.Hash)
}

func (a *routerAdmitter) Admit(root, hash block.Hash, blk block.Block, behavior election.Behavior) bool {
	e := election.New(root, hash, blk, behavior, a.weights, func(winner block.Hash) {
		a.router.DisconnectElection(e)
		if a.onConfirmed != nil {
			a.onConfirmed(root, winner)
		}
	})
	a.router.Connect(hash, e)
	e.Activate()
	return true
}

var _ scheduler.Admitter = (*routerAdmitter)(nil)

func openComponents(cfg nodeconfig.Config) (*components, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("datadir create failed: %w", err)
	}
	store, err := kvstore.Open(filepath.Join(cfg.DataDir, "data.ldb"))
	if err != nil {
		return nil, fmt.Errorf("store open failed: %w", err)
	}

	net := cryptosuite.LiveThresholds
	if cfg.Network == "devnet" {
		net = cryptosuite.DevThresholds
	} else if cfg.Network == "testnet" {
		net = cryptosuite.TestThresholds
	}
	l := ledger.New(store, net, nil)
	queue := writequeue.New()
	cementor := cement.New(store, queue)
	cementor.Observe(func(o cement.Observation) {
		logger.Debug("block_cemented", zap.String("account", o.Account.String()), zap.Uint64("height", o.Height))
	})
	reps := reptiers.New(store)

	router := election.NewRouter(votecache.NewCache(4096), votecache.NewRecentlyConfirmed(4096))
	admitter := &routerAdmitter{
		router:  router,
		weights: reps,
		onConfirmed: func(root, winner block.Hash) {
			logger.Info("election_confirmed", zap.String("root", root.String()), zap.String("winner", winner.String()))
		},
	}
	sched := scheduler.New(l, admitter)
	back := backlog.New(store, backlog.Config{Enabled: true, BatchSize: cfg.BacklogBatchSize, Frequency: cfg.BacklogFrequency}, sched.Activate)
	pruner := prune.New(store, queue, l, prune.Config{BatchSize: 2048, MaxDepth: cfg.MaxPruningDepth})

	return &components{
		store:   store,
		ledger:  l,
		queue:   queue,
		cement:  cementor,
		reps:    reps,
		router:  router,
		sched:   sched,
		backlog: back,
		pruner:  pruner,
		logger:  logger,
	}, nil
}

func (c *components) close() {
	_ = c.store.Close()
	_ = c.logger.Sync()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func newRunCmd(cfg *nodeconfig.Config, peerCSV *string) *cobra.Command {
	return &cobra.Command{
		Use: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finalize(cfg, peerCSV); err != nil {
				return err
			}
			c, err := openComponents(*cfg)
			if err != nil {
				return err
			}
			defer c.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go c.cement.Run(ctx)
			go c.pruner.Run(ctx, cfg.CementationTarget*40) // a coarse, config-derived cadence: 40x the cementation target
			go c.sched.Run(ctx)
			go c.backlog.Run(ctx)

			c.logger.Info("latticenode running", zap.String("network", cfg.Network), zap.String("bind", cfg.BindAddr))
			<-ctx.Done()
			c.logger.Info("latticenode stopped")
			return nil
		},
	}
}

// newResetConfirmationHeightCmd implements SPEC_FULL.md's supplemented
// `ledger clear confirmation_height` escape hatch, grounded on
// original_source/main/src/cli/commands/ledger/clear/confirmation_height.rs.
func newResetConfirmationHeightCmd(cfg *nodeconfig.Config, peerCSV *string) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "reset-confirmation-height",
		Short: "clear the confirmation height of one account, forcing recementation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finalize(cfg, peerCSV); err != nil {
				return err
			}
			if account == "" {
				return fmt.Errorf("--account is required")
			}
			c, err := openComponents(*cfg)
			if err != nil {
				return err
			}
			defer c.close()

			var acc [32]byte
			if _, err := fmt.Sscanf(account, "%x", &acc); err != nil {
				return fmt.Errorf("invalid account hex: %w", err)
			}
			return c.store.Update(func(tx *kvstore.Tx) error {
				return tx.PutConfirmationHeight(acc, kvstore.ConfirmationHeightInfo{})
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account (hex) to reset")
	return cmd
}
