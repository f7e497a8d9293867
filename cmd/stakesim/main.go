// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// stakesim builds a synthetic chain and wallet and runs staking rounds over
// it, printing every coinstake found.
package main

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/database/engine"
	"github.com/ringstake/stakeinput/database/engine/leveldb"
	"github.com/ringstake/stakeinput/database/engine/pebbledb"
	ilog "github.com/ringstake/stakeinput/internal/log"
	"github.com/ringstake/stakeinput/internal/simservices"
	"github.com/ringstake/stakeinput/internal/version"
	"github.com/ringstake/stakeinput/mining/staker"
	"github.com/ringstake/stakeinput/wallet"
)

var log = ilog.SimLog

// openDB creates a fresh record database of dbType at path.
func openDB(dbType, path string) (engine.Engine, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, err
	}
	switch dbType {
	case "pebble":
		return pebbledb.NewDB(path, true, 0, 0)
	default:
		return leveldb.NewDB(path, true)
	}
}

// serialHash returns a deterministic serial hash for the n-th mint of seed.
func serialHash(seed int64, n uint32) chainhash.Hash {
	var buf [18]byte
	copy(buf[:6], "serial")
	binary.LittleEndian.PutUint64(buf[6:14], uint64(seed))
	binary.LittleEndian.PutUint32(buf[14:], n)
	return chainhash.DoubleHashH(buf[:])
}

// simulation is the state of one simulator run.
type simulation struct {
	cfg    *config
	chain  *blockchain.BlockIndex
	store  *wallet.Store
	wallet *simWallet
	svc    *simservices.Services
	rng    *rand.Rand
	reg    *prometheus.Registry
}

// setup connects the synthetic chain up to the starting height and fills the
// wallet.  Coins and mints are placed at consecutive heights above the
// modifier modulus.
func (sim *simulation) setup() error {
	params := &sim.cfg.Params
	base := params.ModifierModulus

	for i := 0; i < sim.cfg.Coins; i++ {
		amount := btcutil.Amount(int64(i+1) * 10 * stake.Coin)
		sim.wallet.addCoin(uint32(i+1), base+int32(i), amount)
	}

	mintHeights := make(map[int32][]stake.Denomination)
	mints := make([]*stake.MintRecord, 0, sim.cfg.Mints)
	for i := 0; i < sim.cfg.Mints; i++ {
		height := base + int32(sim.cfg.Coins+i)
		denom := stake.Denominations[i%len(stake.Denominations)]
		mintHeights[height] = append(mintHeights[height], denom)
		serial := serialHash(sim.cfg.Seed, uint32(i))
		mints = append(mints, &stake.MintRecord{
			SerialHash:   serial,
			Denomination: denom,
			MintTxHash:   chainhash.DoubleHashH(serial[:]),
			MintHeight:   height,
		})
	}

	tip, err := simservices.ExtendChain(sim.chain, 0, sim.cfg.ChainHeight,
		mintHeights)
	if err != nil {
		return fmt.Errorf("unable to build chain: %w", err)
	}
	for h := int32(0); h <= tip.Height; h++ {
		if err := sim.store.ConnectBlock(h); err != nil {
			return err
		}
	}
	for _, rec := range mints {
		if err := sim.store.AddMint(rec); err != nil {
			return err
		}
		sim.wallet.addMint(rec.SerialHash)
	}

	log.Infof("Built chain to height %d with %d %s and %d %s", tip.Height,
		sim.cfg.Coins, ilog.PickNoun(uint64(sim.cfg.Coins), "coin", "coins"),
		sim.cfg.Mints, ilog.PickNoun(uint64(sim.cfg.Mints), "mint", "mints"))
	return nil
}

// connect adds the next block.  The fresh mints of the coinstake found for
// it, if any, are accumulated in that block and added to the wallet.
func (sim *simulation) connect(cs *staker.Coinstake) error {
	best, _ := sim.chain.BestSnapshot()
	next := best.Height + 1

	var denoms []stake.Denomination
	var mints []*stake.MintRecord
	if cs != nil {
		for _, out := range cs.Tx.TxOut {
			mint, ok := out.(*stake.ZerocoinMintOutput)
			if !ok {
				continue
			}
			denoms = append(denoms, mint.Denomination)
			mints = append(mints, &stake.MintRecord{
				SerialHash:   chainhash.DoubleHashH(mint.Commitment),
				Denomination: mint.Denomination,
				MintTxHash:   cs.TxHash,
				MintHeight:   next,
			})
		}
	}

	_, err := simservices.ExtendChain(sim.chain, 0, next,
		map[int32][]stake.Denomination{next: denoms})
	if err != nil {
		return err
	}
	if err := sim.store.ConnectBlock(next); err != nil {
		return err
	}
	for _, rec := range mints {
		if err := sim.store.AddMint(rec); err != nil {
			return err
		}
		sim.wallet.addMint(rec.SerialHash)
	}
	return nil
}

// rewind disconnects the last n blocks, undoing their spends.
func (sim *simulation) rewind(n int32) error {
	for i := int32(0); i < n; i++ {
		best, ok := sim.chain.BestSnapshot()
		if !ok {
			return nil
		}
		if err := sim.store.DisconnectBlock(best.Height); err != nil {
			return err
		}
		if _, err := sim.chain.DisconnectTip(); err != nil {
			return err
		}
	}
	return nil
}

// printAttempts writes the staking attempt counters.
func (sim *simulation) printAttempts() error {
	families, err := sim.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.Metric {
			for _, label := range m.GetLabel() {
				fmt.Printf("%s{%s=%q} %v\n", mf.GetName(),
					label.GetName(), label.GetValue(),
					m.GetCounter().GetValue())
			}
		}
	}
	return nil
}

func (sim *simulation) run() error {
	st, err := staker.New(&staker.Config{
		Params: &sim.cfg.Params,
		Chain:  sim.chain,
		Store:  sim.store,
		Wallet: func(tip stake.BlockRef) *stake.Wallet {
			return sim.svc.Wallet(sim.chain, tip, sim.rng.Int63())
		},
		Candidates: sim.wallet.candidates,
		Reward:     btcutil.Amount(stake.Coin),
		TargetBits: sim.cfg.TargetBits,
		Now: func() time.Time {
			best, _ := sim.chain.BestSnapshot()
			return time.Unix(best.Timestamp+simservices.BlockSpacing, 0)
		},
		Registerer: sim.reg,
	})
	if err != nil {
		return err
	}

	var staked int
	for round := 0; round < sim.cfg.Rounds; round++ {
		cs, err := st.StakeOnce()
		if err != nil {
			log.Warnf("Round %d failed: %v", round, err)
		}
		if cs != nil {
			staked++
			fmt.Printf("height %d: %v coinstake %v (kernel %v)\n",
				cs.Tip.Height+1, cs.Input.Kind(), cs.TxHash,
				cs.Kernel)
		}
		if err := sim.connect(cs); err != nil {
			return fmt.Errorf("unable to connect block: %w", err)
		}
	}
	fmt.Printf("staked %d of %d %s\n", staked, sim.cfg.Rounds,
		ilog.PickNoun(uint64(sim.cfg.Rounds), "block", "blocks"))

	if sim.cfg.Rewind > 0 {
		if err := sim.rewind(sim.cfg.Rewind); err != nil {
			return fmt.Errorf("unable to rewind: %w", err)
		}
		best, _ := sim.chain.BestSnapshot()
		candidates, err := sim.store.ListMints(stake.MintCandidate)
		if err != nil {
			return err
		}
		fmt.Printf("rewound to height %d, %d candidate %s\n",
			best.Height, len(candidates),
			ilog.PickNoun(uint64(len(candidates)), "mint", "mints"))
	}
	return sim.printAttempts()
}

func stakesimMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("stakesim version %s (Go version %s %s/%s)\n",
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		return nil
	}

	logFile := filepath.Join(cfg.DataDir, "logs", defaultLogFilename)
	if err := ilog.InitLogRotator(logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer ilog.LogRotator.Close()

	dbPath := filepath.Join(cfg.DataDir, "records_"+cfg.DbType)
	db, err := openDB(cfg.DbType, dbPath)
	if err != nil {
		log.Errorf("Unable to open %s records at %s: %v", cfg.DbType,
			dbPath, err)
		return err
	}
	store := wallet.New(db)
	defer store.Close()

	sim := &simulation{
		cfg:    cfg,
		chain:  blockchain.NewBlockIndex(cfg.Params.ZerocoinStartHeight),
		store:  store,
		wallet: newSimWallet(&cfg.Params, cfg.Seed),
		svc:    simservices.NewServices(),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		reg:    prometheus.NewRegistry(),
	}
	if err := sim.setup(); err != nil {
		log.Errorf("%v", err)
		return err
	}
	if err := sim.run(); err != nil {
		log.Errorf("%v", err)
		return err
	}
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	if err := stakesimMain(); err != nil {
		os.Exit(1)
	}
}
