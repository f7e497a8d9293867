// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/wallet"
)

const (
	// defaultStakeInterval is the time between two staking rounds when no
	// new tip is announced.
	defaultStakeInterval = time.Second * 15

	// defaultRecentStakes is the number of uniqueness fingerprints of
	// recently staked coins remembered by the double-stake guard.
	defaultRecentStakes = 1000

	// coinstakeVersion is the transaction version of assembled coinstakes.
	coinstakeVersion = 1
)

// These constants define the results a staking attempt is counted under.
const (
	resultStaked     = "staked"
	resultMiss       = "miss"
	resultIneligible = "ineligible"
	resultSkipped    = "skipped"
	resultFailed     = "failed"
	resultStale      = "stale"
)

// ErrNoTip is returned when a round is attempted before the chain index holds
// any block.
var ErrNoTip = errors.New("staker: chain has no tip")

// Config is a descriptor containing the staker configuration.
type Config struct {
	// Params is the staking policy the coins are evaluated under.
	Params *stake.Params

	// Chain is the chain index the coinstakes build on.
	Chain *blockchain.BlockIndex

	// Store holds the wallet's coin records.
	Store *wallet.Store

	// Wallet returns the wallet services used to assemble a coinstake on
	// tip.
	Wallet func(tip stake.BlockRef) *stake.Wallet

	// Candidates returns the wallet's coins offered for staking on tip.
	// It is called with a reader over the wallet records and must return
	// fresh stake inputs on every call.
	Candidates func(records stake.RecordReader, tip stake.BlockRef) ([]stake.StakeInput, error)

	// Reward is added to the value of the staked coin in the coinstake
	// outputs.
	Reward btcutil.Amount

	// TargetBits is the compact kernel target per unit of weight.
	TargetBits uint32

	// Now returns the current time.  It defaults to time.Now.
	Now func() time.Time

	// SubmitBlock is called with every coinstake found.
	SubmitBlock func(*Coinstake) error

	// StakeInterval is the time between rounds while no new tip is
	// announced.  It defaults to 15 seconds.
	StakeInterval time.Duration

	// RecentStakes bounds the double-stake guard.  It defaults to 1000.
	RecentStakes uint

	// Registerer registers the attempt counters when set.
	Registerer prometheus.Registerer
}

// Coinstake is a completed coinstake whose coin was marked spent.
type Coinstake struct {
	Tx     *stake.Tx
	TxHash chainhash.Hash
	Input  stake.StakeInput
	Tip    stake.BlockRef
	Time   int64
	Kernel chainhash.Hash
}

// kernelMatch is a coin whose kernel met the target in the evaluation phase.
type kernelMatch struct {
	input      stake.StakeInput
	uniqueness []byte
	value      btcutil.Amount
	kernel     chainhash.Hash
}

// Staker runs staking rounds over the wallet's coins in a concurrency-safe
// manner.  A single worker goroutine runs a round on every tick and on
// every announced tip, and StakeOnce may be called directly.
type Staker struct {
	sync.Mutex
	cfg      Config
	started  bool
	recent   lru.Cache
	attempts *prometheus.CounterVec
	newTip   chan struct{}
	wg       sync.WaitGroup
	quit     chan struct{}
}

// New returns a new staker for the provided configuration.  Use Start to
// begin staking.
func New(cfg *Config) (*Staker, error) {
	if cfg.Params == nil || cfg.Chain == nil || cfg.Store == nil ||
		cfg.Wallet == nil || cfg.Candidates == nil {

		return nil, errors.New("staker: incomplete configuration")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	c := *cfg
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.StakeInterval <= 0 {
		c.StakeInterval = defaultStakeInterval
	}
	if c.RecentStakes == 0 {
		c.RecentStakes = defaultRecentStakes
	}

	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stake",
		Name:      "attempts_total",
		Help:      "Staking attempts per coin by result.",
	}, []string{"result"})
	if c.Registerer != nil {
		if err := c.Registerer.Register(attempts); err != nil {
			return nil, fmt.Errorf("unable to register metrics: %w", err)
		}
	}

	return &Staker{
		cfg:      c,
		recent:   lru.NewCache(c.RecentStakes),
		attempts: attempts,
		newTip:   make(chan struct{}, 1),
	}, nil
}

// countError counts a failed evaluation of a coin and logs it at the level
// its category calls for.
func (s *Staker) countError(in stake.StakeInput, err error) {
	switch stake.ErrorCategory(err) {
	case stake.CategoryTransient:
		log.Tracef("%v coin not eligible: %v", in.Kind(), err)
		s.attempts.WithLabelValues(resultIneligible).Inc()

	case stake.CategoryDataInconsistency:
		log.Warnf("Skipping %v coin: %v", in.Kind(), err)
		s.attempts.WithLabelValues(resultSkipped).Inc()

	default:
		log.Errorf("Unable to evaluate %v coin: %v", in.Kind(), err)
		s.attempts.WithLabelValues(resultFailed).Inc()
	}
}

// evaluate returns the kernel of in when it meets the target.
func (s *Staker) evaluate(chain stake.ChainView, tip stake.BlockRef,
	in stake.StakeInput, txTime int64) (*kernelMatch, error) {

	uniqueness, err := in.Uniqueness()
	if err != nil {
		return nil, err
	}
	if s.recent.Contains(string(uniqueness)) {
		return nil, nil
	}
	weight, err := in.Weight()
	if err != nil {
		return nil, err
	}
	if weight <= 0 {
		log.Tracef("%v coin has no weight", in.Kind())
		return nil, nil
	}
	origin, err := in.IndexFrom(chain, tip)
	if err != nil {
		return nil, err
	}
	modifier, err := in.Modifier(chain, tip)
	if err != nil {
		return nil, err
	}

	kernel := KernelHash(modifier, origin.Timestamp, uniqueness, txTime)
	if !CheckKernel(&kernel, s.cfg.TargetBits, weight) {
		return nil, nil
	}
	value, err := in.Value()
	if err != nil {
		return nil, err
	}
	return &kernelMatch{
		input:      in,
		uniqueness: uniqueness,
		value:      value,
		kernel:     kernel,
	}, nil
}

// findKernel evaluates the candidates on tip under the read locks of the
// wallet records and the chain index and returns the first coin whose kernel
// meets the target, or nil.
func (s *Staker) findKernel(tip stake.BlockRef, txTime int64) (*kernelMatch, error) {
	var match *kernelMatch
	err := s.cfg.Store.View(func(records stake.RecordReader) error {
		candidates, err := s.cfg.Candidates(records, tip)
		if err != nil {
			return err
		}
		return s.cfg.Chain.View(func(chain stake.ChainView) error {
			for _, in := range candidates {
				m, err := s.evaluate(chain, tip, in, txTime)
				if err != nil {
					s.countError(in, err)
					continue
				}
				if m == nil {
					s.attempts.WithLabelValues(resultMiss).Inc()
					continue
				}
				match = m
				return nil
			}
			return nil
		})
	})
	return match, err
}

// assemble builds, completes and marks spent the coinstake of m under the
// write lock of the wallet records.  The attempt is abandoned when the tip
// moved since the kernel was found.  The chain index is read locked from the
// tip check through marking the coin spent.
func (s *Staker) assemble(tip stake.BlockRef, txTime int64, m *kernelMatch) (*Coinstake, error) {
	var cs *Coinstake
	err := s.cfg.Store.Update(func(rw stake.RecordWriter) error {
		w := s.cfg.Wallet(tip)
		tx := stake.NewTx(coinstakeVersion)
		in, err := m.input.CreateTxIn(w)
		if err != nil {
			return err
		}
		tx.AddTxIn(in)
		outs, err := m.input.CreateTxOuts(w, m.value+s.cfg.Reward)
		if err != nil {
			return err
		}
		tx.AddTxOuts(outs...)
		if err := m.input.CompleteTx(w, tx); err != nil {
			return err
		}

		// The chain stays on tip until the coin is marked spent.
		err = s.cfg.Chain.ViewBest(func(_ stake.ChainView, best stake.BlockRef) error {
			if best.Hash != tip.Hash {
				return stake.RuleError{
					ErrorCode: stake.ErrStaleTip,
					Description: fmt.Sprintf("tip moved from %v "+
						"to %v", tip.Hash, best.Hash),
				}
			}
			return stake.MarkSpent(m.input, rw, tx)
		})
		if err != nil {
			return err
		}

		txHash, err := tx.TxHash()
		if err != nil {
			return err
		}
		cs = &Coinstake{
			Tx:     tx,
			TxHash: txHash,
			Input:  m.input,
			Tip:    tip,
			Time:   txTime,
			Kernel: m.kernel,
		}
		return nil
	})
	return cs, err
}

// StakeOnce runs a single staking round on the current tip.  It returns the
// coinstake found, or nil when no coin met its target.
//
// This function is safe for concurrent access.
func (s *Staker) StakeOnce() (*Coinstake, error) {
	tip, ok := s.cfg.Chain.BestSnapshot()
	if !ok {
		return nil, ErrNoTip
	}
	txTime := s.cfg.Now().Unix()
	if txTime <= tip.Timestamp {
		txTime = tip.Timestamp + 1
	}

	m, err := s.findKernel(tip, txTime)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	log.Debugf("Kernel %v found for %v coin on tip %v", m.kernel,
		m.input.Kind(), tip.Hash)

	cs, err := s.assemble(tip, txTime, m)
	if err != nil {
		switch {
		case stake.IsErrorCode(err, stake.ErrStaleTip):
			log.Debugf("Abandoned coinstake: %v", err)
			s.attempts.WithLabelValues(resultStale).Inc()
		case stake.IsErrorCode(err, stake.ErrAlreadySpent):
			// Another attempt spent the coin first.
			s.recent.Add(string(m.uniqueness))
			s.attempts.WithLabelValues(resultSkipped).Inc()
		default:
			s.countError(m.input, err)
		}
		return nil, err
	}

	s.recent.Add(string(m.uniqueness))
	s.attempts.WithLabelValues(resultStaked).Inc()
	log.Infof("Staked %v coin in coinstake %v on tip %v (height %d)",
		m.input.Kind(), cs.TxHash, tip.Hash, tip.Height)
	log.Tracef("Coinstake %v: %v", cs.TxHash, newLogClosure(func() string {
		return spew.Sdump(cs.Tx)
	}))

	if s.cfg.SubmitBlock != nil {
		if err := s.cfg.SubmitBlock(cs); err != nil {
			log.Errorf("Unable to submit coinstake %v: %v", cs.TxHash,
				err)
			return cs, err
		}
	}
	return cs, nil
}

// NotifyNewTip tells the running worker a new tip was connected so a round
// runs without waiting for the next tick.
//
// This function is safe for concurrent access.
func (s *Staker) NotifyNewTip() {
	select {
	case s.newTip <- struct{}{}:
	default:
	}
}

// stakeRounds is the worker that runs a round on every tick and announced
// tip until the staker is stopped.
//
// It must be run as a goroutine.
func (s *Staker) stakeRounds(quit chan struct{}) {
	log.Tracef("Staking worker started")

	ticker := time.NewTicker(s.cfg.StakeInterval)
	defer ticker.Stop()
out:
	for {
		select {
		case <-quit:
			break out
		case <-ticker.C:
		case <-s.newTip:
		}

		if _, err := s.StakeOnce(); err != nil && !errors.Is(err, ErrNoTip) {
			log.Debugf("Staking round failed: %v", err)
		}
	}

	s.wg.Done()
	log.Tracef("Staking worker done")
}

// Start begins staking.  Calling this function when the staker has already
// been started will have no effect.
//
// This function is safe for concurrent access.
func (s *Staker) Start() {
	s.Lock()
	defer s.Unlock()

	if s.started {
		return
	}

	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.stakeRounds(s.quit)

	s.started = true
	log.Infof("Staker started")
}

// Stop gracefully stops staking and waits for a running round to finish.
// Calling this function when the staker has not been started will have no
// effect.
//
// This function is safe for concurrent access.
func (s *Staker) Stop() {
	s.Lock()
	defer s.Unlock()

	if !s.started {
		return
	}

	close(s.quit)
	s.wg.Wait()
	s.started = false
	log.Infof("Staker stopped")
}

// IsStaking returns whether the staker has been started.
//
// This function is safe for concurrent access.
func (s *Staker) IsStaking() bool {
	s.Lock()
	defer s.Unlock()

	return s.started
}
