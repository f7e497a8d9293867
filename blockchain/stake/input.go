// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Kind identifies the concrete type of a StakeInput.
type Kind uint8

// These constants define the stake input kinds.
const (
	KindRingCT Kind = iota
	KindZerocoin
)

// String returns the Kind as a human-readable name.
func (k Kind) String() string {
	switch k {
	case KindRingCT:
		return "ringct"
	case KindZerocoin:
		return "zerocoin"
	}
	return fmt.Sprintf("unknown stake kind (%d)", uint8(k))
}

// StakeInput is a coin offered for staking.  The set of implementations is
// closed: *RingCTStake and *ZerocoinStake.
//
// A StakeInput is owned by a single staking attempt and is not safe for
// concurrent use.  Evaluation methods must be called while the chain view
// and wallet records are held stable by the caller.
type StakeInput interface {
	// Kind returns the concrete kind of the input.
	Kind() Kind

	// IndexFrom returns the origin block of the coin on the chain ending
	// at tip.  The result is cached after the first success.
	IndexFrom(chain ChainView, tip BlockRef) (BlockRef, error)

	// TxFrom returns the transaction the coin originated from.
	TxFrom(records RecordReader, txs TxSource) (*Tx, error)

	// Value returns the value of the coin.  It is never negative.
	Value() (btcutil.Amount, error)

	// Weight returns the staking weight of the coin.
	Weight() (btcutil.Amount, error)

	// Modifier returns the stake modifier seeding the kernel hash of the
	// coin at tip.
	Modifier(chain ChainView, tip BlockRef) (uint64, error)

	// IsZerocoins returns whether the input is a zerocoin stake.
	IsZerocoins() bool

	// Uniqueness returns a deterministic fingerprint of the coin that
	// differs between distinct coins.
	Uniqueness() ([]byte, error)

	// CreateTxIn returns the coinstake input spending the coin.
	CreateTxIn(w *Wallet) (*wire.TxIn, error)

	// CreateTxOuts returns the coinstake outputs paying total back to the
	// wallet.
	CreateTxOuts(w *Wallet, total btcutil.Amount) ([]TxOut, error)

	// CompleteTx signs or proves the assembled coinstake.
	CompleteTx(w *Wallet, tx *Tx) error

	stakeInput()
}

// MarkSpent records the coin of the input as consumed by the completed
// coinstake tx.
func MarkSpent(in StakeInput, rw RecordWriter, tx *Tx) error {
	switch s := in.(type) {
	case *RingCTStake:
		return s.MarkSpent(rw, tx)

	case *ZerocoinStake:
		txHash, err := tx.TxHash()
		if err != nil {
			return ruleErrorf(ErrMalformedContext, "unable to hash "+
				"coinstake: %v", err)
		}
		return s.MarkSpent(rw, txHash)
	}
	return ruleErrorf(ErrInvalidParams, "unknown stake input %T", in)
}

// assembly tracks the progress of a coinstake through its assembly steps.
// Input and outputs may be created in either order, but both precede
// completion, which precedes marking the coin spent.
type assembly struct {
	tip         BlockRef
	haveInput   bool
	haveOutputs bool
	completed   bool
	spent       bool
	txHash      chainhash.Hash
}

func (a *assembly) checkCreateInput() error {
	if a.completed {
		return stakeRuleError(ErrAlreadyCompleted, "coinstake already "+
			"completed")
	}
	if a.haveInput {
		return stakeRuleError(ErrAssemblyOrder, "input already created")
	}
	return nil
}

func (a *assembly) checkCreateOutputs() error {
	if a.completed {
		return stakeRuleError(ErrAlreadyCompleted, "coinstake already "+
			"completed")
	}
	if a.haveOutputs {
		return stakeRuleError(ErrAssemblyOrder, "outputs already created")
	}
	return nil
}

func (a *assembly) checkComplete() error {
	if a.completed {
		return stakeRuleError(ErrAlreadyCompleted, "coinstake already "+
			"completed")
	}
	if !a.haveInput || !a.haveOutputs {
		return stakeRuleError(ErrAssemblyOrder, "input and outputs "+
			"must be created before completion")
	}
	return nil
}

func (a *assembly) checkMarkSpent(txHash chainhash.Hash) error {
	if !a.completed {
		return stakeRuleError(ErrNotCompleted, "coinstake not completed")
	}
	if a.spent {
		return stakeRuleError(ErrAlreadySpent, "coin already marked "+
			"spent")
	}
	if txHash != a.txHash {
		return ruleErrorf(ErrMalformedContext, "transaction %v is not "+
			"the completed coinstake %v", txHash, a.txHash)
	}
	return nil
}

// spendHeight is the height of the block the coinstake goes into.
func (a *assembly) spendHeight() int32 {
	return a.tip.Height + 1
}
