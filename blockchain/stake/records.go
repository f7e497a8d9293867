// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutputEntry is the wallet's view of one ring-confidential output of a
// transaction it owns.
type OutputEntry struct {
	Index      uint32
	AnonIndex  int64
	PubKey     []byte
	Commitment []byte

	// Amount and Blind are only meaningful once HasAmount is set, that is
	// once the wallet decrypted them.
	Amount    btcutil.Amount
	Blind     []byte
	HasAmount bool
}

// TransactionRecord is the wallet's record of a transaction paying to it.
type TransactionRecord struct {
	TxHash    chainhash.Hash
	BlockHash chainhash.Hash
	Time      int64
	Outputs   []OutputEntry
}

// Output returns the entry for the output at index.
func (r *TransactionRecord) Output(index uint32) (*OutputEntry, bool) {
	for i := range r.Outputs {
		if r.Outputs[i].Index == index {
			return &r.Outputs[i], true
		}
	}
	return nil, false
}

// OutputRecord identifies one spendable output selected by the wallet: the
// output index within its transaction record and its depth at selection time.
type OutputRecord struct {
	Index uint32
	Depth int32
	Tx    *TransactionRecord
}

// MintState is the wallet-local state of a zerocoin mint.
type MintState uint8

// These constants define the two states of a zerocoin mint.
//
// NOTE: This section specifically does not use iota since the state is
// serialized and must be stable for long-term storage.
const (
	// MintCandidate is an unspent mint that may be offered for staking.
	MintCandidate MintState = 0

	// MintConfirmed is a mint spent by a coinstake.
	MintConfirmed MintState = 1
)

// String returns the state as a human-readable name.
func (s MintState) String() string {
	switch s {
	case MintCandidate:
		return "candidate"
	case MintConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("unknown mint state (%d)", uint8(s))
}

// MintRecord is the wallet's record of a zerocoin mint.
type MintRecord struct {
	SerialHash   chainhash.Hash
	Denomination Denomination
	MintTxHash   chainhash.Hash
	MintHeight   int32
	State        MintState

	// SpendTxHash and SpendHeight are set while the mint is confirmed.
	SpendTxHash chainhash.Hash
	SpendHeight int32
}
