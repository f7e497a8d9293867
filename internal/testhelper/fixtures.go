// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package testhelper provides fixtures shared by the package tests.  The
// chain generator and service stand-ins they run against live in
// simservices.
package testhelper

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/internal/simservices"
)

// TxStore is an in-memory stake.TxSource.
type TxStore struct {
	mtx sync.Mutex
	txs map[chainhash.Hash]*stake.Tx
}

// NewTxStore returns an empty transaction store.
func NewTxStore() *TxStore {
	return &TxStore{txs: make(map[chainhash.Hash]*stake.Tx)}
}

// Add stores tx and returns its hash.
func (s *TxStore) Add(tx *stake.Tx) (chainhash.Hash, error) {
	hash, err := tx.TxHash()
	if err != nil {
		return chainhash.Hash{}, err
	}
	s.mtx.Lock()
	s.txs[hash] = tx
	s.mtx.Unlock()
	return hash, nil
}

// FetchTx returns the stored transaction, or nil when unknown.
func (s *TxStore) FetchTx(hash *chainhash.Hash) (*stake.Tx, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.txs[*hash], nil
}

// RingCTCoin returns an output record for a decrypted ring-confidential
// output of amount in the transaction txHash mined in block.
func RingCTCoin(txHash, block chainhash.Hash, anonIndex int64, amount btcutil.Amount) *stake.OutputRecord {
	return &stake.OutputRecord{
		Index: 0,
		Tx: &stake.TransactionRecord{
			TxHash:    txHash,
			BlockHash: block,
			Outputs: []stake.OutputEntry{{
				Index:      0,
				AnonIndex:  anonIndex,
				PubKey:     simservices.Point("coin-pub", uint64(anonIndex)),
				Commitment: simservices.Point("coin-commit", uint64(anonIndex)),
				Amount:     amount,
				Blind:      simservices.Point("coin-blind", uint64(anonIndex)),
				HasAmount:  true,
			}},
		},
	}
}

// KeyImage returns a deterministic key image for the anon index.
func KeyImage(anonIndex int64) []byte {
	return simservices.Point("key-image", uint64(anonIndex))
}
