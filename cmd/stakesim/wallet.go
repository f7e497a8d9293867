// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/internal/simservices"
	"github.com/ringstake/stakeinput/ringct"
)

// simWallet holds the simulated wallet's coins: ring-confidential outputs it
// has the keys for and the serial hashes of its zerocoin mints.
type simWallet struct {
	params *stake.Params
	seed   int64

	mtx     sync.Mutex
	keys    map[string]*btcec.PrivateKey
	coins   []*stake.OutputRecord
	serials []chainhash.Hash
	imager  *ringct.KeyImager
}

func newSimWallet(params *stake.Params, seed int64) *simWallet {
	w := &simWallet{
		params: params,
		seed:   seed,
		keys:   make(map[string]*btcec.PrivateKey),
	}
	w.imager = ringct.NewKeyImager(w.lookup)
	return w
}

// lookup returns the private key for a compressed public key.
func (w *simWallet) lookup(pub []byte) (*btcec.PrivateKey, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	priv, ok := w.keys[string(pub)]
	if !ok {
		return nil, ringct.ErrUnknownKey
	}
	return priv, nil
}

// derive returns the n-th private key of the wallet.
func (w *simWallet) derive(n uint32) *btcec.PrivateKey {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(w.seed))
	binary.LittleEndian.PutUint32(buf[8:], n)
	priv, _ := btcec.PrivKeyFromBytes(chainhash.HashB(buf[:]))
	return priv
}

// addCoin adds a ring-confidential output of amount mined at height.
func (w *simWallet) addCoin(n uint32, height int32, amount btcutil.Amount) {
	priv := w.derive(n)
	pub := priv.PubKey().SerializeCompressed()
	txHash := chainhash.DoubleHashH(pub)

	coin := &stake.OutputRecord{
		Tx: &stake.TransactionRecord{
			TxHash:    txHash,
			BlockHash: simservices.BlockHash(0, height),
			Time:      simservices.GenesisTime + int64(height)*simservices.BlockSpacing,
			Outputs: []stake.OutputEntry{{
				AnonIndex:  int64(n),
				PubKey:     pub,
				Commitment: chainhash.HashB(append([]byte("commit"), pub...)),
				Amount:     amount,
				Blind:      chainhash.HashB(append([]byte("blind"), pub...)),
				HasAmount:  true,
			}},
		},
	}

	w.mtx.Lock()
	w.keys[string(pub)] = priv
	w.coins = append(w.coins, coin)
	w.mtx.Unlock()
}

// addMint remembers the serial hash of a mint stored in the records.
func (w *simWallet) addMint(serialHash chainhash.Hash) {
	w.mtx.Lock()
	w.serials = append(w.serials, serialHash)
	w.mtx.Unlock()
}

// candidates returns fresh stake inputs for the unspent coins and candidate
// mints mined at or below tip.
func (w *simWallet) candidates(records stake.RecordReader, tip stake.BlockRef) ([]stake.StakeInput, error) {
	w.mtx.Lock()
	coins := append([]*stake.OutputRecord(nil), w.coins...)
	serials := append([]chainhash.Hash(nil), w.serials...)
	w.mtx.Unlock()

	var inputs []stake.StakeInput
	for _, coin := range coins {
		op := wire.OutPoint{Hash: coin.Tx.TxHash, Index: coin.Index}
		spent, err := records.IsOutputSpent(op)
		if err != nil {
			return nil, err
		}
		if spent {
			continue
		}
		in, err := w.imager.NewStake(w.params, coin)
		if err != nil {
			if errors.Is(err, ringct.ErrUnknownKey) {
				log.Warnf("No key for coin %v", op)
				continue
			}
			return nil, err
		}
		inputs = append(inputs, in)
	}

	for i := range serials {
		rec, err := records.FetchMint(&serials[i])
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.State != stake.MintCandidate ||
			rec.MintHeight > tip.Height {

			continue
		}
		in, err := stake.NewZerocoinStake(w.params, rec)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
