// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake_test

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/database/engine/leveldb"
	"github.com/ringstake/stakeinput/internal/simservices"
	"github.com/ringstake/stakeinput/internal/testhelper"
	"github.com/ringstake/stakeinput/wallet"
	"github.com/stretchr/testify/require"
)

const (
	testDepth   = 20
	testModulus = 10
)

// testParams returns a policy with a shallow stake depth to keep the
// generated chains short.
func testParams() *stake.Params {
	params := stake.DefaultParams()
	params.RequiredStakeDepth = testDepth
	params.ModifierModulus = testModulus
	params.BracketMin = 10 * stake.Coin
	return &params
}

// newChain returns an index holding generated blocks through height.
func newChain(t *testing.T, through int32, mints map[int32][]stake.Denomination) (*blockchain.BlockIndex, stake.BlockRef) {
	t.Helper()
	bi := blockchain.NewBlockIndex(1)
	tip, err := simservices.ExtendChain(bi, 0, through, mints)
	require.NoError(t, err)
	return bi, tip
}

// extendChain connects generated blocks through height.
func extendChain(t *testing.T, bi *blockchain.BlockIndex, through int32) stake.BlockRef {
	t.Helper()
	tip, err := simservices.ExtendChain(bi, 0, through, nil)
	require.NoError(t, err)
	return tip
}

// newStore returns a record store synced through height.
func newStore(t *testing.T, synced int32) *wallet.Store {
	t.Helper()
	db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "records"), true)
	require.NoError(t, err)
	store := wallet.New(db)
	t.Cleanup(func() { store.Close() })
	for h := int32(0); h <= synced; h++ {
		require.NoError(t, store.ConnectBlock(h))
	}
	return store
}

// ringCTStake returns a ring-confidential stake of amount mined at height.
func ringCTStake(t *testing.T, params *stake.Params, height int32, anonIndex int64,
	amount btcutil.Amount) *stake.RingCTStake {

	t.Helper()
	coin := testhelper.RingCTCoin(chainhash.Hash{byte(anonIndex), 0xcc},
		simservices.BlockHash(0, height), anonIndex, amount)
	s, err := stake.NewRingCTStake(params, coin, testhelper.KeyImage(anonIndex))
	require.NoError(t, err)
	return s
}

// assemble runs every assembly step up to completion.
func assemble(t *testing.T, s stake.StakeInput, w *stake.Wallet, total btcutil.Amount) *stake.Tx {
	t.Helper()
	tx := stake.NewTx(1)
	in, err := s.CreateTxIn(w)
	require.NoError(t, err)
	tx.AddTxIn(in)
	outs, err := s.CreateTxOuts(w, total)
	require.NoError(t, err)
	tx.AddTxOuts(outs...)
	require.NoError(t, s.CompleteTx(w, tx))
	return tx
}

func requireCode(t *testing.T, err error, code stake.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, stake.IsErrorCode(err, code), "got %v, want %v", err, code)
}

// emptyView is a chain view that knows no blocks.
type emptyView struct{}

func (emptyView) BlockByHash(*chainhash.Hash) (stake.BlockRef, bool) {
	return stake.BlockRef{}, false
}

func (emptyView) Ancestor(stake.BlockRef, int32) (stake.BlockRef, bool) {
	return stake.BlockRef{}, false
}

func (emptyView) AccumulatorChecksum(stake.BlockRef, int32, stake.Denomination) (uint32, bool) {
	return 0, false
}

func (emptyView) ChecksumHeight(stake.BlockRef, uint32, stake.Denomination) (int32, bool) {
	return 0, false
}
