// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/database/engine"
	"github.com/ringstake/stakeinput/database/engine/leveldb"
	"github.com/ringstake/stakeinput/database/engine/pebbledb"
	"github.com/stretchr/testify/require"
)

// backends lists the engines the store is tested against.
var backends = []struct {
	name string
	open func(t *testing.T) engine.Engine
}{
	{"leveldb", func(t *testing.T) engine.Engine {
		db, err := leveldb.NewDB(filepath.Join(t.TempDir(), "ldb"), true)
		require.NoError(t, err)
		return db
	}},
	{"pebble", func(t *testing.T) engine.Engine {
		db, err := pebbledb.NewDB(filepath.Join(t.TempDir(), "pdb"),
			true, 0, 0)
		require.NoError(t, err)
		return db
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			s := New(backend.open(t))
			defer s.Close()
			fn(t, s)
		})
	}
}

func testMint(n byte, denom stake.Denomination, height int32) *stake.MintRecord {
	return &stake.MintRecord{
		SerialHash:   chainhash.Hash{n},
		Denomination: denom,
		MintTxHash:   chainhash.Hash{0xee, n},
		MintHeight:   height,
	}
}

func connectBlocks(t *testing.T, s *Store, through int32) {
	t.Helper()
	synced, err := s.SyncedHeight()
	require.NoError(t, err)
	for h := synced + 1; h <= through; h++ {
		require.NoError(t, s.ConnectBlock(h))
	}
}

// TestMintLifecycle ensures a mint only moves candidate to confirmed through
// ConfirmMint and back only through DisconnectBlock.
func TestMintLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		mint := testMint(1, stake.DenomHundred, 3)
		require.NoError(t, s.AddMint(mint))

		err := s.AddMint(mint)
		require.True(t, stake.IsErrorCode(err, stake.ErrDuplicateStake))

		candidates, err := s.ListMints(stake.MintCandidate)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		require.Equal(t, mint.SerialHash, candidates[0].SerialHash)
		require.Equal(t, stake.MintCandidate, candidates[0].State)

		connectBlocks(t, s, 9)
		spender := chainhash.Hash{0xab}
		err = s.Update(func(w stake.RecordWriter) error {
			return w.ConfirmMint(mint.SerialHash, spender, 10)
		})
		require.NoError(t, err)
		require.NoError(t, s.ConnectBlock(10))

		err = s.Update(func(w stake.RecordWriter) error {
			return w.ConfirmMint(mint.SerialHash, spender, 10)
		})
		require.True(t, stake.IsErrorCode(err, stake.ErrInvalidTransition))

		err = s.View(func(r stake.RecordReader) error {
			rec, err := r.FetchMint(&mint.SerialHash)
			require.NoError(t, err)
			require.Equal(t, stake.MintConfirmed, rec.State)
			require.Equal(t, spender, rec.SpendTxHash)
			require.Equal(t, int32(10), rec.SpendHeight)
			return nil
		})
		require.NoError(t, err)

		// Reorg the coinstake block away.
		require.NoError(t, s.DisconnectBlock(10))
		candidates, err = s.ListMints(stake.MintCandidate)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		require.Equal(t, chainhash.Hash{}, candidates[0].SpendTxHash)

		confirmed, err := s.ListMints(stake.MintConfirmed)
		require.NoError(t, err)
		require.Empty(t, confirmed)
	})
}

// TestSpentOutputs ensures outputs are marked spent once and unspent again
// on disconnect.
func TestSpentOutputs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		op := wire.OutPoint{Hash: chainhash.Hash{7}, Index: 2}
		connectBlocks(t, s, 4)

		err := s.Update(func(w stake.RecordWriter) error {
			return w.MarkOutputSpent(op, chainhash.Hash{9}, 5)
		})
		require.NoError(t, err)
		require.NoError(t, s.ConnectBlock(5))

		err = s.Update(func(w stake.RecordWriter) error {
			return w.MarkOutputSpent(op, chainhash.Hash{10}, 6)
		})
		require.True(t, stake.IsErrorCode(err, stake.ErrAlreadySpent))

		var spent bool
		require.NoError(t, s.View(func(r stake.RecordReader) error {
			var err error
			spent, err = r.IsOutputSpent(op)
			return err
		}))
		require.True(t, spent)

		require.NoError(t, s.DisconnectBlock(5))
		require.NoError(t, s.View(func(r stake.RecordReader) error {
			var err error
			spent, err = r.IsOutputSpent(op)
			return err
		}))
		require.False(t, spent)

		height, err := s.SyncedHeight()
		require.NoError(t, err)
		require.Equal(t, int32(4), height)
	})
}

// TestUpdateRollback ensures a failed update leaves no trace.
func TestUpdateRollback(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		op := wire.OutPoint{Hash: chainhash.Hash{3}}
		errBoom := errors.New("boom")

		err := s.Update(func(w stake.RecordWriter) error {
			require.NoError(t, w.MarkOutputSpent(op, chainhash.Hash{1}, 1))
			spent, err := w.IsOutputSpent(op)
			require.NoError(t, err)
			require.True(t, spent, "write not visible inside update")
			return errBoom
		})
		require.ErrorIs(t, err, errBoom)

		require.NoError(t, s.View(func(r stake.RecordReader) error {
			spent, err := r.IsOutputSpent(op)
			require.NoError(t, err)
			require.False(t, spent)
			return nil
		}))
	})
}

// TestConcurrentConfirm ensures concurrent writers never both confirm the
// same mint.
func TestConcurrentConfirm(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		mint := testMint(5, stake.DenomTen, 1)
		require.NoError(t, s.AddMint(mint))

		const workers = 8
		var wg sync.WaitGroup
		var wins atomic.Int32
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := s.Update(func(w stake.RecordWriter) error {
					return w.ConfirmMint(mint.SerialHash,
						chainhash.Hash{byte(i)}, 2)
				})
				if err == nil {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})
}

// TestBlockOrder ensures blocks connect and disconnect in order.
func TestBlockOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *Store) {
		height, err := s.SyncedHeight()
		require.NoError(t, err)
		require.Equal(t, int32(-1), height)

		require.Error(t, s.ConnectBlock(1))
		require.NoError(t, s.ConnectBlock(0))
		require.NoError(t, s.ConnectBlock(1))
		require.Error(t, s.DisconnectBlock(0))
		require.NoError(t, s.DisconnectBlock(1))
	})
}

func TestMintSerialization(t *testing.T) {
	rec := testMint(9, stake.DenomTenThousand, 77)
	rec.State = stake.MintConfirmed
	rec.SpendTxHash = chainhash.Hash{0x42}
	rec.SpendHeight = 300

	got, err := deserializeMint(serializeMint(rec))
	require.NoError(t, err)
	require.Equal(t, rec, got)

	_, err = deserializeMint(serializeMint(rec)[1:])
	require.Error(t, err)

	bad := serializeMint(rec)
	bad[chainhash.HashSize] = 3
	_, err = deserializeMint(bad)
	require.Error(t, err, "invalid denomination accepted")
}
