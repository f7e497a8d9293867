// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// BlockRef is an immutable snapshot of a block in the chain index.  Stake
// inputs only ever see the chain through these snapshots, which keeps modifier
// computation reproducible.
type BlockRef struct {
	Height        int32
	Hash          chainhash.Hash
	Timestamp     int64
	StakeModifier uint64
}

// IsNull returns whether the reference is the zero value.
func (b *BlockRef) IsNull() bool {
	return b.Height == 0 && b.Hash == (chainhash.Hash{})
}

// ChainView provides read-only access to the chain index.  All lookups are
// relative to an explicit tip so that a view stays consistent with the
// snapshot a stake input was evaluated against.
type ChainView interface {
	// BlockByHash returns the block with the given hash if it is part of
	// the index.
	BlockByHash(hash *chainhash.Hash) (BlockRef, bool)

	// Ancestor returns the block at the given height on the chain that
	// ends at tip.
	Ancestor(tip BlockRef, height int32) (BlockRef, bool)

	// AccumulatorChecksum returns the accumulator checksum of the given
	// denomination as of the block at height on the chain ending at tip.
	AccumulatorChecksum(tip BlockRef, height int32, denom Denomination) (uint32, bool)

	// ChecksumHeight returns the first height on the chain ending at tip at
	// which the checksum appeared for the denomination.
	ChecksumHeight(tip BlockRef, checksum uint32, denom Denomination) (int32, bool)
}

// TxSource locates transactions by hash.
type TxSource interface {
	FetchTx(hash *chainhash.Hash) (*Tx, error)
}

// RecordReader is the read side of the wallet's coin record store.
type RecordReader interface {
	// IsOutputSpent returns whether the ring-confidential output has been
	// consumed.
	IsOutputSpent(op wire.OutPoint) (bool, error)

	// FetchMint returns the mint record for the serial hash, or nil when
	// the wallet holds none.
	FetchMint(serialHash *chainhash.Hash) (*MintRecord, error)
}

// RecordWriter is the write side of the wallet's coin record store.  It is
// only handed out while the store's write lock is held.
type RecordWriter interface {
	RecordReader

	// MarkOutputSpent records that the output was consumed by the
	// transaction spender, expected in the block at height.
	MarkOutputSpent(op wire.OutPoint, spender chainhash.Hash, height int32) error

	// ConfirmMint moves the mint from candidate to confirmed, recording the
	// transaction that spent it and the height of its block.
	ConfirmMint(serialHash chainhash.Hash, spender chainhash.Hash, height int32) error
}

// RingMember is one member of a ring: a ring-confidential output identified by
// its global anon index.
type RingMember struct {
	AnonIndex  int64
	PubKey     []byte
	Commitment []byte
}

// DecoySelector draws decoy ring members from the chain.
type DecoySelector interface {
	// SelectDecoys returns count distinct outputs, none of which is the
	// output with the excluded anon index, that are mature at tip.
	SelectDecoys(exclude int64, count int, tip BlockRef) ([]RingMember, error)
}

// RingSigner is the ring-signature service.
type RingSigner interface {
	// NewOutput creates a ring-confidential output of the given value paying
	// to the wallet and records its amount and blinding factor in out.
	NewOutput(value btcutil.Amount, out *OutputsSigContext) (*RingCTOutput, error)

	// Sign produces a ring signature over sigHash for the input context and
	// proves it balances against the output context.
	Sign(in *InputsSigContext, out *OutputsSigContext, sigHash chainhash.Hash) ([]byte, error)
}

// SpendRequest describes the zerocoin spend a SpendProver must prove.
type SpendRequest struct {
	SerialHash          chainhash.Hash
	Denomination        Denomination
	AccumulatorChecksum uint32
	TxOutHash           chainhash.Hash
}

// SpendProver is the zero-knowledge proof service.
type SpendProver interface {
	// ProveSpend generates a fresh spend proof for the request.
	ProveSpend(req *SpendRequest) (*CoinSpend, error)
}

// Minter creates fresh zerocoin mints.
type Minter interface {
	NewMint(denom Denomination) (*ZerocoinMintOutput, error)
}

// Wallet bundles the wallet-side services used while assembling a coinstake.
// It is passed explicitly to every assembly step.
type Wallet struct {
	// Chain is the chain index view the attempt was evaluated against.
	Chain ChainView

	// Tip is the chain tip the coinstake builds on.
	Tip BlockRef

	Decoys DecoySelector
	Signer RingSigner
	Prover SpendProver
	Minter Minter

	// PayScript receives any plain-value remainder of a coinstake payout.
	PayScript []byte

	// Rand is the randomness source for the secret ring index.  Nil means
	// crypto/rand.
	Rand io.Reader
}
