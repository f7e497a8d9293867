// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain/stake"
)

// Block describes a block to connect to the index.
type Block struct {
	Hash          chainhash.Hash
	PrevHash      chainhash.Hash
	Timestamp     int64
	StakeModifier uint64

	// Checksums holds the accumulator checksums that changed in this
	// block.  Denominations without an entry keep the checksum of the
	// parent.
	Checksums map[stake.Denomination]uint32
}

// blockNode represents a block within the best chain.
type blockNode struct {
	// parent is the parent block for this node.
	parent *blockNode

	// hash is the hash of the block this node represents.
	hash chainhash.Hash

	height        int32
	timestamp     int64
	stakeModifier uint64

	// checksums is the accumulator checksum per denomination as of this
	// block.  It must be treated as immutable.
	checksums map[stake.Denomination]uint32
}

// newBlockNode returns a new block node for the given block and parent node.
func newBlockNode(block *Block, parent *blockNode) *blockNode {
	node := &blockNode{
		hash:          block.Hash,
		timestamp:     block.Timestamp,
		stakeModifier: block.StakeModifier,
	}
	checksums := make(map[stake.Denomination]uint32)
	if parent != nil {
		node.parent = parent
		node.height = parent.height + 1
		for denom, sum := range parent.checksums {
			checksums[denom] = sum
		}
	}
	for denom, sum := range block.Checksums {
		checksums[denom] = sum
	}
	node.checksums = checksums
	return node
}

// ref returns the immutable snapshot of the node.
func (node *blockNode) ref() stake.BlockRef {
	return stake.BlockRef{
		Height:        node.height,
		Hash:          node.hash,
		Timestamp:     node.timestamp,
		StakeModifier: node.stakeModifier,
	}
}

// checksumKey identifies the first occurrence of an accumulator checksum.
type checksumKey struct {
	denom    stake.Denomination
	checksum uint32
}

// BlockIndex is an in-memory index of the best chain.  Blocks are connected
// to and disconnected from the tip, so a reorganization is a series of
// DisconnectTip calls followed by AddBlock calls for the new branch.
//
// BlockIndex implements stake.ChainView.  Each of those methods takes the read
// lock on its own.  Use View to evaluate several lookups against one
// consistent snapshot.
type BlockIndex struct {
	zerocoinStart int32

	mtx       sync.RWMutex
	index     map[chainhash.Hash]*blockNode
	bestChain chainView

	// firstSeen maps every accumulator checksum on the best chain to the
	// height it first appeared at.
	firstSeen map[checksumKey]int32
}

// Ensure BlockIndex implements the stake.ChainView interface.
var _ stake.ChainView = (*BlockIndex)(nil)

// NewBlockIndex returns a new empty block index.  Accumulator checksums are
// only accepted from zerocoinStart on.
func NewBlockIndex(zerocoinStart int32) *BlockIndex {
	return &BlockIndex{
		zerocoinStart: zerocoinStart,
		index:         make(map[chainhash.Hash]*blockNode),
		firstSeen:     make(map[checksumKey]int32),
	}
}

// AddBlock connects the block to the tip of the best chain.  The first block
// added is the genesis block.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) AddBlock(block *Block) (stake.BlockRef, error) {
	bi.mtx.Lock()
	defer bi.mtx.Unlock()

	if _, ok := bi.index[block.Hash]; ok {
		str := fmt.Sprintf("already have block %v", block.Hash)
		return stake.BlockRef{}, ruleError(ErrDuplicateBlock, str)
	}
	tip := bi.bestChain.tip()
	if tip != nil && block.PrevHash != tip.hash {
		str := fmt.Sprintf("block %v does not extend tip %v",
			block.Hash, tip.hash)
		return stake.BlockRef{}, ruleError(ErrMissingParent, str)
	}

	node := newBlockNode(block, tip)
	for denom := range block.Checksums {
		if !denom.IsValid() {
			str := fmt.Sprintf("block %v has checksum for %v",
				block.Hash, denom)
			return stake.BlockRef{}, ruleError(ErrBadChecksum, str)
		}
		if node.height < bi.zerocoinStart {
			str := fmt.Sprintf("block %v at height %d has checksum "+
				"before zerocoin start %d", block.Hash,
				node.height, bi.zerocoinStart)
			return stake.BlockRef{}, ruleError(ErrBadChecksum, str)
		}
	}

	bi.index[node.hash] = node
	bi.bestChain.push(node)
	for denom, sum := range node.checksums {
		key := checksumKey{denom: denom, checksum: sum}
		if _, ok := bi.firstSeen[key]; !ok {
			bi.firstSeen[key] = node.height
		}
	}

	log.Debugf("Connected block %v (height %d)", node.hash, node.height)
	return node.ref(), nil
}

// DisconnectTip removes the tip of the best chain and returns the new tip.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) DisconnectTip() (stake.BlockRef, error) {
	bi.mtx.Lock()
	defer bi.mtx.Unlock()

	tip := bi.bestChain.tip()
	if tip == nil {
		return stake.BlockRef{}, ruleError(ErrNoTip, "block index is empty")
	}
	if tip.parent == nil {
		return stake.BlockRef{}, ruleError(ErrDisconnectGenesis,
			"cannot disconnect the genesis block")
	}

	for denom, sum := range tip.checksums {
		key := checksumKey{denom: denom, checksum: sum}
		if bi.firstSeen[key] == tip.height {
			delete(bi.firstSeen, key)
		}
	}
	bi.bestChain.pop()
	delete(bi.index, tip.hash)

	log.Debugf("Disconnected block %v (height %d)", tip.hash, tip.height)
	return tip.parent.ref(), nil
}

// BestSnapshot returns the tip of the best chain.  The second result is false
// while the index is empty.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) BestSnapshot() (stake.BlockRef, bool) {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()

	tip := bi.bestChain.tip()
	if tip == nil {
		return stake.BlockRef{}, false
	}
	return tip.ref(), true
}

// Height returns the height of the best chain, or -1 while the index is
// empty.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) Height() int32 {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return bi.bestChain.height()
}

// LookupNode returns the block with the given hash.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) LookupNode(hash *chainhash.Hash) (stake.BlockRef, bool) {
	return bi.BlockByHash(hash)
}

// View calls fn with a chain view that is held stable until fn returns.
// The view must not be used after that.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) View(fn func(stake.ChainView) error) error {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return fn(lockedView{bi})
}

// ViewBest is like View but also passes the tip of the best chain, which
// cannot change until fn returns.  The tip is the zero BlockRef while the
// index is empty.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) ViewBest(fn func(stake.ChainView, stake.BlockRef) error) error {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()

	var best stake.BlockRef
	if tip := bi.bestChain.tip(); tip != nil {
		best = tip.ref()
	}
	return fn(lockedView{bi}, best)
}

// BlockByHash returns the block with the given hash.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) BlockByHash(hash *chainhash.Hash) (stake.BlockRef, bool) {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return bi.blockByHash(hash)
}

// Ancestor returns the block at height on the chain ending at tip.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) Ancestor(tip stake.BlockRef, height int32) (stake.BlockRef, bool) {
	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return bi.ancestor(tip, height)
}

// AccumulatorChecksum returns the checksum of denom as of the block at
// height on the chain ending at tip.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) AccumulatorChecksum(tip stake.BlockRef, height int32,
	denom stake.Denomination) (uint32, bool) {

	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return bi.accumulatorChecksum(tip, height, denom)
}

// ChecksumHeight returns the first height the checksum of denom appeared at
// on the chain ending at tip.
//
// This function is safe for concurrent access.
func (bi *BlockIndex) ChecksumHeight(tip stake.BlockRef, checksum uint32,
	denom stake.Denomination) (int32, bool) {

	bi.mtx.RLock()
	defer bi.mtx.RUnlock()
	return bi.checksumHeight(tip, checksum, denom)
}

// onChain returns the node of tip when it is part of the best chain.
//
// This function MUST be called with the index lock held (for reads).
func (bi *BlockIndex) onChain(tip *stake.BlockRef) *blockNode {
	node := bi.bestChain.nodeByHeight(tip.Height)
	if node == nil || node.hash != tip.Hash {
		return nil
	}
	return node
}

// This function MUST be called with the index lock held (for reads).
func (bi *BlockIndex) blockByHash(hash *chainhash.Hash) (stake.BlockRef, bool) {
	node, ok := bi.index[*hash]
	if !ok {
		return stake.BlockRef{}, false
	}
	return node.ref(), true
}

// This function MUST be called with the index lock held (for reads).
func (bi *BlockIndex) ancestor(tip stake.BlockRef, height int32) (stake.BlockRef, bool) {
	if bi.onChain(&tip) == nil || height > tip.Height {
		return stake.BlockRef{}, false
	}
	node := bi.bestChain.nodeByHeight(height)
	if node == nil {
		return stake.BlockRef{}, false
	}
	return node.ref(), true
}

// This function MUST be called with the index lock held (for reads).
func (bi *BlockIndex) accumulatorChecksum(tip stake.BlockRef, height int32,
	denom stake.Denomination) (uint32, bool) {

	if bi.onChain(&tip) == nil || height > tip.Height {
		return 0, false
	}
	node := bi.bestChain.nodeByHeight(height)
	if node == nil {
		return 0, false
	}
	sum, ok := node.checksums[denom]
	return sum, ok
}

// This function MUST be called with the index lock held (for reads).
func (bi *BlockIndex) checksumHeight(tip stake.BlockRef, checksum uint32,
	denom stake.Denomination) (int32, bool) {

	if bi.onChain(&tip) == nil {
		return 0, false
	}
	height, ok := bi.firstSeen[checksumKey{denom: denom, checksum: checksum}]
	if !ok || height > tip.Height {
		return 0, false
	}
	return height, true
}

// lockedView is the stake.ChainView handed out by View.  The index lock is
// already held, so its methods do not lock again.
type lockedView struct {
	bi *BlockIndex
}

func (v lockedView) BlockByHash(hash *chainhash.Hash) (stake.BlockRef, bool) {
	return v.bi.blockByHash(hash)
}

func (v lockedView) Ancestor(tip stake.BlockRef, height int32) (stake.BlockRef, bool) {
	return v.bi.ancestor(tip, height)
}

func (v lockedView) AccumulatorChecksum(tip stake.BlockRef, height int32,
	denom stake.Denomination) (uint32, bool) {

	return v.bi.accumulatorChecksum(tip, height, denom)
}

func (v lockedView) ChecksumHeight(tip stake.BlockRef, checksum uint32,
	denom stake.Denomination) (int32, bool) {

	return v.bi.checksumHeight(tip, checksum, denom)
}

// NextStakeModifier derives the stake modifier of a block from the modifier
// of its parent and its own hash.
func NextStakeModifier(prev uint64, hash *chainhash.Hash) uint64 {
	var buf [8 + chainhash.HashSize]byte
	binary.LittleEndian.PutUint64(buf[:8], prev)
	copy(buf[8:], hash[:])
	sum := chainhash.DoubleHashB(buf[:])
	return binary.LittleEndian.Uint64(sum[:8])
}
