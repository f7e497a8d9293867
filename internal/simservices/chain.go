// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package simservices provides a deterministic chain generator and
// deterministic stand-ins for the wallet services a coinstake is assembled
// with.  The stand-ins prove and sign nothing; they let the stake simulator
// and the package tests run without the ring signature and zerocoin
// libraries.
package simservices

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
)

// GenesisTime is the timestamp of the genesis block of generated chains.
const GenesisTime = 1700000000

// BlockSpacing is the number of seconds between generated blocks.
const BlockSpacing = 60

// BlockHash returns the hash of the generated block at height on branch.
func BlockHash(branch byte, height int32) chainhash.Hash {
	var buf [5]byte
	buf[0] = branch
	binary.LittleEndian.PutUint32(buf[1:], uint32(height))
	return chainhash.DoubleHashH(buf[:])
}

// ChecksumAt returns the accumulator checksum generated for denom at height.
func ChecksumAt(denom stake.Denomination, height int32) uint32 {
	var buf [12]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(denom))
	binary.LittleEndian.PutUint32(buf[8:], uint32(height))
	sum := chainhash.HashB(buf[:])
	return binary.LittleEndian.Uint32(sum[:4])
}

// ExtendChain connects generated blocks on branch to bi up to and including
// height through.  Blocks at heights in mints change the checksum of the
// listed denominations.
func ExtendChain(bi *blockchain.BlockIndex, branch byte, through int32,
	mints map[int32][]stake.Denomination) (stake.BlockRef, error) {

	tip, ok := bi.BestSnapshot()
	height := tip.Height + 1
	if !ok {
		height = 0
	}
	for ; height <= through; height++ {
		hash := BlockHash(branch, height)
		block := &blockchain.Block{
			Hash:          hash,
			PrevHash:      tip.Hash,
			Timestamp:     GenesisTime + int64(height)*BlockSpacing,
			StakeModifier: blockchain.NextStakeModifier(tip.StakeModifier, &hash),
		}
		if denoms, ok := mints[height]; ok {
			block.Checksums = make(map[stake.Denomination]uint32)
			for _, denom := range denoms {
				block.Checksums[denom] = ChecksumAt(denom, height)
			}
		}
		var err error
		tip, err = bi.AddBlock(block)
		if err != nil {
			return stake.BlockRef{}, err
		}
	}
	return tip, nil
}
