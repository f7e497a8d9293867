// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"encoding/binary"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain"
)

// KernelHash returns the proof-of-stake kernel of a coin: the double SHA-256
// of the stake modifier, the time of the coin's origin block, the coin's
// uniqueness fingerprint and the coinstake time.
func KernelHash(modifier uint64, originTime int64, uniqueness []byte, txTime int64) chainhash.Hash {
	buf := make([]byte, 0, 24+len(uniqueness))
	buf = binary.LittleEndian.AppendUint64(buf, modifier)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(originTime))
	buf = append(buf, uniqueness...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(txTime))
	return chainhash.DoubleHashH(buf)
}

// KernelTarget returns the target a kernel of a coin with the given weight
// must not exceed.  The target grows linearly with the weight.
func KernelTarget(bits uint32, weight btcutil.Amount) *big.Int {
	target := blockchain.CompactToBig(bits)
	return target.Mul(target, big.NewInt(int64(weight)))
}

// CheckKernel returns whether the kernel meets the target for the weight.
// Coins without weight never do.
func CheckKernel(kernel *chainhash.Hash, bits uint32, weight btcutil.Amount) bool {
	if weight <= 0 {
		return false
	}
	return blockchain.HashToBig(kernel).Cmp(KernelTarget(bits, weight)) <= 0
}
