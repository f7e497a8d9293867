// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	easyBits = 0x207fffff
	hardBits = 0x03000001
)

// TestKernelHash ensures the kernel commits to every input.
func TestKernelHash(t *testing.T) {
	base := KernelHash(1, 2, []byte{3}, 4)
	if again := KernelHash(1, 2, []byte{3}, 4); again != base {
		t.Fatalf("kernel not deterministic: %v != %v", again, base)
	}

	tests := []struct {
		name     string
		modifier uint64
		origin   int64
		unique   []byte
		txTime   int64
	}{
		{"modifier", 9, 2, []byte{3}, 4},
		{"origin time", 1, 9, []byte{3}, 4},
		{"uniqueness", 1, 2, []byte{9}, 4},
		{"tx time", 1, 2, []byte{3}, 9},
	}
	for _, test := range tests {
		got := KernelHash(test.modifier, test.origin, test.unique, test.txTime)
		if got == base {
			t.Errorf("%s: kernel did not change", test.name)
		}
	}
}

// TestCheckKernel ensures the target scales with the weight and that coins
// without weight never stake.
func TestCheckKernel(t *testing.T) {
	kernel := KernelHash(1, 2, []byte{3}, 4)

	if CheckKernel(&kernel, easyBits, 0) {
		t.Error("zero weight met the target")
	}
	if !CheckKernel(&kernel, easyBits, btcutil.Amount(btcutil.SatoshiPerBitcoin)) {
		t.Error("easy target missed")
	}
	if CheckKernel(&kernel, hardBits, btcutil.Amount(btcutil.SatoshiPerBitcoin)) {
		t.Error("hard target met")
	}

	single := KernelTarget(hardBits, 7)
	double := KernelTarget(hardBits, 14)
	want := new(big.Int).Mul(single, big.NewInt(2))
	if double.Cmp(want) != 0 {
		t.Errorf("target not linear in weight: got %v, want %v", double, want)
	}
}
