// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcutil"
)

// InputsSigContext is the signing context of the ring-confidential input.
// The real member's position in Members is secret.
type InputsSigContext struct {
	RingSize  int
	Rows      int
	Members   []RingMember
	RealIndex int
	KeyImage  []byte
	Amount    btcutil.Amount
	Blind     []byte
}

// OutputsSigContext is the signing context of the ring-confidential outputs.
// Amounts and Blinds are appended by the ring signer, one entry per output.
type OutputsSigContext struct {
	Amounts []btcutil.Amount
	Blinds  [][]byte
}

// Total returns the sum of the output amounts.
func (c *OutputsSigContext) Total() btcutil.Amount {
	var total btcutil.Amount
	for _, amt := range c.Amounts {
		total += amt
	}
	return total
}

// randIndex returns a uniformly random index below n read from r, which
// defaults to crypto/rand.
func randIndex(r io.Reader, n int) (int, error) {
	if r == nil {
		r = rand.Reader
	}

	// Rejection sampling keeps the result uniform.
	limit := ^uint32(0) - (^uint32(0) % uint32(n))
	var buf [4]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint32(buf[:])
		if v < limit {
			return int(v % uint32(n)), nil
		}
	}
}
