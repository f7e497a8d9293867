// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// RingSize is the number of members, real plus decoys, in the ring of
	// every ring-confidential stake input regardless of its value.
	RingSize = 32

	// InputRows is the number of rows proven per ring member: the output
	// key and the value commitment.
	InputRows = 2

	// Coin is the number of base units in one coin.
	Coin = btcutil.SatoshiPerBitcoin
)

// Denomination is the face value, in whole coins, of a zerocoin mint.
type Denomination int64

// These constants define the zerocoin denominations.
const (
	DenomTen         Denomination = 10
	DenomHundred     Denomination = 100
	DenomThousand    Denomination = 1000
	DenomTenThousand Denomination = 10000
)

// Denominations lists every valid denomination in descending order.
var Denominations = []Denomination{
	DenomTenThousand,
	DenomThousand,
	DenomHundred,
	DenomTen,
}

// IsValid returns whether d is one of the known denominations.
func (d Denomination) IsValid() bool {
	switch d {
	case DenomTen, DenomHundred, DenomThousand, DenomTenThousand:
		return true
	}
	return false
}

// Amount returns the value of the denomination in base units.
func (d Denomination) Amount() btcutil.Amount {
	return btcutil.Amount(int64(d) * Coin)
}

// String returns the denomination as a human-readable value.
func (d Denomination) String() string {
	if !d.IsValid() {
		return fmt.Sprintf("invalid denomination (%d)", int64(d))
	}
	return fmt.Sprintf("%d", int64(d))
}

// Params holds the staking policy constants.  They are supplied as
// configuration rather than hard-coded so the invariants of the package hold
// regardless of their concrete values.
type Params struct {
	// RequiredStakeDepth is the number of blocks a coin must be buried
	// under the chain tip before it becomes eligible to stake.
	RequiredStakeDepth int32 `long:"stakedepth" description:"Blocks a coin must be buried before it may stake"`

	// ModifierModulus is the offset between a checksum height and the
	// height whose stake modifier seeds the kernel hash.  Modifier heights
	// are aligned to multiples of it.
	ModifierModulus int32 `long:"modifiermodulus" description:"Offset and alignment of stake modifier heights"`

	// BracketMin is the minimum value a ring-confidential output needs to
	// carry any staking weight.  It is also the base of the value brackets.
	BracketMin btcutil.Amount `long:"bracketmin" description:"Minimum ring-confidential stake value in base units"`

	// ZerocoinStartHeight is the first height at which zerocoin checksums
	// exist.
	ZerocoinStartHeight int32 `long:"zerocoinstart" description:"First height with zerocoin accumulator checksums"`

	// DenomWeightPercent scales the weight of a zerocoin stake per
	// denomination.  Missing entries default to 100.
	DenomWeightPercent map[Denomination]int64 `no-flag:"true"`
}

// DefaultParams returns the default staking policy.
func DefaultParams() Params {
	return Params{
		RequiredStakeDepth:  200,
		ModifierModulus:     10,
		BracketMin:          btcutil.Amount(Coin),
		ZerocoinStartHeight: 1,
	}
}

// Validate returns an ErrInvalidParams rule error when the policy cannot be
// used.
func (p *Params) Validate() error {
	if p.RequiredStakeDepth <= 0 {
		return ruleErrorf(ErrInvalidParams, "required stake depth %d "+
			"must be positive", p.RequiredStakeDepth)
	}
	if p.ModifierModulus <= 0 {
		return ruleErrorf(ErrInvalidParams, "modifier modulus %d must "+
			"be positive", p.ModifierModulus)
	}
	if p.BracketMin <= 0 {
		return ruleErrorf(ErrInvalidParams, "bracket minimum %v must "+
			"be positive", p.BracketMin)
	}
	if p.ZerocoinStartHeight < 0 {
		return ruleErrorf(ErrInvalidParams, "zerocoin start height %d "+
			"is negative", p.ZerocoinStartHeight)
	}
	for denom, pct := range p.DenomWeightPercent {
		if !denom.IsValid() {
			return ruleErrorf(ErrInvalidParams, "weight given for "+
				"%v", denom)
		}
		if pct <= 0 || pct > 100 {
			return ruleErrorf(ErrInvalidParams, "weight percent %d "+
				"for denomination %v is outside (0, 100]", pct,
				denom)
		}
	}
	return nil
}

// weightPercent returns the weight scale applied to the given denomination.
func (p *Params) weightPercent(d Denomination) int64 {
	if pct, ok := p.DenomWeightPercent[d]; ok {
		return pct
	}
	return 100
}
