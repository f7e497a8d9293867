// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

// HeightToModifierHeight maps a checksum height to the height whose stake
// modifier seeds the kernel hash.  The result lies at least modulus blocks
// below height and is aligned to a multiple of modulus.  Heights below
// modulus have no modifier height.
func HeightToModifierHeight(height, modulus int32) (int32, error) {
	if modulus <= 0 {
		return 0, ruleErrorf(ErrInvalidParams, "modifier modulus %d "+
			"must be positive", modulus)
	}
	if height < modulus {
		return 0, ruleErrorf(ErrModifierUnavailable, "no modifier "+
			"height for height %d with modulus %d", height, modulus)
	}
	return (height - modulus) - (height % modulus), nil
}

// checkDepth returns ErrImmature unless the block at origin is buried at
// least the required stake depth under tip.
func checkDepth(params *Params, tip *BlockRef, origin int32) error {
	depth := tip.Height - origin
	if depth < params.RequiredStakeDepth {
		return ruleErrorf(ErrImmature, "coin at height %d has depth "+
			"%d at tip %d, need %d", origin, depth, tip.Height,
			params.RequiredStakeDepth)
	}
	return nil
}

// stakeModifier returns the stake modifier for a coin whose origin block is
// at originHeight: the modifier of the tip's ancestor at the modifier height
// derived from originHeight.
func stakeModifier(params *Params, chain ChainView, tip BlockRef,
	originHeight int32) (uint64, error) {

	if err := checkDepth(params, &tip, originHeight); err != nil {
		return 0, err
	}
	modHeight, err := HeightToModifierHeight(originHeight,
		params.ModifierModulus)
	if err != nil {
		return 0, err
	}
	block, ok := chain.Ancestor(tip, modHeight)
	if !ok {
		return 0, ruleErrorf(ErrMissingBlockIndex, "no block at "+
			"modifier height %d below tip %v", modHeight, tip.Hash)
	}
	return block.StakeModifier, nil
}
