// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ZerocoinStake is a zerocoin mint offered for staking.  A candidate stake is
// an unspent mint held by the wallet.  A confirmed stake is reconstructed
// from the spend embedded in a coinstake.
type ZerocoinStake struct {
	params     *Params
	denom      Denomination
	serialHash chainhash.Hash

	// mint is set while the stake is a candidate.  Candidates know the
	// height their mint was confirmed at, confirmed stakes know the
	// accumulator checksum their spend was proven against.
	mint       bool
	mintTxHash chainhash.Hash
	mintHeight int32
	checksum   uint32
	spend      *CoinSpend

	// origin is cached by IndexFrom together with the checksum it was
	// resolved from.  A coinstake built from a candidate spends against
	// originChecksum so the kernel can be re-derived from the spend.
	origin         BlockRef
	originChecksum uint32
	hasOrigin      bool

	// spendChecksum is the checksum the spend proof is generated against
	// while assembling a coinstake.
	spendChecksum uint32
	script        []byte
	assembly
}

// Ensure ZerocoinStake implements the StakeInput interface.
var _ StakeInput = (*ZerocoinStake)(nil)

// NewZerocoinStake returns a candidate stake input for the wallet's mint.
func NewZerocoinStake(params *Params, mint *MintRecord) (*ZerocoinStake, error) {
	if mint == nil {
		return nil, stakeRuleError(ErrMissingMint, "no mint record")
	}
	if !mint.Denomination.IsValid() {
		return nil, ruleErrorf(ErrMalformedContext, "mint %v has %v",
			mint.SerialHash, mint.Denomination)
	}
	if mint.State != MintCandidate {
		return nil, ruleErrorf(ErrAlreadySpent, "mint %v is %v",
			mint.SerialHash, mint.State)
	}
	return &ZerocoinStake{
		params:     params,
		denom:      mint.Denomination,
		serialHash: mint.SerialHash,
		mint:       true,
		mintTxHash: mint.MintTxHash,
		mintHeight: mint.MintHeight,
	}, nil
}

// NewZerocoinStakeFromSpend returns a confirmed stake input for the coin
// spent by spend.
func NewZerocoinStakeFromSpend(params *Params, spend *CoinSpend) (*ZerocoinStake, error) {
	if spend == nil {
		return nil, stakeRuleError(ErrMalformedContext, "no coin spend")
	}
	if !spend.Denomination.IsValid() {
		return nil, ruleErrorf(ErrMalformedContext, "spend of %v has %v",
			spend.SerialHash, spend.Denomination)
	}
	return &ZerocoinStake{
		params:     params,
		denom:      spend.Denomination,
		serialHash: spend.SerialHash,
		checksum:   spend.AccumulatorChecksum,
		spend:      spend,
	}, nil
}

func (s *ZerocoinStake) stakeInput() {}

// Kind returns KindZerocoin.
func (s *ZerocoinStake) Kind() Kind { return KindZerocoin }

// IsZerocoins returns true.
func (s *ZerocoinStake) IsZerocoins() bool { return true }

// Denomination returns the denomination of the staked mint.
func (s *ZerocoinStake) Denomination() Denomination { return s.denom }

// SerialHash returns the hash of the serial of the staked mint.
func (s *ZerocoinStake) SerialHash() chainhash.Hash { return s.serialHash }

// State returns whether the stake is a candidate or confirmed.
func (s *ZerocoinStake) State() MintState {
	if s.mint {
		return MintCandidate
	}
	return MintConfirmed
}

// Spend returns the coin spend of a confirmed stake, or nil.
func (s *ZerocoinStake) Spend() *CoinSpend { return s.spend }

// ChecksumHeight returns the height the coin's accumulator checksum first
// appeared at on the chain ending at tip.  For a candidate it is the checksum
// as of the required stake depth below tip, which is the checksum its spend
// is proven against.  For a confirmed stake it is the checksum the spend was
// proven against.
func (s *ZerocoinStake) ChecksumHeight(chain ChainView, tip BlockRef) (int32, error) {
	_, height, err := s.resolveChecksum(chain, tip)
	return height, err
}

// resolveChecksum returns the checksum ChecksumHeight uses along with the
// height it first appeared at.
func (s *ZerocoinStake) resolveChecksum(chain ChainView, tip BlockRef) (uint32, int32, error) {
	checksum := s.checksum
	if s.mint {
		var err error
		checksum, err = s.spendableChecksum(chain, tip)
		if err != nil {
			return 0, 0, err
		}
	}

	height, ok := chain.ChecksumHeight(tip, checksum, s.denom)
	if !ok {
		return 0, 0, ruleErrorf(ErrMissingChecksum, "%v checksum %08x "+
			"is not on the chain ending at %v", s.denom, checksum,
			tip.Hash)
	}
	return checksum, height, nil
}

// spendableChecksum returns the accumulator checksum of the candidate's
// denomination as of the required stake depth below tip.  The mint must
// already be accumulated at that height.
func (s *ZerocoinStake) spendableChecksum(chain ChainView, tip BlockRef) (uint32, error) {
	if s.mintHeight > tip.Height {
		return 0, ruleErrorf(ErrChainTooShallow, "mint %v at height %d "+
			"is above tip %d", s.serialHash, s.mintHeight, tip.Height)
	}
	height := tip.Height - s.params.RequiredStakeDepth
	if height < s.mintHeight {
		return 0, ruleErrorf(ErrImmature, "mint %v at height %d is "+
			"not accumulated at height %d", s.serialHash,
			s.mintHeight, height)
	}
	checksum, ok := chain.AccumulatorChecksum(tip, height, s.denom)
	if !ok {
		return 0, ruleErrorf(ErrMissingChecksum, "no %v checksum at "+
			"height %d", s.denom, height)
	}
	return checksum, nil
}

// IndexFrom returns the block at the checksum height of the coin.
func (s *ZerocoinStake) IndexFrom(chain ChainView, tip BlockRef) (BlockRef, error) {
	if s.hasOrigin {
		return s.origin, nil
	}

	checksum, height, err := s.resolveChecksum(chain, tip)
	if err != nil {
		return BlockRef{}, err
	}
	if height < s.params.ZerocoinStartHeight {
		return BlockRef{}, ruleErrorf(ErrMissingBlockIndex, "checksum "+
			"height %d is below zerocoin start %d", height,
			s.params.ZerocoinStartHeight)
	}
	if height > tip.Height {
		return BlockRef{}, ruleErrorf(ErrChainTooShallow, "checksum "+
			"height %d is above tip %d", height, tip.Height)
	}
	block, ok := chain.Ancestor(tip, height)
	if !ok {
		return BlockRef{}, ruleErrorf(ErrMissingBlockIndex, "no block "+
			"at checksum height %d", height)
	}

	s.origin = block
	s.originChecksum = checksum
	s.hasOrigin = true
	return block, nil
}

// TxFrom returns the transaction that minted the coin.
func (s *ZerocoinStake) TxFrom(records RecordReader, txs TxSource) (*Tx, error) {
	txHash := s.mintTxHash
	if !s.mint {
		rec, err := records.FetchMint(&s.serialHash)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, ruleErrorf(ErrMissingTx, "no mint record for "+
				"spent serial %v", s.serialHash)
		}
		txHash = rec.MintTxHash
	}

	tx, err := txs.FetchTx(&txHash)
	if err != nil {
		return nil, ruleErrorf(ErrMissingTx, "unable to fetch mint "+
			"transaction %v: %v", txHash, err)
	}
	if tx == nil {
		return nil, ruleErrorf(ErrMissingTx, "mint transaction %v not "+
			"found", txHash)
	}
	return tx, nil
}

// Value returns the face value of the denomination.
func (s *ZerocoinStake) Value() (btcutil.Amount, error) {
	return s.denom.Amount(), nil
}

// Weight returns the value scaled by the weight percentage of the
// denomination.
func (s *ZerocoinStake) Weight() (btcutil.Amount, error) {
	value, err := s.Value()
	if err != nil {
		return 0, err
	}
	pct := s.params.weightPercent(s.denom)
	return value / 100 * btcutil.Amount(pct), nil
}

// Modifier returns the stake modifier for the coin at tip.  The checksum
// height must be buried at least the required stake depth.
func (s *ZerocoinStake) Modifier(chain ChainView, tip BlockRef) (uint64, error) {
	origin, err := s.IndexFrom(chain, tip)
	if err != nil {
		return 0, err
	}
	return stakeModifier(s.params, chain, tip, origin.Height)
}

// Uniqueness returns the encoded serial hash.
func (s *ZerocoinStake) Uniqueness() ([]byte, error) {
	return encodeUniqueness(s.serialHash[:]), nil
}

// CreateTxIn returns the zerocoin spend input.  The spend proof is generated
// by CompleteTx against the checksum the coin's origin was resolved from,
// which is the checksum the required stake depth below the tip unless
// IndexFrom already cached an origin.
func (s *ZerocoinStake) CreateTxIn(w *Wallet) (*wire.TxIn, error) {
	if err := s.checkCreateInput(); err != nil {
		return nil, err
	}
	if !s.mint {
		return nil, ruleErrorf(ErrAlreadySpent, "mint %v is already "+
			"spent", s.serialHash)
	}
	if w == nil || w.Chain == nil {
		return nil, stakeRuleError(ErrInvalidParams, "wallet has no "+
			"chain view")
	}

	if _, err := s.IndexFrom(w.Chain, w.Tip); err != nil {
		return nil, err
	}

	script := make([]byte, 0, 1+chainhash.HashSize)
	script = append(script, OpZerocoinSpend)
	script = append(script, s.serialHash[:]...)

	s.spendChecksum = s.originChecksum
	s.script = script
	s.tip = w.Tip
	s.haveInput = true

	prevOut := wire.NewOutPoint(&chainhash.Hash{}, ZerocoinMarkerIndex)
	return wire.NewTxIn(prevOut, script, nil), nil
}

// CreateTxOuts splits total into fresh mints, largest denomination first,
// and pays any remainder below the smallest denomination as a plain output.
func (s *ZerocoinStake) CreateTxOuts(w *Wallet, total btcutil.Amount) ([]TxOut, error) {
	if err := s.checkCreateOutputs(); err != nil {
		return nil, err
	}
	if w == nil || w.Minter == nil {
		return nil, stakeRuleError(ErrInvalidParams, "wallet has no "+
			"minter")
	}
	value, _ := s.Value()
	if total < value {
		return nil, ruleErrorf(ErrMalformedContext, "payout %v is below "+
			"stake value %v", total, value)
	}

	var outs []TxOut
	remaining := total
	for _, denom := range Denominations {
		for remaining >= denom.Amount() {
			mint, err := w.Minter.NewMint(denom)
			if err != nil {
				return nil, ruleErrorf(ErrSpendProof, "unable to "+
					"mint %v: %v", denom, err)
			}
			if mint.Denomination != denom {
				return nil, ruleErrorf(ErrSpendProof, "minter "+
					"returned %v, want %v",
					mint.Denomination, denom)
			}
			outs = append(outs, mint)
			remaining -= denom.Amount()
		}
	}
	if remaining > 0 {
		outs = append(outs, &StandardOutput{
			Value:    remaining,
			PkScript: w.PayScript,
		})
	}

	s.haveOutputs = true
	return outs, nil
}

// CompleteTx generates a fresh spend proof bound to the outputs of tx and
// embeds it in the spend input.
func (s *ZerocoinStake) CompleteTx(w *Wallet, tx *Tx) error {
	if err := s.checkComplete(); err != nil {
		return err
	}
	if w == nil || w.Prover == nil {
		return stakeRuleError(ErrInvalidParams, "wallet has no spend "+
			"prover")
	}
	idx, ok := tx.findInput(s.script)
	if !ok {
		return stakeRuleError(ErrMalformedContext, "coinstake does not "+
			"contain the zerocoin spend input")
	}
	txOutHash, err := tx.OutputsHash()
	if err != nil {
		return ruleErrorf(ErrMalformedContext, "unable to hash "+
			"coinstake outputs: %v", err)
	}

	req := &SpendRequest{
		SerialHash:          s.serialHash,
		Denomination:        s.denom,
		AccumulatorChecksum: s.spendChecksum,
		TxOutHash:           txOutHash,
	}
	spend, err := w.Prover.ProveSpend(req)
	if err != nil {
		return ruleErrorf(ErrSpendProof, "unable to prove spend of %v: "+
			"%v", s.serialHash, err)
	}
	if spend == nil || spend.SerialHash != req.SerialHash ||
		spend.Denomination != req.Denomination ||
		spend.AccumulatorChecksum != req.AccumulatorChecksum ||
		spend.TxOutHash != req.TxOutHash {

		return ruleErrorf(ErrSpendProof, "spend proof for %v does not "+
			"match the request", s.serialHash)
	}

	script := make([]byte, 0, 1+len(spend.Proof)+80)
	script = append(script, OpZerocoinSpend)
	script = append(script, spend.Bytes()...)
	tx.TxIn[idx].SignatureScript = script

	txHash, err := tx.TxHash()
	if err != nil {
		return ruleErrorf(ErrMalformedContext, "unable to hash "+
			"coinstake: %v", err)
	}
	s.spend = spend
	s.txHash = txHash
	s.completed = true
	log.Debugf("Completed zerocoin coinstake %v spending %v %v", txHash,
		s.denom, s.serialHash)
	return nil
}

// MarkSpent moves the wallet's mint record from candidate to confirmed,
// recording txHash as the spending coinstake.  The stake itself becomes a
// confirmed stake.
func (s *ZerocoinStake) MarkSpent(rw RecordWriter, txHash chainhash.Hash) error {
	if err := s.checkMarkSpent(txHash); err != nil {
		return err
	}

	rec, err := rw.FetchMint(&s.serialHash)
	if err != nil {
		return err
	}
	if rec == nil {
		return ruleErrorf(ErrMissingMint, "wallet has no mint %v",
			s.serialHash)
	}
	if rec.State != MintCandidate {
		return ruleErrorf(ErrAlreadySpent, "mint %v is %v", s.serialHash,
			rec.State)
	}
	if err := rw.ConfirmMint(s.serialHash, txHash, s.spendHeight()); err != nil {
		return err
	}

	s.spent = true
	s.mint = false
	s.checksum = s.spend.AccumulatorChecksum
	s.hasOrigin = false
	return nil
}
