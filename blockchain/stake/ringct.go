// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// RingCTStake is a ring-confidential output offered for staking.  Its value
// is hidden on chain, so its weight is bracketed, and spending it hides the
// real output inside a ring of RingSize members.
type RingCTStake struct {
	params   *Params
	coin     *OutputRecord
	rtx      TransactionRecord
	keyImage []byte

	inCtx  InputsSigContext
	outCtx OutputsSigContext

	origin    BlockRef
	hasOrigin bool

	script []byte
	assembly
}

// Ensure RingCTStake implements the StakeInput interface.
var _ StakeInput = (*RingCTStake)(nil)

// NewRingCTStake returns a stake input for the wallet output coin whose key
// image was computed by the wallet.
func NewRingCTStake(params *Params, coin *OutputRecord, keyImage []byte) (*RingCTStake, error) {
	if coin == nil || coin.Tx == nil {
		return nil, stakeRuleError(ErrMalformedContext, "output record "+
			"has no transaction record")
	}
	out, ok := coin.Tx.Output(coin.Index)
	if !ok {
		return nil, ruleErrorf(ErrMalformedContext, "transaction %v has "+
			"no output %d", coin.Tx.TxHash, coin.Index)
	}
	if len(keyImage) != KeyImageSize {
		return nil, ruleErrorf(ErrMalformedContext, "key image is %d "+
			"bytes, want %d", len(keyImage), KeyImageSize)
	}

	s := &RingCTStake{
		params:   params,
		coin:     coin,
		rtx:      *coin.Tx,
		keyImage: append([]byte(nil), keyImage...),
		inCtx: InputsSigContext{
			RingSize: RingSize,
			Rows:     InputRows,
		},
	}
	s.inCtx.KeyImage = s.keyImage
	if out.HasAmount {
		s.inCtx.Amount = out.Amount
		s.inCtx.Blind = out.Blind
	}
	return s, nil
}

func (s *RingCTStake) stakeInput() {}

// Kind returns KindRingCT.
func (s *RingCTStake) Kind() Kind { return KindRingCT }

// IsZerocoins returns false.
func (s *RingCTStake) IsZerocoins() bool { return false }

// OutPoint returns the outpoint of the staked output.
func (s *RingCTStake) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: s.rtx.TxHash, Index: s.coin.Index}
}

// Depth returns the depth of the output when the wallet selected it.
func (s *RingCTStake) Depth() int32 {
	return s.coin.Depth
}

// IndexFrom returns the block that contains the transaction of the staked
// output.  The block must be on the chain ending at tip.
func (s *RingCTStake) IndexFrom(chain ChainView, tip BlockRef) (BlockRef, error) {
	if s.hasOrigin {
		return s.origin, nil
	}

	block, ok := chain.BlockByHash(&s.rtx.BlockHash)
	if !ok {
		return BlockRef{}, ruleErrorf(ErrMissingBlockIndex, "block %v "+
			"of transaction %v is not indexed", s.rtx.BlockHash,
			s.rtx.TxHash)
	}
	if block.Height > tip.Height {
		return BlockRef{}, ruleErrorf(ErrChainTooShallow, "block %v "+
			"at height %d is above tip %d", block.Hash,
			block.Height, tip.Height)
	}
	ancestor, ok := chain.Ancestor(tip, block.Height)
	if !ok || ancestor.Hash != block.Hash {
		return BlockRef{}, ruleErrorf(ErrMissingBlockIndex, "block %v "+
			"is not on the chain ending at %v", block.Hash, tip.Hash)
	}

	s.origin = block
	s.hasOrigin = true
	return block, nil
}

// TxFrom returns the transaction of the staked output.
func (s *RingCTStake) TxFrom(_ RecordReader, txs TxSource) (*Tx, error) {
	tx, err := txs.FetchTx(&s.rtx.TxHash)
	if err != nil {
		return nil, ruleErrorf(ErrMissingTx, "unable to fetch "+
			"transaction %v: %v", s.rtx.TxHash, err)
	}
	if tx == nil {
		return nil, ruleErrorf(ErrMissingTx, "transaction %v not found",
			s.rtx.TxHash)
	}
	if int(s.coin.Index) >= len(tx.TxOut) {
		return nil, ruleErrorf(ErrMalformedContext, "transaction %v has "+
			"%d outputs, staked output is %d", s.rtx.TxHash,
			len(tx.TxOut), s.coin.Index)
	}
	if tx.TxOut[s.coin.Index].Type() != OutputRingCT {
		return nil, ruleErrorf(ErrMalformedContext, "output %v is a "+
			"%v output", s.OutPoint(),
			tx.TxOut[s.coin.Index].Type())
	}
	return tx, nil
}

// Value returns the decrypted value of the staked output.
func (s *RingCTStake) Value() (btcutil.Amount, error) {
	out, ok := s.rtx.Output(s.coin.Index)
	if !ok {
		return 0, ruleErrorf(ErrMalformedContext, "transaction %v has "+
			"no output %d", s.rtx.TxHash, s.coin.Index)
	}
	if !out.HasAmount {
		return 0, ruleErrorf(ErrAmountUnknown, "amount of %v is not "+
			"decrypted", s.OutPoint())
	}
	if out.Amount < 0 {
		return 0, ruleErrorf(ErrMalformedContext, "output %v has "+
			"negative amount %v", s.OutPoint(), out.Amount)
	}
	return out.Amount, nil
}

// Weight returns the floor of the value bracket the output falls into, so
// the exact value is not revealed by the kernel.  Values below the bracket
// minimum have no weight.
func (s *RingCTStake) Weight() (btcutil.Amount, error) {
	value, err := s.Value()
	if err != nil {
		return 0, err
	}
	if value < s.params.BracketMin {
		log.Tracef("Output %v below bracket minimum %v", s.OutPoint(),
			s.params.BracketMin)
		return 0, nil
	}
	return bracketMinValue(s.params.BracketMin, value), nil
}

// bracketMinValue returns the largest min*2^k that does not exceed value.
func bracketMinValue(min, value btcutil.Amount) btcutil.Amount {
	bracket := min
	for bracket <= value/2 {
		bracket *= 2
	}
	return bracket
}

// Modifier returns the stake modifier for the output at tip.  The output must
// be buried at least the required stake depth.
func (s *RingCTStake) Modifier(chain ChainView, tip BlockRef) (uint64, error) {
	origin, err := s.IndexFrom(chain, tip)
	if err != nil {
		return 0, err
	}
	return stakeModifier(s.params, chain, tip, origin.Height)
}

// Uniqueness returns the encoded key image of the output.
func (s *RingCTStake) Uniqueness() ([]byte, error) {
	if len(s.keyImage) != KeyImageSize {
		return nil, stakeRuleError(ErrMalformedContext, "key image "+
			"not available")
	}
	return encodeUniqueness(s.keyImage), nil
}

// KeyImage returns the key image of the staked output.
func (s *RingCTStake) KeyImage() []byte {
	return s.keyImage
}

// CreateTxIn builds a ring of RingSize members, the staked output at a
// random secret position among decoys, and returns the anon input spending
// it.
func (s *RingCTStake) CreateTxIn(w *Wallet) (*wire.TxIn, error) {
	if err := s.checkCreateInput(); err != nil {
		return nil, err
	}
	if w == nil || w.Decoys == nil {
		return nil, stakeRuleError(ErrInvalidParams, "wallet has no "+
			"decoy selector")
	}
	if _, err := s.Value(); err != nil {
		return nil, err
	}
	out, _ := s.rtx.Output(s.coin.Index)

	decoys, err := w.Decoys.SelectDecoys(out.AnonIndex, RingSize-1, w.Tip)
	if err != nil {
		return nil, ruleErrorf(ErrDecoySelection, "unable to select "+
			"decoys for %v: %v", s.OutPoint(), err)
	}
	if len(decoys) != RingSize-1 {
		return nil, ruleErrorf(ErrDecoySelection, "got %d decoys, "+
			"want %d", len(decoys), RingSize-1)
	}
	seen := make(map[int64]struct{}, RingSize)
	seen[out.AnonIndex] = struct{}{}
	for _, d := range decoys {
		if _, ok := seen[d.AnonIndex]; ok {
			return nil, ruleErrorf(ErrDecoySelection, "duplicate "+
				"ring member %d", d.AnonIndex)
		}
		seen[d.AnonIndex] = struct{}{}
	}

	realIndex, err := randIndex(w.Rand, RingSize)
	if err != nil {
		return nil, ruleErrorf(ErrDecoySelection, "unable to pick ring "+
			"position: %v", err)
	}
	members := make([]RingMember, 0, RingSize)
	members = append(members, decoys[:realIndex]...)
	members = append(members, RingMember{
		AnonIndex:  out.AnonIndex,
		PubKey:     out.PubKey,
		Commitment: out.Commitment,
	})
	members = append(members, decoys[realIndex:]...)

	script, err := anonInputScript(s.keyImage, members)
	if err != nil {
		return nil, ruleErrorf(ErrMalformedContext, "unable to encode "+
			"anon input: %v", err)
	}

	s.inCtx.Members = members
	s.inCtx.RealIndex = realIndex
	s.script = script
	s.tip = w.Tip
	s.haveInput = true

	prevOut := wire.NewOutPoint(&chainhash.Hash{}, AnonMarkerIndex)
	return wire.NewTxIn(prevOut, script, nil), nil
}

// anonInputScript encodes the key image and the anon indices of the ring
// members.
func anonInputScript(keyImage []byte, members []RingMember) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarBytes(&buf, 0, keyImage); err != nil {
		return nil, err
	}
	if err := wire.WriteVarInt(&buf, 0, uint64(len(members))); err != nil {
		return nil, err
	}
	for _, m := range members {
		if err := wire.WriteVarInt(&buf, 0, uint64(m.AnonIndex)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ParseAnonInputScript returns the key image and ring member anon indices
// encoded in the signature script of a ring-confidential input.
func ParseAnonInputScript(script []byte) ([]byte, []int64, error) {
	r := bytes.NewReader(script)
	keyImage, err := wire.ReadVarBytes(r, 0, KeyImageSize, "key image")
	if err != nil {
		return nil, nil, ruleErrorf(ErrMalformedContext, "malformed "+
			"key image: %v", err)
	}
	count, err := wire.ReadVarInt(r, 0)
	if err != nil || count != RingSize {
		return nil, nil, ruleErrorf(ErrMalformedContext, "malformed "+
			"ring of %d members", count)
	}
	indices := make([]int64, 0, count)
	for i := uint64(0); i < count; i++ {
		idx, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, nil, ruleErrorf(ErrMalformedContext,
				"malformed ring member %d: %v", i, err)
		}
		indices = append(indices, int64(idx))
	}
	return keyImage, indices, nil
}

// CreateTxOuts returns a single ring-confidential output of total paying to
// the wallet.
func (s *RingCTStake) CreateTxOuts(w *Wallet, total btcutil.Amount) ([]TxOut, error) {
	if err := s.checkCreateOutputs(); err != nil {
		return nil, err
	}
	if w == nil || w.Signer == nil {
		return nil, stakeRuleError(ErrInvalidParams, "wallet has no "+
			"ring signer")
	}
	value, err := s.Value()
	if err != nil {
		return nil, err
	}
	if total < value {
		return nil, ruleErrorf(ErrMalformedContext, "payout %v is below "+
			"stake value %v", total, value)
	}

	out, err := w.Signer.NewOutput(total, &s.outCtx)
	if err != nil {
		return nil, ruleErrorf(ErrRingSignature, "unable to create "+
			"output: %v", err)
	}
	s.haveOutputs = true
	return []TxOut{out}, nil
}

// CompleteTx ring signs the coinstake and stores the signature in the
// witness of the anon input.
func (s *RingCTStake) CompleteTx(w *Wallet, tx *Tx) error {
	if err := s.checkComplete(); err != nil {
		return err
	}
	if w == nil || w.Signer == nil {
		return stakeRuleError(ErrInvalidParams, "wallet has no ring "+
			"signer")
	}
	idx, ok := tx.findInput(s.script)
	if !ok {
		return stakeRuleError(ErrMalformedContext, "coinstake does not "+
			"contain the anon input")
	}
	if s.outCtx.Total() < s.inCtx.Amount {
		return ruleErrorf(ErrRingSignature, "outputs %v do not cover "+
			"input %v", s.outCtx.Total(), s.inCtx.Amount)
	}

	sigHash, err := tx.TxHash()
	if err != nil {
		return ruleErrorf(ErrMalformedContext, "unable to hash "+
			"coinstake: %v", err)
	}
	sig, err := w.Signer.Sign(&s.inCtx, &s.outCtx, sigHash)
	if err != nil {
		return ruleErrorf(ErrRingSignature, "unable to sign "+
			"coinstake %v: %v", sigHash, err)
	}
	if len(sig) == 0 {
		return stakeRuleError(ErrRingSignature, "ring signer returned "+
			"an empty signature")
	}
	tx.TxIn[idx].Witness = wire.TxWitness{sig}

	s.txHash = sigHash
	s.completed = true
	log.Debugf("Completed ringct coinstake %v spending %v", sigHash,
		s.OutPoint())
	return nil
}

// MarkSpent records the staked output as consumed by the completed coinstake
// tx.
func (s *RingCTStake) MarkSpent(rw RecordWriter, tx *Tx) error {
	txHash, err := tx.TxHash()
	if err != nil {
		return ruleErrorf(ErrMalformedContext, "unable to hash "+
			"coinstake: %v", err)
	}
	if err := s.checkMarkSpent(txHash); err != nil {
		return err
	}

	op := s.OutPoint()
	spent, err := rw.IsOutputSpent(op)
	if err != nil {
		return err
	}
	if spent {
		return ruleErrorf(ErrAlreadySpent, "output %v already spent", op)
	}
	if err := rw.MarkOutputSpent(op, txHash, s.spendHeight()); err != nil {
		return err
	}
	s.spent = true
	return nil
}
