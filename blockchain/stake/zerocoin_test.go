// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake_test

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/internal/simservices"
	"github.com/ringstake/stakeinput/internal/testhelper"
	"github.com/stretchr/testify/require"
)

const mintHeight = 30

func testMint(n byte, denom stake.Denomination) *stake.MintRecord {
	return &stake.MintRecord{
		SerialHash:   chainhash.Hash{n, 0x5e},
		Denomination: denom,
		MintTxHash:   chainhash.Hash{n, 0x7a},
		MintHeight:   mintHeight,
	}
}

func zerocoinStake(t *testing.T, params *stake.Params, rec *stake.MintRecord) *stake.ZerocoinStake {
	t.Helper()
	s, err := stake.NewZerocoinStake(params, rec)
	require.NoError(t, err)
	return s
}

func mintChain(t *testing.T, through int32) (*blockchain.BlockIndex, stake.BlockRef) {
	t.Helper()
	return newChain(t, through, map[int32][]stake.Denomination{
		mintHeight: {stake.DenomHundred, stake.DenomThousand},
	})
}

// TestZerocoinConstruction ensures only usable mint records become stakes.
func TestZerocoinConstruction(t *testing.T) {
	params := testParams()

	_, err := stake.NewZerocoinStake(params, nil)
	requireCode(t, err, stake.ErrMissingMint)

	rec := testMint(1, stake.DenomHundred)
	rec.Denomination = 50
	_, err = stake.NewZerocoinStake(params, rec)
	requireCode(t, err, stake.ErrMalformedContext)

	rec = testMint(1, stake.DenomHundred)
	rec.State = stake.MintConfirmed
	_, err = stake.NewZerocoinStake(params, rec)
	requireCode(t, err, stake.ErrAlreadySpent)

	_, err = stake.NewZerocoinStakeFromSpend(params, nil)
	requireCode(t, err, stake.ErrMalformedContext)

	s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	require.True(t, s.IsZerocoins())
	require.Equal(t, stake.KindZerocoin, s.Kind())
	require.Equal(t, stake.MintCandidate, s.State())
	require.Nil(t, s.Spend())
}

// TestZerocoinValueWeight ensures the value is the face value and the
// weight is scaled per denomination.
func TestZerocoinValueWeight(t *testing.T) {
	params := testParams()
	params.DenomWeightPercent = map[stake.Denomination]int64{
		stake.DenomThousand: 50,
	}
	require.NoError(t, params.Validate())

	tests := []struct {
		denom  stake.Denomination
		value  btcutil.Amount
		weight btcutil.Amount
	}{
		{stake.DenomTen, 10 * stake.Coin, 10 * stake.Coin},
		{stake.DenomHundred, 100 * stake.Coin, 100 * stake.Coin},
		{stake.DenomThousand, 1000 * stake.Coin, 500 * stake.Coin},
		{stake.DenomTenThousand, 10000 * stake.Coin, 10000 * stake.Coin},
	}
	for _, test := range tests {
		s := zerocoinStake(t, params, testMint(1, test.denom))
		value, err := s.Value()
		require.NoError(t, err)
		require.Equal(t, test.value, value, test.denom.String())
		weight, err := s.Weight()
		require.NoError(t, err)
		require.Equal(t, test.weight, weight, test.denom.String())
	}
}

// TestZerocoinMaturity ensures a candidate becomes eligible once its mint is
// accumulated the required stake depth below the tip.
func TestZerocoinMaturity(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, mintHeight+testDepth-1)

	s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	_, err := s.ChecksumHeight(bi, tip)
	requireCode(t, err, stake.ErrImmature)
	_, err = s.Modifier(bi, tip)
	requireCode(t, err, stake.ErrImmature)

	tip = extendChain(t, bi, mintHeight+testDepth+1)
	height, err := s.ChecksumHeight(bi, tip)
	require.NoError(t, err)
	require.Equal(t, int32(mintHeight), height)
	modifier, err := s.Modifier(bi, tip)
	require.NoError(t, err)

	modHeight, err := stake.HeightToModifierHeight(mintHeight, testModulus)
	require.NoError(t, err)
	want, ok := bi.Ancestor(tip, modHeight)
	require.True(t, ok)
	require.Equal(t, want.StakeModifier, modifier)
}

// TestZerocoinIndexFrom ensures checksum resolution failures are reported.
func TestZerocoinIndexFrom(t *testing.T) {
	params := testParams()

	bi, tip := newChain(t, 80, nil)
	s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	_, err := s.IndexFrom(bi, tip)
	requireCode(t, err, stake.ErrMissingChecksum)

	bi, tip = mintChain(t, 80)
	s = zerocoinStake(t, params, testMint(1, stake.DenomTen))
	_, err = s.IndexFrom(bi, tip)
	requireCode(t, err, stake.ErrMissingChecksum)

	shallow, ok := bi.Ancestor(tip, mintHeight-1)
	require.True(t, ok)
	s = zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	_, err = s.IndexFrom(bi, shallow)
	requireCode(t, err, stake.ErrChainTooShallow)

	late := *params
	late.ZerocoinStartHeight = mintHeight + 1
	s = zerocoinStake(t, &late, testMint(1, stake.DenomHundred))
	_, err = s.IndexFrom(bi, tip)
	requireCode(t, err, stake.ErrMissingBlockIndex)

	s = zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	origin, err := s.IndexFrom(bi, tip)
	require.NoError(t, err)
	require.Equal(t, int32(mintHeight), origin.Height)
	cached, err := s.IndexFrom(emptyView{}, tip)
	require.NoError(t, err)
	require.Equal(t, origin, cached)
}

// TestZerocoinTxFrom ensures the mint transaction is located for candidate
// and confirmed stakes.
func TestZerocoinTxFrom(t *testing.T) {
	params := testParams()
	store := newStore(t, -1)
	txs := testhelper.NewTxStore()

	mintTx := stake.NewTx(1)
	mintTx.AddTxOuts(&stake.ZerocoinMintOutput{
		Denomination: stake.DenomHundred,
		Commitment:   []byte{2, 3},
	})
	mintHash, err := txs.Add(mintTx)
	require.NoError(t, err)

	rec := testMint(1, stake.DenomHundred)
	rec.MintTxHash = mintHash
	require.NoError(t, store.AddMint(rec))

	s := zerocoinStake(t, params, rec)
	got, err := s.TxFrom(nil, txs)
	require.NoError(t, err)
	require.Same(t, mintTx, got)

	confirmed, err := stake.NewZerocoinStakeFromSpend(params, &stake.CoinSpend{
		Denomination: stake.DenomHundred,
		SerialHash:   rec.SerialHash,
	})
	require.NoError(t, err)
	require.NoError(t, store.View(func(r stake.RecordReader) error {
		got, err := confirmed.TxFrom(r, txs)
		require.NoError(t, err)
		require.Same(t, mintTx, got)
		return nil
	}))

	unknown, err := stake.NewZerocoinStakeFromSpend(params, &stake.CoinSpend{
		Denomination: stake.DenomHundred,
		SerialHash:   chainhash.Hash{0xff},
	})
	require.NoError(t, err)
	require.NoError(t, store.View(func(r stake.RecordReader) error {
		_, err := unknown.TxFrom(r, txs)
		requireCode(t, err, stake.ErrMissingTx)
		return nil
	}))
}

// TestZerocoinOutputs ensures the payout is split into mints from the
// largest denomination down with the remainder paid plainly.
func TestZerocoinOutputs(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, 80)
	w := simservices.NewServices().Wallet(bi, tip, 1)

	s := zerocoinStake(t, params, testMint(1, stake.DenomThousand))
	_, err := s.CreateTxOuts(w, 999*stake.Coin)
	requireCode(t, err, stake.ErrMalformedContext)

	total := btcutil.Amount(1234*stake.Coin + stake.Coin/2)
	outs, err := s.CreateTxOuts(w, total)
	require.NoError(t, err)

	var denoms []stake.Denomination
	var sum btcutil.Amount
	for i, out := range outs {
		value, ok := out.PlainValue()
		require.True(t, ok)
		sum += value
		if i == len(outs)-1 {
			require.Equal(t, stake.OutputStandard, out.Type())
			require.Equal(t, btcutil.Amount(4*stake.Coin+stake.Coin/2), value)
			require.Equal(t, []byte{0x51}, out.(*stake.StandardOutput).PkScript)
			continue
		}
		require.Equal(t, stake.OutputZerocoinMint, out.Type())
		denoms = append(denoms, out.(*stake.ZerocoinMintOutput).Denomination)
	}
	require.Equal(t, total, sum)
	require.Equal(t, []stake.Denomination{
		stake.DenomThousand,
		stake.DenomHundred, stake.DenomHundred,
		stake.DenomTen, stake.DenomTen, stake.DenomTen,
	}, denoms)

	_, err = s.CreateTxOuts(w, total)
	requireCode(t, err, stake.ErrAssemblyOrder)

	svc := simservices.NewServices()
	svc.Minter.Fail = true
	s = zerocoinStake(t, params, testMint(1, stake.DenomThousand))
	_, err = s.CreateTxOuts(svc.Wallet(bi, tip, 1), total)
	requireCode(t, err, stake.ErrSpendProof)
}

// TestZerocoinCreateTxIn ensures the spend input references the checksum the
// required stake depth below the tip.
func TestZerocoinCreateTxIn(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, mintHeight+testDepth-1)
	svc := simservices.NewServices()

	s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	_, err := s.CreateTxIn(svc.Wallet(bi, tip, 1))
	requireCode(t, err, stake.ErrImmature)

	tip = extendChain(t, bi, mintHeight+testDepth)
	in, err := s.CreateTxIn(svc.Wallet(bi, tip, 1))
	require.NoError(t, err)
	require.Equal(t, chainhash.Hash{}, in.PreviousOutPoint.Hash)
	require.Equal(t, stake.ZerocoinMarkerIndex, in.PreviousOutPoint.Index)
	require.Equal(t, byte(stake.OpZerocoinSpend), in.SignatureScript[0])
	serial := testMint(1, stake.DenomHundred).SerialHash
	require.Equal(t, serial[:], in.SignatureScript[1:])
}

// TestZerocoinComplete ensures the spend proof is bound to the outputs and
// the checksum of the coinstake.
func TestZerocoinComplete(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, 80)
	svc := simservices.NewServices()
	w := svc.Wallet(bi, tip, 1)

	rec := testMint(1, stake.DenomHundred)
	s := zerocoinStake(t, params, rec)
	tx := assemble(t, s, w, 103*stake.Coin)
	require.Equal(t, 1, svc.Prover.Calls())

	spend, err := stake.ParseSpendScript(tx.TxIn[0].SignatureScript)
	require.NoError(t, err)
	require.Equal(t, spend, s.Spend())
	outputsHash, err := tx.OutputsHash()
	require.NoError(t, err)
	require.Equal(t, outputsHash, spend.TxOutHash)
	require.Equal(t, rec.SerialHash, spend.SerialHash)
	require.Equal(t, stake.DenomHundred, spend.Denomination)
	require.Equal(t, simservices.ChecksumAt(stake.DenomHundred, mintHeight),
		spend.AccumulatorChecksum)

	requireCode(t, s.CompleteTx(w, tx), stake.ErrAlreadyCompleted)
	require.Equal(t, 1, svc.Prover.Calls())

	// The confirmed stake reconstructed from the spend evaluates like the
	// candidate it came from.
	confirmed, err := stake.NewZerocoinStakeFromSpend(params, spend)
	require.NoError(t, err)
	require.Equal(t, stake.MintConfirmed, confirmed.State())
	height, err := confirmed.ChecksumHeight(bi, tip)
	require.NoError(t, err)
	require.Equal(t, int32(mintHeight), height)

	want, err := s.Modifier(bi, tip)
	require.NoError(t, err)
	got, err := confirmed.Modifier(bi, tip)
	require.NoError(t, err)
	require.Equal(t, want, got)

	wantU, err := s.Uniqueness()
	require.NoError(t, err)
	gotU, err := confirmed.Uniqueness()
	require.NoError(t, err)
	require.Equal(t, wantU, gotU)
}

// TestZerocoinLaterMint ensures a candidate and the confirmed stake rebuilt
// from its spend resolve the same origin after a later mint of the same
// denomination changed the accumulator checksum.
func TestZerocoinLaterMint(t *testing.T) {
	const laterMint = 60

	params := testParams()
	bi, tip := newChain(t, 100, map[int32][]stake.Denomination{
		mintHeight: {stake.DenomHundred},
		laterMint:  {stake.DenomHundred},
	})
	w := simservices.NewServices().Wallet(bi, tip, 1)

	s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
	origin, err := s.IndexFrom(bi, tip)
	require.NoError(t, err)
	require.Equal(t, int32(laterMint), origin.Height)
	want, err := s.Modifier(bi, tip)
	require.NoError(t, err)

	assemble(t, s, w, 100*stake.Coin)
	spend := s.Spend()
	require.Equal(t, simservices.ChecksumAt(stake.DenomHundred, laterMint),
		spend.AccumulatorChecksum)

	confirmed, err := stake.NewZerocoinStakeFromSpend(params, spend)
	require.NoError(t, err)
	got, err := confirmed.IndexFrom(bi, tip)
	require.NoError(t, err)
	require.Equal(t, origin, got)
	modifier, err := confirmed.Modifier(bi, tip)
	require.NoError(t, err)
	require.Equal(t, want, modifier)

	// The checksum the required stake depth below an earlier tip predates
	// the later mint.
	early, ok := bi.Ancestor(tip, laterMint+testDepth-1)
	require.True(t, ok)
	s = zerocoinStake(t, params, testMint(2, stake.DenomHundred))
	origin, err = s.IndexFrom(bi, early)
	require.NoError(t, err)
	require.Equal(t, int32(mintHeight), origin.Height)
	in, err := s.CreateTxIn(simservices.NewServices().Wallet(bi, early, 2))
	require.NoError(t, err)
	require.NotNil(t, in)
}

// TestZerocoinProofFailures ensures failed or mismatched proofs abort the
// coinstake.
func TestZerocoinProofFailures(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, 80)

	for _, tamper := range []bool{false, true} {
		svc := simservices.NewServices()
		svc.Prover.Fail = !tamper
		svc.Prover.Tamper = tamper
		w := svc.Wallet(bi, tip, 1)

		s := zerocoinStake(t, params, testMint(1, stake.DenomHundred))
		tx := stake.NewTx(1)
		in, err := s.CreateTxIn(w)
		require.NoError(t, err)
		tx.AddTxIn(in)
		outs, err := s.CreateTxOuts(w, 100*stake.Coin)
		require.NoError(t, err)
		tx.AddTxOuts(outs...)

		script := append([]byte(nil), in.SignatureScript...)
		err = s.CompleteTx(w, tx)
		requireCode(t, err, stake.ErrSpendProof)
		require.Equal(t, stake.CategoryCrypto, stake.ErrorCategory(err))
		require.Equal(t, script, tx.TxIn[0].SignatureScript)
		require.Nil(t, s.Spend())
	}
}

// TestZerocoinMarkSpent ensures marking a coinstake spent confirms the mint
// exactly once and is undone when its block is disconnected.
func TestZerocoinMarkSpent(t *testing.T) {
	params := testParams()
	bi, tip := mintChain(t, 80)
	store := newStore(t, tip.Height)
	svc := simservices.NewServices()
	w := svc.Wallet(bi, tip, 1)

	rec := testMint(1, stake.DenomHundred)
	s := zerocoinStake(t, params, rec)
	tx := assemble(t, s, w, 100*stake.Coin)

	// The wallet does not know the mint yet.
	err := store.Update(func(rw stake.RecordWriter) error {
		return stake.MarkSpent(s, rw, tx)
	})
	requireCode(t, err, stake.ErrMissingMint)
	require.Equal(t, stake.MintCandidate, s.State())

	require.NoError(t, store.AddMint(rec))

	wrongHash := chainhash.Hash{0x01}
	err = store.Update(func(rw stake.RecordWriter) error {
		return s.MarkSpent(rw, wrongHash)
	})
	requireCode(t, err, stake.ErrMalformedContext)

	err = store.Update(func(rw stake.RecordWriter) error {
		return stake.MarkSpent(s, rw, tx)
	})
	require.NoError(t, err)
	require.Equal(t, stake.MintConfirmed, s.State())

	txHash, err := tx.TxHash()
	require.NoError(t, err)
	require.NoError(t, store.View(func(r stake.RecordReader) error {
		got, err := r.FetchMint(&rec.SerialHash)
		require.NoError(t, err)
		require.Equal(t, stake.MintConfirmed, got.State)
		require.Equal(t, txHash, got.SpendTxHash)
		require.Equal(t, tip.Height+1, got.SpendHeight)
		return nil
	}))

	err = store.Update(func(rw stake.RecordWriter) error {
		return stake.MarkSpent(s, rw, tx)
	})
	requireCode(t, err, stake.ErrAlreadySpent)

	// The promoted stake still resolves its origin through the spend.
	height, err := s.ChecksumHeight(bi, tip)
	require.NoError(t, err)
	require.Equal(t, int32(mintHeight), height)

	// A second candidate for the same mint loses.
	other := zerocoinStake(t, params, rec)
	otherTx := assemble(t, other, svc.Wallet(bi, tip, 2), 101*stake.Coin)
	err = store.Update(func(rw stake.RecordWriter) error {
		return stake.MarkSpent(other, rw, otherTx)
	})
	requireCode(t, err, stake.ErrAlreadySpent)

	require.NoError(t, store.ConnectBlock(tip.Height+1))
	require.NoError(t, store.DisconnectBlock(tip.Height+1))
	mints, err := store.ListMints(stake.MintCandidate)
	require.NoError(t, err)
	require.Len(t, mints, 1)
	require.Equal(t, rec.SerialHash, mints[0].SerialHash)
}
