// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake_test

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/stretchr/testify/require"
)

func sampleTx() *stake.Tx {
	tx := stake.NewTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{},
		stake.AnonMarkerIndex), []byte{1, 2, 3}, nil))
	tx.AddTxOuts(
		&stake.RingCTOutput{PubKey: []byte{2}, Commitment: []byte{8}},
		&stake.ZerocoinMintOutput{Denomination: stake.DenomTen, Commitment: []byte{9}},
		&stake.StandardOutput{Value: 5, PkScript: []byte{0x51}},
	)
	return tx
}

// TestTxHashWitness ensures witness data is not committed to by the tx hash
// while the signature script is.
func TestTxHashWitness(t *testing.T) {
	tx := sampleTx()
	before, err := tx.TxHash()
	require.NoError(t, err)

	tx.TxIn[0].Witness = wire.TxWitness{{0xaa, 0xbb}}
	after, err := tx.TxHash()
	require.NoError(t, err)
	require.Equal(t, before, after)

	tx.TxIn[0].SignatureScript = []byte{1, 2, 4}
	changed, err := tx.TxHash()
	require.NoError(t, err)
	require.NotEqual(t, before, changed)
}

// TestOutputsHash ensures the outputs hash only depends on the outputs.
func TestOutputsHash(t *testing.T) {
	tx := sampleTx()
	base, err := tx.OutputsHash()
	require.NoError(t, err)

	tx.TxIn[0].SignatureScript = []byte{7}
	sameOuts, err := tx.OutputsHash()
	require.NoError(t, err)
	require.Equal(t, base, sameOuts)

	tx.AddTxOuts(&stake.StandardOutput{Value: 1, PkScript: []byte{0x51}})
	more, err := tx.OutputsHash()
	require.NoError(t, err)
	require.NotEqual(t, base, more)

	tx = sampleTx()
	tx.TxOut[1].(*stake.ZerocoinMintOutput).Commitment = []byte{10}
	changed, err := tx.OutputsHash()
	require.NoError(t, err)
	require.NotEqual(t, base, changed)
}

// TestMsgTxOutputs ensures typed outputs are tagged on the wire and only
// public values are summed.
func TestMsgTxOutputs(t *testing.T) {
	tx := sampleTx()
	require.Equal(t, btcutil.Amount(10*stake.Coin+5), tx.PlainValueOut())

	msg, err := tx.MsgTx()
	require.NoError(t, err)
	require.Len(t, msg.TxOut, 3)
	wantTypes := []stake.OutputType{stake.OutputRingCT,
		stake.OutputZerocoinMint, stake.OutputStandard}
	for i, out := range msg.TxOut {
		require.Equal(t, byte(wantTypes[i]), out.PkScript[0])
	}
	require.Equal(t, int64(0), msg.TxOut[0].Value)
	require.Equal(t, int64(10*stake.Coin), msg.TxOut[1].Value)
	require.Equal(t, byte(stake.OpZerocoinMint), msg.TxOut[1].PkScript[1])
}

// TestParseSpendScript ensures spends survive the script encoding and that
// malformed scripts are rejected.
func TestParseSpendScript(t *testing.T) {
	spend := &stake.CoinSpend{
		Denomination:        stake.DenomThousand,
		SerialHash:          chainhash.Hash{1, 2, 3},
		AccumulatorChecksum: 0xdeadbeef,
		TxOutHash:           chainhash.Hash{4, 5, 6},
		Proof:               bytes.Repeat([]byte{7}, 300),
	}
	script := append([]byte{stake.OpZerocoinSpend}, spend.Bytes()...)
	got, err := stake.ParseSpendScript(script)
	require.NoError(t, err)
	require.Equal(t, spend, got)

	bad := [][]byte{
		nil,
		spend.Bytes(),
		script[:len(script)-1],
		append(append([]byte(nil), script...), 0),
	}
	for i, s := range bad {
		_, err := stake.ParseSpendScript(s)
		require.Errorf(t, err, "#%d", i)
		require.Truef(t, stake.IsErrorCode(err, stake.ErrMalformedContext), "#%d", i)
	}

	badDenom := *spend
	badDenom.Denomination = 7
	_, err = stake.ParseSpendScript(append([]byte{stake.OpZerocoinSpend},
		badDenom.Bytes()...))
	require.True(t, stake.IsErrorCode(err, stake.ErrMalformedContext))
}
