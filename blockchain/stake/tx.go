// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"bytes"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// AnonMarkerIndex is the previous outpoint index of a ring-confidential
	// input.  Its previous outpoint hash is always zero.
	AnonMarkerIndex uint32 = 0xffffffa0

	// ZerocoinMarkerIndex is the previous outpoint index of a zerocoin
	// spend input.  Its previous outpoint hash is always zero.
	ZerocoinMarkerIndex uint32 = 0xffffffb0

	// OpZerocoinSpend prefixes the signature script of a zerocoin spend.
	OpZerocoinSpend = 0xc2

	// OpZerocoinMint prefixes the encoded script of a zerocoin mint output.
	OpZerocoinMint = 0xc1
)

// OutputType identifies the kind of a transaction output.
type OutputType uint8

// These constants define the output kinds a coinstake may carry.
const (
	OutputStandard OutputType = iota + 1
	OutputRingCT
	OutputZerocoinMint
)

var outputTypeStrings = map[OutputType]string{
	OutputStandard:     "standard",
	OutputRingCT:       "ringct",
	OutputZerocoinMint: "zerocoin mint",
}

// String returns the OutputType as a human-readable name.
func (t OutputType) String() string {
	if s, ok := outputTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown output type (%d)", uint8(t))
}

// TxOut is a typed transaction output.  Outputs either carry a plain value or
// a value hidden behind a commitment.
type TxOut interface {
	Type() OutputType

	// PlainValue returns the public value of the output.  The second result
	// is false when the value is hidden.
	PlainValue() (btcutil.Amount, bool)

	encode(w io.Writer) error
}

// StandardOutput is a plain value output.
type StandardOutput struct {
	Value    btcutil.Amount
	PkScript []byte
}

// Type returns OutputStandard.
func (o *StandardOutput) Type() OutputType { return OutputStandard }

// PlainValue returns the value of the output.
func (o *StandardOutput) PlainValue() (btcutil.Amount, bool) { return o.Value, true }

func (o *StandardOutput) encode(w io.Writer) error {
	return wire.WriteVarBytes(w, 0, o.PkScript)
}

// RingCTOutput is a ring-confidential output whose value is hidden behind a
// Pedersen commitment.
type RingCTOutput struct {
	PubKey          []byte
	EphemeralPubKey []byte
	Commitment      []byte
	RangeProof      []byte
}

// Type returns OutputRingCT.
func (o *RingCTOutput) Type() OutputType { return OutputRingCT }

// PlainValue reports the value as hidden.
func (o *RingCTOutput) PlainValue() (btcutil.Amount, bool) { return 0, false }

func (o *RingCTOutput) encode(w io.Writer) error {
	for _, field := range [][]byte{o.PubKey, o.EphemeralPubKey,
		o.Commitment, o.RangeProof} {

		if err := wire.WriteVarBytes(w, 0, field); err != nil {
			return err
		}
	}
	return nil
}

// ZerocoinMintOutput is a fresh zerocoin mint.  Its value is the public face
// value of the denomination.
type ZerocoinMintOutput struct {
	Denomination Denomination
	Commitment   []byte
}

// Type returns OutputZerocoinMint.
func (o *ZerocoinMintOutput) Type() OutputType { return OutputZerocoinMint }

// PlainValue returns the face value of the mint.
func (o *ZerocoinMintOutput) PlainValue() (btcutil.Amount, bool) {
	return o.Denomination.Amount(), true
}

func (o *ZerocoinMintOutput) encode(w io.Writer) error {
	if _, err := w.Write([]byte{OpZerocoinMint}); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, o.Commitment)
}

// Tx is a transaction under assembly.  Inputs use the wire representation
// while outputs stay typed until the transaction is hashed.
type Tx struct {
	Version  int32
	TxIn     []*wire.TxIn
	TxOut    []TxOut
	LockTime uint32
}

// NewTx returns a new empty transaction.
func NewTx(version int32) *Tx {
	return &Tx{Version: version}
}

// AddTxIn adds a transaction input.
func (tx *Tx) AddTxIn(ti *wire.TxIn) {
	tx.TxIn = append(tx.TxIn, ti)
}

// AddTxOuts adds transaction outputs.
func (tx *Tx) AddTxOuts(outs ...TxOut) {
	tx.TxOut = append(tx.TxOut, outs...)
}

// PlainValueOut returns the sum of the public output values.
func (tx *Tx) PlainValueOut() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range tx.TxOut {
		if v, ok := out.PlainValue(); ok {
			total += v
		}
	}
	return total
}

// encodeTxOut converts a typed output into its wire form.  The output type
// is the first byte of the public key script.
func encodeTxOut(out TxOut) (*wire.TxOut, error) {
	var buf bytes.Buffer
	buf.WriteByte(byte(out.Type()))
	if err := out.encode(&buf); err != nil {
		return nil, err
	}
	value, _ := out.PlainValue()
	return wire.NewTxOut(int64(value), buf.Bytes()), nil
}

// MsgTx returns the wire form of the transaction.
func (tx *Tx) MsgTx() (*wire.MsgTx, error) {
	msg := wire.NewMsgTx(tx.Version)
	msg.LockTime = tx.LockTime
	for _, ti := range tx.TxIn {
		msg.AddTxIn(ti)
	}
	for i, out := range tx.TxOut {
		wireOut, err := encodeTxOut(out)
		if err != nil {
			return nil, fmt.Errorf("unable to encode output %d: %w",
				i, err)
		}
		msg.AddTxOut(wireOut)
	}
	return msg, nil
}

// TxHash returns the hash of the transaction.  Input witnesses are not
// committed to, so signatures placed there do not change it.
func (tx *Tx) TxHash() (chainhash.Hash, error) {
	msg, err := tx.MsgTx()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return msg.TxHash(), nil
}

// OutputsHash returns the hash of the outputs alone.  Zerocoin spend proofs
// commit to it.
func (tx *Tx) OutputsHash() (chainhash.Hash, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(tx.TxOut))); err != nil {
		return chainhash.Hash{}, err
	}
	for i, out := range tx.TxOut {
		wireOut, err := encodeTxOut(out)
		if err != nil {
			return chainhash.Hash{}, fmt.Errorf("unable to encode "+
				"output %d: %w", i, err)
		}
		if err := wire.WriteTxOut(&buf, 0, 0, wireOut); err != nil {
			return chainhash.Hash{}, err
		}
	}
	return chainhash.DoubleHashH(buf.Bytes()), nil
}

// findInput returns the index of the first input whose signature script
// equals script.
func (tx *Tx) findInput(script []byte) (int, bool) {
	for i, ti := range tx.TxIn {
		if bytes.Equal(ti.SignatureScript, script) {
			return i, true
		}
	}
	return 0, false
}
