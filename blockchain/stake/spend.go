// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// maxSpendProofSize bounds the proof carried by a serialized coin spend.
const maxSpendProofSize = 1 << 16

// CoinSpend is a zerocoin spend: a zero-knowledge proof that the spender owns
// an unspent mint of the denomination inside the accumulator identified by
// the checksum, bound to the outputs of the spending transaction.
type CoinSpend struct {
	Denomination        Denomination
	SerialHash          chainhash.Hash
	AccumulatorChecksum uint32
	TxOutHash           chainhash.Hash
	Proof               []byte
}

// Serialize writes the spend to w.
func (s *CoinSpend) Serialize(w io.Writer) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.Denomination))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if _, err := w.Write(s.SerialHash[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf[:4], s.AccumulatorChecksum)
	if _, err := w.Write(buf[:4]); err != nil {
		return err
	}
	if _, err := w.Write(s.TxOutHash[:]); err != nil {
		return err
	}
	return wire.WriteVarBytes(w, 0, s.Proof)
}

// Bytes returns the serialized spend.
func (s *CoinSpend) Bytes() []byte {
	var buf bytes.Buffer
	_ = s.Serialize(&buf)
	return buf.Bytes()
}

// Deserialize reads a spend from r.
func (s *CoinSpend) Deserialize(r io.Reader) error {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	s.Denomination = Denomination(binary.LittleEndian.Uint64(buf[:]))
	if !s.Denomination.IsValid() {
		return fmt.Errorf("spend has %v", s.Denomination)
	}
	if _, err := io.ReadFull(r, s.SerialHash[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, buf[:4]); err != nil {
		return err
	}
	s.AccumulatorChecksum = binary.LittleEndian.Uint32(buf[:4])
	if _, err := io.ReadFull(r, s.TxOutHash[:]); err != nil {
		return err
	}
	proof, err := wire.ReadVarBytes(r, 0, maxSpendProofSize, "spend proof")
	if err != nil {
		return err
	}
	s.Proof = proof
	return nil
}

// ParseSpendScript extracts the coin spend from the signature script of a
// zerocoin spend input.
func ParseSpendScript(script []byte) (*CoinSpend, error) {
	if len(script) == 0 || script[0] != OpZerocoinSpend {
		return nil, ruleErrorf(ErrMalformedContext, "script is not a "+
			"zerocoin spend")
	}
	r := bytes.NewReader(script[1:])
	var spend CoinSpend
	if err := spend.Deserialize(r); err != nil {
		return nil, ruleErrorf(ErrMalformedContext, "malformed zerocoin "+
			"spend: %v", err)
	}
	if r.Len() != 0 {
		return nil, ruleErrorf(ErrMalformedContext, "zerocoin spend has "+
			"%d trailing bytes", r.Len())
	}
	return &spend, nil
}
