// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"bytes"

	"github.com/btcsuite/btcd/wire"
)

const (
	// KeyImageSize is the size of a compressed key image.
	KeyImageSize = 33

	// maxUniquenessPayload bounds the payload of an encoded uniqueness
	// fingerprint.
	maxUniquenessPayload = 64
)

// encodeUniqueness serializes a fingerprint payload as var-bytes.
func encodeUniqueness(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(wire.VarIntSerializeSize(uint64(len(payload))) + len(payload))
	// Writes to a bytes.Buffer cannot fail.
	_ = wire.WriteVarBytes(&buf, 0, payload)
	return buf.Bytes()
}

// DecodeUniqueness returns the payload of an encoded uniqueness fingerprint:
// the key image of a ring-confidential stake or the serial hash of a zerocoin
// stake.
func DecodeUniqueness(u []byte) ([]byte, error) {
	r := bytes.NewReader(u)
	payload, err := wire.ReadVarBytes(r, 0, maxUniquenessPayload,
		"uniqueness")
	if err != nil {
		return nil, ruleErrorf(ErrMalformedContext, "malformed "+
			"uniqueness: %v", err)
	}
	if r.Len() != 0 {
		return nil, ruleErrorf(ErrMalformedContext, "uniqueness has "+
			"%d trailing bytes", r.Len())
	}
	return payload, nil
}
