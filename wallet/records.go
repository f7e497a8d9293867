// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ringstake/stakeinput/blockchain/stake"
)

// Key prefixes of the record buckets.
var (
	// spentPrefix maps an outpoint to the coinstake that spent it.
	spentPrefix = []byte("s")

	// mintPrefix maps a serial hash to its mint record.
	mintPrefix = []byte("m")

	// undoPrefix maps a block height to the undo journal of the block.
	undoPrefix = []byte("u")

	// syncedHeightKey holds the height of the last connected block.
	syncedHeightKey = []byte("h")
)

const (
	// outpointSize is the size of a serialized outpoint.
	outpointSize = chainhash.HashSize + 4

	// spentRecordSize is the size of a serialized spent record: the
	// spender hash and the height.
	spentRecordSize = chainhash.HashSize + 4

	// mintRecordSize is the size of a serialized mint record.
	mintRecordSize = chainhash.HashSize*3 + 8 + 4 + 1 + 4

	// undoEntrySize is the size of one serialized undo journal entry: the
	// kind and the record key without its prefix.
	undoEntrySize = 1 + outpointSize
)

// undoKind identifies what an undo journal entry reverts.
type undoKind byte

// NOTE: These values are serialized and must be stable for long-term storage.
const (
	undoSpentOutput   undoKind = 1
	undoConfirmedMint undoKind = 2
)

// undoEntry is one record change made by a connected block.  Entries of
// confirmed mints carry the serial hash in the outpoint hash.
type undoEntry struct {
	kind undoKind
	op   wire.OutPoint
}

func spentKey(op wire.OutPoint) []byte {
	key := make([]byte, len(spentPrefix)+outpointSize)
	n := copy(key, spentPrefix)
	putOutPoint(key[n:], op)
	return key
}

func mintKey(serialHash *chainhash.Hash) []byte {
	key := make([]byte, len(mintPrefix)+chainhash.HashSize)
	n := copy(key, mintPrefix)
	copy(key[n:], serialHash[:])
	return key
}

func undoKey(height int32) []byte {
	key := make([]byte, len(undoPrefix)+4)
	n := copy(key, undoPrefix)
	binary.BigEndian.PutUint32(key[n:], uint32(height))
	return key
}

func putOutPoint(buf []byte, op wire.OutPoint) {
	copy(buf, op.Hash[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], op.Index)
}

func readOutPoint(buf []byte) wire.OutPoint {
	var op wire.OutPoint
	copy(op.Hash[:], buf[:chainhash.HashSize])
	op.Index = binary.LittleEndian.Uint32(buf[chainhash.HashSize:])
	return op
}

func serializeSpent(spender *chainhash.Hash, height int32) []byte {
	buf := make([]byte, spentRecordSize)
	copy(buf, spender[:])
	binary.LittleEndian.PutUint32(buf[chainhash.HashSize:], uint32(height))
	return buf
}

// serializeMint returns the serialized mint record.
//
//	serial hash | denomination | mint tx | mint height | state |
//	spend tx | spend height
func serializeMint(rec *stake.MintRecord) []byte {
	buf := make([]byte, mintRecordSize)
	offset := copy(buf, rec.SerialHash[:])
	binary.LittleEndian.PutUint64(buf[offset:], uint64(rec.Denomination))
	offset += 8
	offset += copy(buf[offset:], rec.MintTxHash[:])
	binary.LittleEndian.PutUint32(buf[offset:], uint32(rec.MintHeight))
	offset += 4
	buf[offset] = byte(rec.State)
	offset++
	offset += copy(buf[offset:], rec.SpendTxHash[:])
	binary.LittleEndian.PutUint32(buf[offset:], uint32(rec.SpendHeight))
	return buf
}

// deserializeMint parses a serialized mint record.
func deserializeMint(buf []byte) (*stake.MintRecord, error) {
	if len(buf) != mintRecordSize {
		return nil, fmt.Errorf("mint record is %d bytes, want %d",
			len(buf), mintRecordSize)
	}

	var rec stake.MintRecord
	offset := copy(rec.SerialHash[:], buf)
	rec.Denomination = stake.Denomination(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	offset += copy(rec.MintTxHash[:], buf[offset:])
	rec.MintHeight = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	rec.State = stake.MintState(buf[offset])
	offset++
	offset += copy(rec.SpendTxHash[:], buf[offset:])
	rec.SpendHeight = int32(binary.LittleEndian.Uint32(buf[offset:]))

	if !rec.Denomination.IsValid() {
		return nil, fmt.Errorf("mint record %v has %v", rec.SerialHash,
			rec.Denomination)
	}
	if rec.State != stake.MintCandidate && rec.State != stake.MintConfirmed {
		return nil, fmt.Errorf("mint record %v has %v", rec.SerialHash,
			rec.State)
	}
	return &rec, nil
}

func serializeUndo(entries []undoEntry) []byte {
	buf := make([]byte, len(entries)*undoEntrySize)
	for i, entry := range entries {
		offset := i * undoEntrySize
		buf[offset] = byte(entry.kind)
		putOutPoint(buf[offset+1:], entry.op)
	}
	return buf
}

func deserializeUndo(buf []byte) ([]undoEntry, error) {
	if len(buf)%undoEntrySize != 0 {
		return nil, fmt.Errorf("undo journal is %d bytes, not a "+
			"multiple of %d", len(buf), undoEntrySize)
	}
	entries := make([]undoEntry, 0, len(buf)/undoEntrySize)
	for offset := 0; offset < len(buf); offset += undoEntrySize {
		entry := undoEntry{
			kind: undoKind(buf[offset]),
			op:   readOutPoint(buf[offset+1 : offset+undoEntrySize]),
		}
		switch entry.kind {
		case undoSpentOutput, undoConfirmedMint:
		default:
			return nil, fmt.Errorf("unknown undo entry kind %d",
				entry.kind)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
