// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/database/engine"
)

// Store is the wallet's coin record store: spent ring-confidential outputs,
// zerocoin mint records, and a per-block undo journal to rewind them on
// reorganization.
//
// Readers share the store through View.  Writers are serialized by Update,
// which applies all changes of one call in a single engine transaction.
type Store struct {
	mtx sync.RWMutex
	db  engine.Engine
}

// New returns a record store backed by db.
func New(db engine.Engine) *Store {
	return &Store{db: db}
}

// Close closes the underlying engine.
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.db.Close()
}

// View calls fn with a reader over a consistent snapshot of the records.  It
// holds the read lock until fn returns.
func (s *Store) View(fn func(stake.RecordReader) error) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return engine.View(s.db, func(r engine.Reader) error {
		return fn(&recordReader{r: r})
	})
}

// Update calls fn with a writer holding the write lock.  The changes fn makes
// are committed when it returns nil and discarded otherwise.
func (s *Store) Update(fn func(stake.RecordWriter) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.update(func(w *recordWriter) error {
		return fn(w)
	})
}

// update runs fn in a new engine transaction.
//
// This function MUST be called with the store lock held (for writes).
func (s *Store) update(fn func(*recordWriter) error) error {
	return engine.Update(s.db, func(tx engine.Transaction) error {
		w := &recordWriter{recordReader: recordReader{r: tx}, tx: tx}
		if err := fn(w); err != nil {
			return err
		}
		return w.flushUndo()
	})
}

// AddMint stores a new candidate mint record.
func (s *Store) AddMint(rec *stake.MintRecord) error {
	if !rec.Denomination.IsValid() {
		return stake.RuleError{
			ErrorCode:   stake.ErrMalformedContext,
			Description: fmt.Sprintf("mint %v has %v", rec.SerialHash, rec.Denomination),
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.update(func(w *recordWriter) error {
		key := mintKey(&rec.SerialHash)
		exists, err := w.tx.Has(key)
		if err != nil {
			return err
		}
		if exists {
			return stake.RuleError{
				ErrorCode:   stake.ErrDuplicateStake,
				Description: fmt.Sprintf("mint %v already stored", rec.SerialHash),
			}
		}
		stored := *rec
		stored.State = stake.MintCandidate
		stored.SpendTxHash = chainhash.Hash{}
		stored.SpendHeight = 0
		return w.tx.Put(key, serializeMint(&stored))
	})
}

// ListMints returns the mint records in the given state ordered by serial
// hash.
func (s *Store) ListMints(state stake.MintState) ([]*stake.MintRecord, error) {
	var mints []*stake.MintRecord
	err := s.View(func(r stake.RecordReader) error {
		rr := r.(*recordReader)
		c := rr.r.Scan(mintPrefix)
		defer c.Release()
		for c.Next() {
			rec, err := deserializeMint(c.Value())
			if err != nil {
				return err
			}
			if rec.State == state {
				mints = append(mints, rec)
			}
		}
		return c.Err()
	})
	if err != nil {
		return nil, err
	}
	return mints, nil
}

// SyncedHeight returns the height of the last connected block, or -1 before
// any block was connected.
func (s *Store) SyncedHeight() (int32, error) {
	height := int32(-1)
	err := s.View(func(r stake.RecordReader) error {
		var err error
		height, err = r.(*recordReader).syncedHeight()
		return err
	})
	return height, err
}

// ConnectBlock advances the synced height to height, which must be the next
// block.
func (s *Store) ConnectBlock(height int32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.update(func(w *recordWriter) error {
		synced, err := w.syncedHeight()
		if err != nil {
			return err
		}
		if height != synced+1 {
			return fmt.Errorf("connect of block %d does not follow "+
				"synced height %d", height, synced)
		}
		return w.putSyncedHeight(height)
	})
}

// DisconnectBlock rewinds every record change journaled for the block at
// height, which must be the synced height: spent outputs become unspent and
// confirmed mints revert to candidates.
func (s *Store) DisconnectBlock(height int32) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.update(func(w *recordWriter) error {
		synced, err := w.syncedHeight()
		if err != nil {
			return err
		}
		if height != synced {
			return fmt.Errorf("disconnect of block %d does not match "+
				"synced height %d", height, synced)
		}

		entries, err := w.journal(height)
		if err != nil {
			return err
		}
		for i := len(entries) - 1; i >= 0; i-- {
			if err := w.revert(&entries[i]); err != nil {
				return err
			}
		}
		if err := w.tx.Delete(undoKey(height)); err != nil {
			return err
		}
		log.Debugf("Rewound %d record changes of block %d",
			len(entries), height)
		return w.putSyncedHeight(height - 1)
	})
}

// recordReader implements stake.RecordReader over an engine reader.
type recordReader struct {
	r engine.Reader
}

// Ensure recordReader implements the stake.RecordReader interface.
var _ stake.RecordReader = (*recordReader)(nil)

// IsOutputSpent returns whether the output was consumed by a coinstake.
func (r *recordReader) IsOutputSpent(op wire.OutPoint) (bool, error) {
	return r.r.Has(spentKey(op))
}

// FetchMint returns the mint record of the serial hash, or nil.
func (r *recordReader) FetchMint(serialHash *chainhash.Hash) (*stake.MintRecord, error) {
	buf, err := r.r.Get(mintKey(serialHash))
	if errors.Is(err, engine.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := deserializeMint(buf)
	if err != nil {
		return nil, stake.RuleError{
			ErrorCode:   stake.ErrMissingMint,
			Description: fmt.Sprintf("corrupt mint record: %v", err),
		}
	}
	return rec, nil
}

func (r *recordReader) syncedHeight() (int32, error) {
	buf, err := r.r.Get(syncedHeightKey)
	if errors.Is(err, engine.ErrNotFound) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	if len(buf) != 4 {
		return 0, fmt.Errorf("synced height is %d bytes", len(buf))
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func (r *recordReader) journal(height int32) ([]undoEntry, error) {
	buf, err := r.r.Get(undoKey(height))
	if errors.Is(err, engine.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return deserializeUndo(buf)
}

// recordWriter implements stake.RecordWriter over an engine transaction.
// Journal entries are buffered per height and written when the transaction
// is committed.
type recordWriter struct {
	recordReader
	tx   engine.Transaction
	undo map[int32][]undoEntry
}

// Ensure recordWriter implements the stake.RecordWriter interface.
var _ stake.RecordWriter = (*recordWriter)(nil)

// MarkOutputSpent records the output as consumed by spender in the block at
// height.
func (w *recordWriter) MarkOutputSpent(op wire.OutPoint, spender chainhash.Hash, height int32) error {
	key := spentKey(op)
	spent, err := w.tx.Has(key)
	if err != nil {
		return err
	}
	if spent {
		return stake.RuleError{
			ErrorCode:   stake.ErrAlreadySpent,
			Description: fmt.Sprintf("output %v already spent", op),
		}
	}
	if err := w.tx.Put(key, serializeSpent(&spender, height)); err != nil {
		return err
	}
	w.journalAdd(height, undoEntry{kind: undoSpentOutput, op: op})
	log.Debugf("Output %v spent by %v at height %d", op, spender, height)
	return nil
}

// ConfirmMint moves the mint from candidate to confirmed.  Any other
// transition is rejected.
func (w *recordWriter) ConfirmMint(serialHash chainhash.Hash, spender chainhash.Hash, height int32) error {
	rec, err := w.FetchMint(&serialHash)
	if err != nil {
		return err
	}
	if rec == nil {
		return stake.RuleError{
			ErrorCode:   stake.ErrMissingMint,
			Description: fmt.Sprintf("no mint %v", serialHash),
		}
	}
	if rec.State != stake.MintCandidate {
		return stake.RuleError{
			ErrorCode: stake.ErrInvalidTransition,
			Description: fmt.Sprintf("mint %v cannot move from %v to "+
				"%v", serialHash, rec.State, stake.MintConfirmed),
		}
	}

	rec.State = stake.MintConfirmed
	rec.SpendTxHash = spender
	rec.SpendHeight = height
	if err := w.tx.Put(mintKey(&serialHash), serializeMint(rec)); err != nil {
		return err
	}
	w.journalAdd(height, undoEntry{
		kind: undoConfirmedMint,
		op:   wire.OutPoint{Hash: serialHash},
	})
	log.Debugf("Mint %v confirmed by %v at height %d", serialHash,
		spender, height)
	return nil
}

func (w *recordWriter) journalAdd(height int32, entry undoEntry) {
	if w.undo == nil {
		w.undo = make(map[int32][]undoEntry)
	}
	w.undo[height] = append(w.undo[height], entry)
}

// flushUndo appends the buffered journal entries to the stored journals.
func (w *recordWriter) flushUndo() error {
	for height, entries := range w.undo {
		existing, err := w.journal(height)
		if err != nil {
			return err
		}
		all := append(existing, entries...)
		if err := w.tx.Put(undoKey(height), serializeUndo(all)); err != nil {
			return err
		}
	}
	w.undo = nil
	return nil
}

// revert undoes a single journaled change.
func (w *recordWriter) revert(entry *undoEntry) error {
	switch entry.kind {
	case undoSpentOutput:
		return w.tx.Delete(spentKey(entry.op))

	case undoConfirmedMint:
		serialHash := entry.op.Hash
		rec, err := w.FetchMint(&serialHash)
		if err != nil {
			return err
		}
		if rec == nil || rec.State != stake.MintConfirmed {
			return stake.RuleError{
				ErrorCode: stake.ErrInvalidTransition,
				Description: fmt.Sprintf("journaled mint %v is "+
					"not confirmed", serialHash),
			}
		}
		rec.State = stake.MintCandidate
		rec.SpendTxHash = chainhash.Hash{}
		rec.SpendHeight = 0
		return w.tx.Put(mintKey(&serialHash), serializeMint(rec))
	}
	return fmt.Errorf("unknown undo entry kind %d", entry.kind)
}

func (w *recordWriter) putSyncedHeight(height int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(height))
	return w.tx.Put(syncedHeightKey, buf[:])
}
