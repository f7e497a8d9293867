// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"errors"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/ringstake/stakeinput/database/engine"
)

// source is the read API pebble snapshots and indexed batches share.
type source interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// reader implements engine.Reader over a pebble source.  Once released it
// fails every read with engine.ErrReleased.
type reader struct {
	src      source
	released bool
}

func (r *reader) Get(key []byte) ([]byte, error) {
	if r.released {
		return nil, engine.ErrReleased
	}
	val, closer, err := r.src.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// The returned slice is only valid until closer is closed.
	return append([]byte(nil), val...), nil
}

func (r *reader) Has(key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, engine.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *reader) Scan(prefix []byte) engine.Cursor {
	if r.released {
		return engine.ExhaustedCursor(engine.ErrReleased)
	}
	it, err := r.src.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: engine.PrefixEnd(prefix),
	})
	if err != nil {
		return engine.ExhaustedCursor(err)
	}
	return &cursor{it: it}
}

// cursor adapts a bounded pebble iterator to engine.Cursor.  pebble
// iterators start unpositioned, so the first Next seeks to the first pair.
type cursor struct {
	it       *pebble.Iterator
	started  bool
	released bool
}

func (c *cursor) Next() bool {
	if c.released {
		return false
	}
	if !c.started {
		c.started = true
		return c.it.First()
	}
	return c.it.Next()
}

func (c *cursor) valid() bool {
	return !c.released && c.started && c.it.Valid()
}

func (c *cursor) Key() []byte {
	if !c.valid() {
		return nil
	}
	return c.it.Key()
}

func (c *cursor) Value() []byte {
	if !c.valid() {
		return nil
	}
	return c.it.Value()
}

func (c *cursor) Err() error {
	if c.released {
		return engine.ErrReleased
	}
	return c.it.Error()
}

func (c *cursor) Release() {
	if !c.released {
		c.released = true
		c.it.Close()
	}
}

// snapshot implements engine.Snapshot.
type snapshot struct {
	reader
	snap *pebble.Snapshot
}

func (s *snapshot) Release() {
	if !s.released {
		s.released = true
		s.snap.Close()
	}
}

// transaction implements engine.Transaction on an indexed batch.
type transaction struct {
	reader
	batch *pebble.Batch
}

func (t *transaction) Put(key, value []byte) error {
	if t.released {
		return engine.ErrReleased
	}
	return t.batch.Set(key, value, nil)
}

func (t *transaction) Delete(key []byte) error {
	if t.released {
		return engine.ErrReleased
	}
	return t.batch.Delete(key, nil)
}

func (t *transaction) Commit() error {
	if t.released {
		return engine.ErrReleased
	}
	t.released = true
	defer t.batch.Close()
	return t.batch.Commit(pebble.Sync)
}

func (t *transaction) Discard() {
	if !t.released {
		t.released = true
		t.batch.Close()
	}
}
