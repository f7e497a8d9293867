// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package leveldb

import (
	"github.com/ringstake/stakeinput/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// source is the read API goleveldb snapshots and transactions share.
type source interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// reader implements engine.Reader over a goleveldb source.
type reader struct {
	src source
}

func (r *reader) Get(key []byte) ([]byte, error) {
	val, err := r.src.Get(key, nil)
	return val, convertErr(err)
}

func (r *reader) Has(key []byte) (bool, error) {
	has, err := r.src.Has(key, nil)
	return has, convertErr(err)
}

func (r *reader) Scan(prefix []byte) engine.Cursor {
	return &cursor{it: r.src.NewIterator(util.BytesPrefix(prefix), nil)}
}

// cursor adapts a goleveldb iterator to engine.Cursor.
type cursor struct {
	it       iterator.Iterator
	released bool
}

func (c *cursor) Next() bool {
	return !c.released && c.it.Next()
}

func (c *cursor) Key() []byte {
	if c.released {
		return nil
	}
	return c.it.Key()
}

func (c *cursor) Value() []byte {
	if c.released {
		return nil
	}
	return c.it.Value()
}

func (c *cursor) Err() error {
	if c.released {
		return engine.ErrReleased
	}
	return convertErr(c.it.Error())
}

func (c *cursor) Release() {
	if !c.released {
		c.released = true
		c.it.Release()
	}
}

// snapshot implements engine.Snapshot.
type snapshot struct {
	reader
	snap *leveldb.Snapshot
}

func (s *snapshot) Release() {
	s.snap.Release()
}

// transaction implements engine.Transaction.  goleveldb reads through a
// transaction already include its uncommitted writes.
type transaction struct {
	reader
	tx *leveldb.Transaction
}

func (t *transaction) Put(key, value []byte) error {
	return t.tx.Put(key, value, nil)
}

func (t *transaction) Delete(key []byte) error {
	return t.tx.Delete(key, nil)
}

func (t *transaction) Commit() error {
	return t.tx.Commit()
}

func (t *transaction) Discard() {
	t.tx.Discard()
}
