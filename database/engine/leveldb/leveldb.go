// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package leveldb implements engine.Engine on goleveldb.
package leveldb

import (
	"errors"

	"github.com/ringstake/stakeinput/database/engine"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// NewDB opens the database at dbPath.  When create is set the database must
// not exist yet.
func NewDB(dbPath string, create bool) (engine.Engine, error) {
	ldb, err := leveldb.OpenFile(dbPath, &opt.Options{
		ErrorIfExist: create,
		Strict:       opt.DefaultStrict,
		Compression:  opt.NoCompression,
		Filter:       filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, err
	}
	return &db{ldb: ldb}, nil
}

// db wraps a goleveldb handle.  Only one goleveldb transaction can be open
// at a time; opening another blocks until the first is released.
type db struct {
	ldb *leveldb.DB
}

func (d *db) Transaction() (engine.Transaction, error) {
	tx, err := d.ldb.OpenTransaction()
	if err != nil {
		return nil, convertErr(err)
	}
	return &transaction{reader: reader{src: tx}, tx: tx}, nil
}

func (d *db) Snapshot() (engine.Snapshot, error) {
	snap, err := d.ldb.GetSnapshot()
	if err != nil {
		return nil, convertErr(err)
	}
	return &snapshot{reader: reader{src: snap}, snap: snap}, nil
}

func (d *db) Close() error {
	return convertErr(d.ldb.Close())
}

// convertErr maps goleveldb sentinel errors onto the engine ones.
func convertErr(err error) error {
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return engine.ErrNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return engine.ErrClosed
	case errors.Is(err, leveldb.ErrSnapshotReleased):
		return engine.ErrReleased
	}
	return err
}
