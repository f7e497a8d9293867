// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pebbledb implements engine.Engine on pebble.
package pebbledb

import (
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/ringstake/stakeinput/database/engine"
)

const (
	// DefaultCache is the block cache size in MiB used when NewDB is given
	// a non-positive cache.
	DefaultCache = 64

	// DefaultHandles is the open file limit used when NewDB is given a
	// non-positive limit.
	DefaultHandles = 16

	numLevels     = 7
	baseFileSize  = 2 << 20
	bloomBitsKey  = 10
	bytesPerCache = 1 << 20
)

// NewDB opens the database at dbPath with cache MiB of block cache and at
// most handles open files.  When create is set the database must not exist
// yet.
func NewDB(dbPath string, create bool, cache, handles int) (engine.Engine, error) {
	if cache <= 0 {
		cache = DefaultCache
	}
	if handles <= 0 {
		handles = DefaultHandles
	}

	// Each level doubles the target file size of the one above it.
	levels := make([]pebble.LevelOptions, numLevels)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: int64(baseFileSize) << i,
			FilterPolicy:   bloom.FilterPolicy(bloomBitsKey),
		}
	}

	c := pebble.NewCache(int64(cache) * bytesPerCache)
	defer c.Unref()

	opts := &pebble.Options{
		Cache:                    c,
		ErrorIfExists:            create,
		MaxOpenFiles:             handles,
		MaxConcurrentCompactions: runtime.NumCPU,
		Levels:                   levels,
	}
	opts.Experimental.ReadSamplingMultiplier = -1

	pdb, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	return &db{pdb: pdb}, nil
}

type db struct {
	pdb    *pebble.DB
	closed atomic.Bool
}

// Transaction returns an indexed batch so reads observe the batch's own
// writes.  Batches are not isolated from each other.
func (d *db) Transaction() (engine.Transaction, error) {
	if d.closed.Load() {
		return nil, engine.ErrClosed
	}
	batch := d.pdb.NewIndexedBatch()
	return &transaction{reader: reader{src: batch}, batch: batch}, nil
}

func (d *db) Snapshot() (engine.Snapshot, error) {
	if d.closed.Load() {
		return nil, engine.ErrClosed
	}
	snap := d.pdb.NewSnapshot()
	return &snapshot{reader: reader{src: snap}, snap: snap}, nil
}

func (d *db) Close() error {
	if d.closed.Swap(true) {
		return engine.ErrClosed
	}
	return d.pdb.Close()
}
