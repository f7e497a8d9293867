// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package engine defines the ordered key/value engine the wallet record store
// persists to.  Backends live in the leveldb and pebbledb subpackages and
// must pass RunConformance.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("engine: key not found")

	// ErrClosed is returned when a closed engine is used.
	ErrClosed = errors.New("engine: closed")

	// ErrReleased is returned when a committed or discarded transaction,
	// a released snapshot, or a released cursor is used.
	ErrReleased = errors.New("engine: handle released")
)

// Engine is an ordered key/value store with atomic write transactions and
// consistent read snapshots.
type Engine interface {
	// Transaction opens a write transaction.  Callers serialize writers;
	// an engine is not required to isolate concurrent transactions from
	// each other.
	Transaction() (Transaction, error)

	// Snapshot opens a read-only view of the committed state.
	Snapshot() (Snapshot, error)

	Close() error
}

// Reader is the read side shared by transactions and snapshots.
type Reader interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)

	// Scan returns a cursor over every pair whose key starts with prefix.
	// A nil prefix scans the whole keyspace.
	Scan(prefix []byte) Cursor
}

// Transaction is an atomic write batch.  Reads through a transaction observe
// its own uncommitted writes.
type Transaction interface {
	Reader
	Put(key, value []byte) error
	Delete(key []byte) error

	// Commit durably applies the batch.  The transaction is released
	// whether or not it succeeds.
	Commit() error

	// Discard drops the batch.  It is safe to call more than once and
	// after Commit.
	Discard()
}

// Snapshot is a consistent read-only view of the engine.
type Snapshot interface {
	Reader

	// Release frees the snapshot.  It is safe to call more than once.
	Release()
}

// View calls fn with a snapshot of e and releases it when fn returns.
func View(e Engine, fn func(Reader) error) error {
	snap, err := e.Snapshot()
	if err != nil {
		return fmt.Errorf("unable to open snapshot: %w", err)
	}
	defer snap.Release()
	return fn(snap)
}

// Update calls fn with a new transaction of e.  The transaction is committed
// when fn returns nil and discarded otherwise.
func Update(e Engine, fn func(Transaction) error) error {
	tx, err := e.Transaction()
	if err != nil {
		return fmt.Errorf("unable to open transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit transaction: %w", err)
	}
	return nil
}
