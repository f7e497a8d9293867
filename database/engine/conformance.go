// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// RunConformance runs the behaviour every backend must share against engines
// returned by open.  Each call to open must return a fresh, empty engine.
func RunConformance(t *testing.T, open func(t *testing.T) Engine) {
	t.Run("CommitVisibility", func(t *testing.T) {
		e := open(t)
		defer e.Close()
		testCommitVisibility(t, e)
	})
	t.Run("SnapshotIsolation", func(t *testing.T) {
		e := open(t)
		defer e.Close()
		testSnapshotIsolation(t, e)
	})
	t.Run("ReadYourWrites", func(t *testing.T) {
		e := open(t)
		defer e.Close()
		testReadYourWrites(t, e)
	})
	t.Run("Scan", func(t *testing.T) {
		e := open(t)
		defer e.Close()
		testScan(t, e)
	})
	t.Run("UpdateRollback", func(t *testing.T) {
		e := open(t)
		defer e.Close()
		testUpdateRollback(t, e)
	})
	t.Run("Lifecycle", func(t *testing.T) {
		testLifecycle(t, open(t))
	})
}

func put(t *testing.T, e Engine, kvs ...string) {
	t.Helper()
	err := Update(e, func(tx Transaction) error {
		for i := 0; i+1 < len(kvs); i += 2 {
			if err := tx.Put([]byte(kvs[i]), []byte(kvs[i+1])); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func collect(t *testing.T, r Reader, prefix []byte) [][2]string {
	t.Helper()
	c := r.Scan(prefix)
	defer c.Release()

	var got [][2]string
	for c.Next() {
		got = append(got, [2]string{string(c.Key()), string(c.Value())})
	}
	require.NoError(t, c.Err())
	return got
}

func testCommitVisibility(t *testing.T, e Engine) {
	tx, err := e.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("mint/01"), []byte("candidate")))

	snap, err := e.Snapshot()
	require.NoError(t, err)
	has, err := snap.Has([]byte("mint/01"))
	require.NoError(t, err)
	require.False(t, has, "uncommitted write visible to snapshot")
	val, err := snap.Get([]byte("mint/01"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, val)
	snap.Release()

	require.NoError(t, tx.Commit())

	snap, err = e.Snapshot()
	require.NoError(t, err)
	val, err = snap.Get([]byte("mint/01"))
	require.NoError(t, err)
	require.Equal(t, []byte("candidate"), val)
	snap.Release()
}

func testSnapshotIsolation(t *testing.T, e Engine) {
	put(t, e, "spent/aa", "1")

	snap, err := e.Snapshot()
	require.NoError(t, err)
	defer snap.Release()

	err = Update(e, func(tx Transaction) error {
		if err := tx.Delete([]byte("spent/aa")); err != nil {
			return err
		}
		return tx.Put([]byte("spent/bb"), []byte("2"))
	})
	require.NoError(t, err)

	// The snapshot still shows the state it was opened on.
	require.Equal(t, [][2]string{{"spent/aa", "1"}},
		collect(t, snap, []byte("spent/")))

	require.NoError(t, View(e, func(r Reader) error {
		require.Equal(t, [][2]string{{"spent/bb", "2"}},
			collect(t, r, []byte("spent/")))
		return nil
	}))
}

func testReadYourWrites(t *testing.T, e Engine) {
	put(t, e, "undo/1", "a", "undo/2", "b")

	tx, err := e.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("undo/3"), []byte("c")))
	require.NoError(t, tx.Delete([]byte("undo/1")))

	val, err := tx.Get([]byte("undo/3"))
	require.NoError(t, err, "uncommitted write not visible")
	require.Equal(t, []byte("c"), val)

	has, err := tx.Has([]byte("undo/1"))
	require.NoError(t, err)
	require.False(t, has, "uncommitted delete not visible")
	_, err = tx.Get([]byte("undo/1"))
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, [][2]string{{"undo/2", "b"}, {"undo/3", "c"}},
		collect(t, tx, []byte("undo/")))

	tx.Discard()

	require.NoError(t, View(e, func(r Reader) error {
		require.Equal(t, [][2]string{{"undo/1", "a"}, {"undo/2", "b"}},
			collect(t, r, []byte("undo/")))
		return nil
	}))
}

func testScan(t *testing.T, e Engine) {
	put(t, e,
		"m\x00", "zero",
		"m\x01b", "second",
		"m\x01a", "first",
		"m\xff", "last",
		"n", "next",
		"\xff\xff", "top",
	)

	tests := []struct {
		name   string
		prefix []byte
		want   [][2]string
	}{{
		name:   "single byte prefix",
		prefix: []byte("m"),
		want: [][2]string{
			{"m\x00", "zero"}, {"m\x01a", "first"},
			{"m\x01b", "second"}, {"m\xff", "last"},
		},
	}, {
		name:   "nested prefix",
		prefix: []byte("m\x01"),
		want:   [][2]string{{"m\x01a", "first"}, {"m\x01b", "second"}},
	}, {
		name:   "exact key",
		prefix: []byte("n"),
		want:   [][2]string{{"n", "next"}},
	}, {
		name:   "all 0xff prefix",
		prefix: []byte("\xff"),
		want:   [][2]string{{"\xff\xff", "top"}},
	}, {
		name:   "no match",
		prefix: []byte("o"),
	}, {
		name:   "whole keyspace",
		prefix: nil,
		want: [][2]string{
			{"m\x00", "zero"}, {"m\x01a", "first"},
			{"m\x01b", "second"}, {"m\xff", "last"},
			{"n", "next"}, {"\xff\xff", "top"},
		},
	}}

	snap, err := e.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	for _, test := range tests {
		require.Equal(t, test.want, collect(t, snap, test.prefix),
			test.name)
	}

	// An exhausted cursor stays exhausted and yields no pairs.
	c := snap.Scan([]byte("n"))
	require.True(t, c.Next())
	require.False(t, c.Next())
	require.Nil(t, c.Key())
	require.Nil(t, c.Value())
	require.NoError(t, c.Err())
	c.Release()
}

func testUpdateRollback(t *testing.T, e Engine) {
	errAbort := errors.New("abort")
	err := Update(e, func(tx Transaction) error {
		if err := tx.Put([]byte("mint/02"), []byte("x")); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	require.NoError(t, View(e, func(r Reader) error {
		has, err := r.Has([]byte("mint/02"))
		require.NoError(t, err)
		require.False(t, has, "aborted update was applied")
		return nil
	}))
}

func testLifecycle(t *testing.T, e Engine) {
	tx, err := e.Transaction()
	require.NoError(t, err)
	tx.Discard()
	tx.Discard()
	require.Error(t, tx.Commit(), "commit after discard")

	tx, err = e.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	tx.Discard()

	snap, err := e.Snapshot()
	require.NoError(t, err)
	c := snap.Scan(nil)
	require.NoError(t, c.Err())
	c.Release()
	c.Release()
	require.False(t, c.Next(), "released cursor advanced")

	snap.Release()
	snap.Release()
	_, err = snap.Get([]byte("mint/01"))
	require.Error(t, err, "read from released snapshot")

	require.NoError(t, e.Close())
	require.Error(t, e.Close(), "second close")

	_, err = e.Transaction()
	require.Error(t, err, "transaction on closed engine")
	_, err = e.Snapshot()
	require.Error(t, err, "snapshot on closed engine")
}
