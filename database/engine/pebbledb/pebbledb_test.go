// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pebbledb

import (
	"path/filepath"
	"testing"

	"github.com/ringstake/stakeinput/database/engine"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	engine.RunConformance(t, func(t *testing.T) engine.Engine {
		e, err := NewDB(filepath.Join(t.TempDir(), "records"), true, 0, 0)
		require.NoError(t, err)
		return e
	})
}

func TestCloseReleasesReaders(t *testing.T) {
	e, err := NewDB(filepath.Join(t.TempDir(), "records"), true, 1, 4)
	require.NoError(t, err)

	tx, err := e.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k"), []byte("v")))
	require.NoError(t, tx.Commit())

	require.ErrorIs(t, tx.Put([]byte("k"), []byte("w")), engine.ErrReleased)
	require.ErrorIs(t, tx.Commit(), engine.ErrReleased)
	_, err = tx.Get([]byte("k"))
	require.ErrorIs(t, err, engine.ErrReleased)

	snap, err := e.Snapshot()
	require.NoError(t, err)
	snap.Release()
	c := snap.Scan(nil)
	require.False(t, c.Next())
	require.ErrorIs(t, c.Err(), engine.ErrReleased)

	require.NoError(t, e.Close())
	require.ErrorIs(t, e.Close(), engine.ErrClosed)
}
