// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

// Cursor walks the pairs of a Scan in ascending key order.  A new cursor is
// positioned before the first pair, so the first Next lands on it.
//
// Key and Value return nil unless the cursor is positioned on a pair.  The
// returned slices are only valid until the next call to Next.
type Cursor interface {
	Next() bool
	Key() []byte
	Value() []byte

	// Err returns the error that stopped the scan, if any.  Running off the
	// end of the prefix is not an error.
	Err() error

	// Release frees the cursor.  It is safe to call more than once.
	Release()
}

// PrefixEnd returns the smallest key that sorts after every key starting with
// prefix.  It returns nil when there is no such key, which happens for an
// empty prefix or one made only of 0xff bytes.
func PrefixEnd(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] == 0xff {
			continue
		}
		end := make([]byte, i+1)
		copy(end, prefix)
		end[i]++
		return end
	}
	return nil
}

// ExhaustedCursor returns a cursor with no pairs that reports err.  Backends
// hand it out when a scan cannot be started.
func ExhaustedCursor(err error) Cursor {
	return exhausted{err: err}
}

type exhausted struct {
	err error
}

func (exhausted) Next() bool { return false }
func (exhausted) Key() []byte { return nil }
func (exhausted) Value() []byte { return nil }
func (c exhausted) Err() error { return c.err }
func (exhausted) Release() {}
