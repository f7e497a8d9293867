// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"errors"
	"testing"
)

func TestPrefixEnd(t *testing.T) {
	tests := []struct {
		prefix []byte
		want   []byte
	}{
		{nil, nil},
		{[]byte{}, nil},
		{[]byte{0xff}, nil},
		{[]byte{0xff, 0xff}, nil},
		{[]byte("m"), []byte("n")},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0x01, 0xfe}, []byte{0x01, 0xff}},
		{[]byte{0x00, 0xff, 0xff}, []byte{0x01}},
	}

	for i, test := range tests {
		got := PrefixEnd(test.prefix)
		if string(got) != string(test.want) || (got == nil) != (test.want == nil) {
			t.Errorf("PrefixEnd #%d (%x): got %x, want %x", i,
				test.prefix, got, test.want)
		}
	}

	// The prefix is not modified.
	prefix := []byte{0x10, 0x20}
	PrefixEnd(prefix)
	if prefix[1] != 0x20 {
		t.Fatalf("PrefixEnd modified its argument: %x", prefix)
	}
}

func TestExhaustedCursor(t *testing.T) {
	errScan := errors.New("scan failed")
	c := ExhaustedCursor(errScan)
	if c.Next() || c.Key() != nil || c.Value() != nil {
		t.Fatal("exhausted cursor yielded a pair")
	}
	if !errors.Is(c.Err(), errScan) {
		t.Fatalf("Err: got %v, want %v", c.Err(), errScan)
	}
	c.Release()
}
