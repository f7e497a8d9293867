// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	defer SetLogLevels("info")

	tests := []struct {
		name    string
		levels  string
		wantErr bool
		want    map[string]btclog.Level
	}{{
		name:   "global level",
		levels: "debug",
		want: map[string]btclog.Level{
			"STKR": btclog.LevelDebug,
			"WLLT": btclog.LevelDebug,
		},
	}, {
		name:   "per subsystem",
		levels: "STKR=trace,WLLT=warn",
		want: map[string]btclog.Level{
			"STKR": btclog.LevelTrace,
			"WLLT": btclog.LevelWarn,
		},
	}, {
		name:    "bad global level",
		levels:  "loud",
		wantErr: true,
	}, {
		name:    "unknown subsystem",
		levels:  "STKR=debug,NOPE=info",
		wantErr: true,
	}, {
		name:    "bare subsystem",
		levels:  "STKR",
		wantErr: true,
	}, {
		name:    "malformed pair",
		levels:  "STKR=debug=x",
		wantErr: true,
	}, {
		name:    "bad pair level",
		levels:  "STKR=loud",
		wantErr: true,
	}}

	for _, test := range tests {
		SetLogLevels("info")
		err := ParseAndSetDebugLevels(test.levels)
		if test.wantErr {
			require.Error(t, err, test.name)
			for _, id := range SupportedSubsystems() {
				require.Equal(t, btclog.LevelInfo,
					subsystemLoggers[id].Level(),
					"%s: %s changed", test.name, id)
			}
			continue
		}
		require.NoError(t, err, test.name)
		for id, level := range test.want {
			require.Equal(t, level, subsystemLoggers[id].Level(),
				"%s: %s", test.name, id)
		}
	}
}

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"CHAN", "RCTX", "SIMU", "STKI", "STKR", "WLLT"},
		SupportedSubsystems())
}

func TestInitLogRotator(t *testing.T) {
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()
	err := InitLogRotator(filepath.Join(t.TempDir(), "logs", "stakesim.log"))
	require.NoError(t, err)
	require.NotNil(t, LogRotator)
}

func TestPickNoun(t *testing.T) {
	require.Equal(t, "coin", PickNoun(1, "coin", "coins"))
	require.Equal(t, "coins", PickNoun(0, "coin", "coins"))
	require.Equal(t, "coins", PickNoun(2, "coin", "coins"))
}
