// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log wires the per-package loggers to one btclog backend that writes
// to standard output and, once InitLogRotator has run, a rotated log file.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/ringstake/stakeinput/blockchain"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"github.com/ringstake/stakeinput/mining/staker"
	"github.com/ringstake/stakeinput/ringct"
	"github.com/ringstake/stakeinput/wallet"
)

const (
	// rotateSizeKB is the size at which the log file is rolled.
	rotateSizeKB = 10 * 1024

	// keepRolls is the number of rolled log files kept.
	keepRolls = 3
)

// logWriter writes to standard output and to the log rotator when one is
// initialized.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is the rotated file output.  It is nil until
	// InitLogRotator succeeds and must be closed on shutdown.
	LogRotator *rotator.Rotator

	// StkrLog is the staker subsystem logger.
	StkrLog = backendLog.Logger("STKR")

	// SimLog is the simulator's own logger.
	SimLog = backendLog.Logger("SIMU")
)

// subsystemLoggers maps each subsystem identifier to its logger.  Packages
// with a UseLogger hook are handed theirs in init.
var subsystemLoggers = map[string]btclog.Logger{
	"CHAN": backendLog.Logger("CHAN"),
	"RCTX": backendLog.Logger("RCTX"),
	"SIMU": SimLog,
	"STKI": backendLog.Logger("STKI"),
	"STKR": StkrLog,
	"WLLT": backendLog.Logger("WLLT"),
}

func init() {
	blockchain.UseLogger(subsystemLoggers["CHAN"])
	ringct.UseLogger(subsystemLoggers["RCTX"])
	stake.UseLogger(subsystemLoggers["STKI"])
	staker.UseLogger(StkrLog)
	wallet.UseLogger(subsystemLoggers["WLLT"])
}

// InitLogRotator creates the directory of logFile and starts rolling logs
// into it.
func InitLogRotator(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, rotateSizeKB, false, keepRolls)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	LogRotator = r
	return nil
}

// validLogLevel returns whether logLevel names a btclog level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// SetLogLevel sets the level of one subsystem.  Unknown subsystems are
// ignored and unknown levels fall back to info.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets every subsystem to logLevel.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// ParseAndSetDebugLevels applies a debug level string.  It is either
// a single level for every subsystem, or comma separated SUBSYS=level pairs.
func ParseAndSetDebugLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, "=") && !strings.Contains(debugLevel, ",") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				debugLevel)
		}
		SetLogLevels(debugLevel)
		return nil
	}

	// Validate every pair before changing anything.
	levels := make(map[string]string)
	for _, pair := range strings.Split(debugLevel, ",") {
		fields := strings.Split(pair, "=")
		if len(fields) != 2 {
			return fmt.Errorf("the specified debug level contains an "+
				"invalid subsystem/level pair [%v]", pair)
		}
		subsysID, logLevel := fields[0], fields[1]
		if _, ok := subsystemLoggers[subsysID]; !ok {
			return fmt.Errorf("the specified subsystem [%v] is invalid "+
				"-- supported subsystems %v", subsysID,
				SupportedSubsystems())
		}
		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is invalid",
				logLevel)
		}
		levels[subsysID] = logLevel
	}
	for subsysID, logLevel := range levels {
		SetLogLevel(subsysID, logLevel)
	}
	return nil
}

// SupportedSubsystems returns the subsystem identifiers in sorted order.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// PickNoun returns the singular or plural form of a noun depending on n.
func PickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
