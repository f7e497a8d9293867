// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/ringstake/stakeinput/blockchain/stake"
	ilog "github.com/ringstake/stakeinput/internal/log"
)

const (
	defaultDbType      = "leveldb"
	defaultLogLevel    = "info"
	defaultRounds      = 20
	defaultCoins       = 8
	defaultMints       = 4
	defaultChainHeight = 300
	defaultTargetBits  = 0x1f00ffff
	defaultLogFilename = "stakesim.log"
)

var (
	defaultDataDir = btcutil.AppDataDir("stakesim", false)
	knownDbTypes   = []string{"leveldb", "pebble"}
)

// config defines the configuration options for stakesim.
//
// See loadConfig for details on the configuration load process.
type config struct {
	DataDir     string `short:"b" long:"datadir" description:"Directory for the wallet records and logs"`
	DbType      string `long:"dbtype" description:"Database backend for the wallet records {leveldb, pebble}"`
	LogLevel    string `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Rounds      int    `short:"n" long:"rounds" description:"Number of blocks to simulate"`
	Coins       int    `long:"coins" description:"Number of ring-confidential coins in the wallet"`
	Mints       int    `long:"mints" description:"Number of zerocoin mints in the wallet"`
	ChainHeight int32  `long:"chainheight" description:"Height of the synthetic chain before staking starts"`
	TargetBits  uint32 `long:"targetbits" description:"Compact kernel target per unit of weight"`
	Rewind      int32  `long:"rewind" description:"Number of blocks to disconnect after the simulation"`
	Seed        int64  `long:"seed" description:"Seed for the generated wallet keys and ring positions"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`

	Params stake.Params `group:"Staking policy"`
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// loadConfig initializes and parses the config using command line options.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		DataDir:     defaultDataDir,
		DbType:      defaultDbType,
		LogLevel:    defaultLogLevel,
		Rounds:      defaultRounds,
		Coins:       defaultCoins,
		Mints:       defaultMints,
		ChainHeight: defaultChainHeight,
		TargetBits:  defaultTargetBits,
		Seed:        1,
		Params:      stake.DefaultParams(),
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	funcName := "loadConfig"
	fail := func(format string, args ...interface{}) (*config, []string, error) {
		err := fmt.Errorf("%s: "+format, append([]interface{}{funcName}, args...)...)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.LogLevel == "show" {
		fmt.Println("Supported subsystems", ilog.SupportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := ilog.ParseAndSetDebugLevels(cfg.LogLevel); err != nil {
		return fail("%v", err)
	}

	// Validate database type.
	cfg.DbType = strings.ToLower(cfg.DbType)
	if !validDbType(cfg.DbType) {
		return fail("the specified database type [%v] is invalid -- "+
			"supported types %v", cfg.DbType, knownDbTypes)
	}

	if cfg.Rounds < 0 || cfg.Coins < 0 || cfg.Mints < 0 {
		return fail("rounds, coins and mints may not be negative")
	}
	if cfg.Rewind < 0 || int(cfg.Rewind) > cfg.Rounds {
		return fail("rewind must be between 0 and the number of rounds")
	}

	// The wallet coins are placed below the starting height, each at a
	// height with a stake modifier.
	minHeight := cfg.Params.ModifierModulus + int32(cfg.Coins+cfg.Mints)
	if cfg.ChainHeight < minHeight {
		return fail("chain height %d is below the minimum %d for the "+
			"configured coins", cfg.ChainHeight, minHeight)
	}

	if err := cfg.Params.Validate(); err != nil {
		return fail("invalid staking policy: %v", err)
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	return &cfg, remainingArgs, nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultDataDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
