// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates that the block does not extend the
	// current best chain.
	ErrMissingParent

	// ErrBadChecksum indicates a block carries an accumulator checksum for
	// an unknown denomination or before zerocoin start.
	ErrBadChecksum

	// ErrNoTip indicates an operation that needs a chain tip was called on
	// an empty index.
	ErrNoTip

	// ErrDisconnectGenesis indicates an attempt to disconnect the genesis
	// block.
	ErrDisconnectGenesis
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:    "ErrDuplicateBlock",
	ErrMissingParent:     "ErrMissingParent",
	ErrBadChecksum:       "ErrBadChecksum",
	ErrNoTip:             "ErrNoTip",
	ErrDisconnectGenesis: "ErrDisconnectGenesis",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block failed due to one of the many validation rules.
// The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}
