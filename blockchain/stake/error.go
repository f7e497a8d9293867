// Copyright (c) 2014 Conformal Systems LLC.
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrImmature indicates that the coin has not yet reached the required
	// stake depth relative to the chain tip.
	ErrImmature ErrorCode = iota

	// ErrChainTooShallow indicates that the chain is not long enough yet to
	// evaluate the coin, for instance the checksum height lies above the
	// tip.
	ErrChainTooShallow

	// ErrModifierUnavailable indicates that the origin of the coin predates
	// the first height at which stake modifiers can be computed.
	ErrModifierUnavailable

	// ErrStaleTip indicates that the chain tip moved while a staking
	// attempt was in progress and the attempt was abandoned.
	ErrStaleTip

	// ErrMissingTx indicates that the transaction a coin originated from
	// could not be located.
	ErrMissingTx

	// ErrMissingBlockIndex indicates that the block a coin originated from
	// is not known to the chain index.
	ErrMissingBlockIndex

	// ErrMissingChecksum indicates that no accumulator checksum could be
	// resolved for a zerocoin stake.
	ErrMissingChecksum

	// ErrMissingMint indicates that the wallet holds no mint record for the
	// serial hash of a zerocoin stake.
	ErrMissingMint

	// ErrAmountUnknown indicates that the amount of a ring-confidential
	// output has not been decrypted by the wallet.
	ErrAmountUnknown

	// ErrMalformedContext indicates that a signing context, output record
	// or service response is structurally invalid.
	ErrMalformedContext

	// ErrAlreadySpent indicates that the coin has already been consumed,
	// either by another coinstake or by a regular spend.
	ErrAlreadySpent

	// ErrDuplicateStake indicates that the uniqueness fingerprint of the
	// coin was already used by another coinstake.
	ErrDuplicateStake

	// ErrDecoySelection indicates that the decoy selection service failed
	// to supply a usable set of ring members.
	ErrDecoySelection

	// ErrRingSignature indicates that ring signing or output commitment
	// generation failed.
	ErrRingSignature

	// ErrSpendProof indicates that zerocoin spend proof or mint generation
	// failed.
	ErrSpendProof

	// ErrNotCompleted indicates that MarkSpent was called on a stake whose
	// transaction was never completed.
	ErrNotCompleted

	// ErrAlreadyCompleted indicates that CompleteTx was called a second
	// time on the same stake.
	ErrAlreadyCompleted

	// ErrAssemblyOrder indicates that the transaction assembly steps were
	// called out of order, for example CompleteTx before CreateTxIn.
	ErrAssemblyOrder

	// ErrInvalidTransition indicates an attempt to move a zerocoin record
	// along a transition that does not exist.
	ErrInvalidTransition

	// ErrInvalidParams indicates that the staking policy parameters are
	// not usable.
	ErrInvalidParams

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrImmature:            "ErrImmature",
	ErrChainTooShallow:     "ErrChainTooShallow",
	ErrModifierUnavailable: "ErrModifierUnavailable",
	ErrStaleTip:            "ErrStaleTip",
	ErrMissingTx:           "ErrMissingTx",
	ErrMissingBlockIndex:   "ErrMissingBlockIndex",
	ErrMissingChecksum:     "ErrMissingChecksum",
	ErrMissingMint:         "ErrMissingMint",
	ErrAmountUnknown:       "ErrAmountUnknown",
	ErrMalformedContext:    "ErrMalformedContext",
	ErrAlreadySpent:        "ErrAlreadySpent",
	ErrDuplicateStake:      "ErrDuplicateStake",
	ErrDecoySelection:      "ErrDecoySelection",
	ErrRingSignature:       "ErrRingSignature",
	ErrSpendProof:          "ErrSpendProof",
	ErrNotCompleted:        "ErrNotCompleted",
	ErrAlreadyCompleted:    "ErrAlreadyCompleted",
	ErrAssemblyOrder:       "ErrAssemblyOrder",
	ErrInvalidTransition:   "ErrInvalidTransition",
	ErrInvalidParams:       "ErrInvalidParams",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Category groups error codes by how the staking engine is expected to react
// to them.
type Category int

const (
	// CategoryTransient covers expected, high frequency ineligibility.  The
	// coin is retried on a later round.
	CategoryTransient Category = iota

	// CategoryDataInconsistency covers wallet or chain state that does not
	// line up.  The coin is skipped and may be flagged for a rescan.
	CategoryDataInconsistency

	// CategoryCrypto covers signing and proof generation failures.  The
	// transaction under assembly must be discarded.
	CategoryCrypto

	// CategoryProgramming covers misuse of the API by the caller.
	CategoryProgramming
)

// Category returns the category the error code belongs to.
func (e ErrorCode) Category() Category {
	switch e {
	case ErrImmature, ErrChainTooShallow, ErrModifierUnavailable,
		ErrStaleTip:
		return CategoryTransient

	case ErrDecoySelection, ErrRingSignature, ErrSpendProof:
		return CategoryCrypto

	case ErrNotCompleted, ErrAlreadyCompleted, ErrAssemblyOrder,
		ErrInvalidTransition, ErrInvalidParams:
		return CategoryProgramming
	}
	return CategoryDataInconsistency
}

// RuleError identifies a rule violation.  It is used to indicate that
// evaluating or assembling a stake input failed.  The caller can use
// errors.As to determine if a failure was specifically due to a rule
// violation and access the ErrorCode field to ascertain the specific reason.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// GetCode returns the error code of the rule violation.
func (e RuleError) GetCode() ErrorCode {
	return e.ErrorCode
}

// stakeRuleError creates an RuleError given a set of arguments.
func stakeRuleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// ruleErrorf creates a RuleError with a formatted description.
func ruleErrorf(c ErrorCode, format string, args ...interface{}) RuleError {
	return stakeRuleError(c, fmt.Sprintf(format, args...))
}

// IsErrorCode returns whether err is a RuleError with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}

// ErrorCategory returns the category of err.  Errors that are not a RuleError
// are reported as data inconsistencies since they originate from storage.
func ErrorCategory(err error) Category {
	var rerr RuleError
	if errors.As(err, &rerr) {
		return rerr.ErrorCode.Category()
	}
	return CategoryDataInconsistency
}

// IsTransient returns whether err only signals that the coin is not eligible
// yet.
func IsTransient(err error) bool {
	return err != nil && ErrorCategory(err) == CategoryTransient
}

// IsDataInconsistency returns whether err reports stored or chain data that
// contradicts itself.
func IsDataInconsistency(err error) bool {
	return err != nil && ErrorCategory(err) == CategoryDataInconsistency
}
