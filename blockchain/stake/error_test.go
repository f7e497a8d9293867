// Copyright (c) 2014 Conformal Systems LLC.
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ringstake/stakeinput/blockchain/stake"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	tests := []struct {
		in   stake.ErrorCode
		want string
	}{
		{stake.ErrImmature, "ErrImmature"},
		{stake.ErrChainTooShallow, "ErrChainTooShallow"},
		{stake.ErrModifierUnavailable, "ErrModifierUnavailable"},
		{stake.ErrStaleTip, "ErrStaleTip"},
		{stake.ErrMissingTx, "ErrMissingTx"},
		{stake.ErrMissingBlockIndex, "ErrMissingBlockIndex"},
		{stake.ErrMissingChecksum, "ErrMissingChecksum"},
		{stake.ErrMissingMint, "ErrMissingMint"},
		{stake.ErrAmountUnknown, "ErrAmountUnknown"},
		{stake.ErrMalformedContext, "ErrMalformedContext"},
		{stake.ErrAlreadySpent, "ErrAlreadySpent"},
		{stake.ErrDuplicateStake, "ErrDuplicateStake"},
		{stake.ErrDecoySelection, "ErrDecoySelection"},
		{stake.ErrRingSignature, "ErrRingSignature"},
		{stake.ErrSpendProof, "ErrSpendProof"},
		{stake.ErrNotCompleted, "ErrNotCompleted"},
		{stake.ErrAlreadyCompleted, "ErrAlreadyCompleted"},
		{stake.ErrAssemblyOrder, "ErrAssemblyOrder"},
		{stake.ErrInvalidTransition, "ErrInvalidTransition"},
		{stake.ErrInvalidParams, "ErrInvalidParams"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestRuleError tests the error output for the RuleError type.
func TestRuleError(t *testing.T) {
	tests := []struct {
		in   stake.RuleError
		want string
	}{
		{stake.RuleError{Description: "coin is immature"},
			"coin is immature",
		},
		{stake.RuleError{Description: "human-readable error"},
			"human-readable error",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestErrorCategory ensures every code maps to the category the staking
// engine reacts to, also through wrapping.
func TestErrorCategory(t *testing.T) {
	tests := []struct {
		code stake.ErrorCode
		want stake.Category
	}{
		{stake.ErrImmature, stake.CategoryTransient},
		{stake.ErrChainTooShallow, stake.CategoryTransient},
		{stake.ErrModifierUnavailable, stake.CategoryTransient},
		{stake.ErrStaleTip, stake.CategoryTransient},
		{stake.ErrMissingTx, stake.CategoryDataInconsistency},
		{stake.ErrMissingChecksum, stake.CategoryDataInconsistency},
		{stake.ErrAmountUnknown, stake.CategoryDataInconsistency},
		{stake.ErrAlreadySpent, stake.CategoryDataInconsistency},
		{stake.ErrDecoySelection, stake.CategoryCrypto},
		{stake.ErrRingSignature, stake.CategoryCrypto},
		{stake.ErrSpendProof, stake.CategoryCrypto},
		{stake.ErrNotCompleted, stake.CategoryProgramming},
		{stake.ErrAlreadyCompleted, stake.CategoryProgramming},
		{stake.ErrInvalidTransition, stake.CategoryProgramming},
	}

	for i, test := range tests {
		err := fmt.Errorf("wrapped: %w", stake.RuleError{
			ErrorCode:   test.code,
			Description: "test",
		})
		if got := stake.ErrorCategory(err); got != test.want {
			t.Errorf("ErrorCategory #%d (%v): got %d want %d", i,
				test.code, got, test.want)
		}
		if !stake.IsErrorCode(err, test.code) {
			t.Errorf("IsErrorCode #%d (%v): wrapped code not found",
				i, test.code)
		}
		if stake.IsTransient(err) != (test.want == stake.CategoryTransient) {
			t.Errorf("IsTransient #%d (%v): wrong result", i,
				test.code)
		}
	}

	if stake.IsTransient(nil) || stake.IsDataInconsistency(nil) {
		t.Error("nil error reported with a category")
	}
	if !stake.IsDataInconsistency(errors.New("io failure")) {
		t.Error("plain error not reported as data inconsistency")
	}
}
