// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package stake contains the stake input abstraction used by the
Proof-of-Stake (PoS) minting code.

A stake input is a previously received coin that a wallet offers as a
candidate to mint the next block.  The staking engine walks the candidates,
asks each one for its staking weight and its per-round stake modifier, tests
the kernel hash, and on a match asks the winning input to assemble the
coinstake transaction.

Two structurally different families of spendable value are supported through
the one StakeInput interface:

- RingCTStake wraps a ring-confidential output.  It is spent through a ring of
  RingSize members (the real output plus decoys) and a ring signature.  Its
  uniqueness fingerprint is the output's key image.

- ZerocoinStake wraps a zerocoin commitment.  It is either a candidate (an
  unspent mint) or a confirmed stake (a completed spend).  Its uniqueness
  fingerprint is the serial hash, which is visible to every verifier once the
  spend is confirmed.

The interface is closed: only the two types above implement it, so a type
switch over a StakeInput is exhaustive.

Cryptographic primitives (ring signatures, spend proofs, commitments), decoy
selection, and chain/wallet storage are external services reached through the
interfaces in services.go.  Every operation that needs one takes it as an
explicit argument, which keeps ownership visible at the call site and lets the
package be tested without a live wallet.

Errors

All failures are reported as RuleError values.  The ErrorCode carried by each
one belongs to a Category, so callers can tell an expected, transient
ineligibility (the coin is not deep enough yet) from a data inconsistency in
the wallet or a failed cryptographic assembly.  None of them is fatal to the
node.
*/
package stake
