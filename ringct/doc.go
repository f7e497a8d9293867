// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package ringct derives the key images of ring-confidential outputs.

A key image is the wallet's private key for an output multiplied by a point
derived from the output's public key:

	I = x * Hp(P)

It is the same for every ring the output appears in, so it identifies the
output without revealing it.  Staking uses it as the uniqueness fingerprint of
a ring-confidential stake.

Hp is a Keccak-256 try-and-increment map onto secp256k1: the compressed public
key is hashed and the digest is rehashed until it is the x coordinate of a
point with an even y coordinate.
*/
package ringct
