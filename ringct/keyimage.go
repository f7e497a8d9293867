// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ringct

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ringstake/stakeinput/blockchain/stake"
	"golang.org/x/crypto/sha3"
)

// maxHashToPointAttempts bounds the try-and-increment loop.  Roughly half of
// all x coordinates are on the curve, so it is never reached in practice.
const maxHashToPointAttempts = 256

var (
	// ErrNoPoint is returned when no curve point was found for a key.
	ErrNoPoint = errors.New("ringct: no curve point for key")

	// ErrUnknownKey is returned by a KeyImager for outputs the wallet
	// holds no private key for.
	ErrUnknownKey = errors.New("ringct: unknown output key")
)

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}

// HashToPoint maps the public key onto a secp256k1 point whose discrete log
// is unknown.
func HashToPoint(pub *btcec.PublicKey) (*btcec.PublicKey, error) {
	digest := keccak256(pub.SerializeCompressed())
	for i := 0; i < maxHashToPointAttempts; i++ {
		var x, y secp256k1.FieldVal
		if overflow := x.SetByteSlice(digest); !overflow {
			if secp256k1.DecompressY(&x, false, &y) {
				return secp256k1.NewPublicKey(&x, &y), nil
			}
		}
		digest = keccak256(digest)
	}
	return nil, ErrNoPoint
}

// KeyImage returns the compressed key image of the output owned by priv.
func KeyImage(priv *btcec.PrivateKey) ([]byte, error) {
	hp, err := HashToPoint(priv.PubKey())
	if err != nil {
		return nil, err
	}

	var point, result secp256k1.JacobianPoint
	hp.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()
	image := secp256k1.NewPublicKey(&result.X, &result.Y)
	return image.SerializeCompressed(), nil
}

// KeyLookup returns the private key of the output with the compressed public
// key pub, or ErrUnknownKey.
type KeyLookup func(pub []byte) (*btcec.PrivateKey, error)

// KeyImager computes key images of wallet outputs.
type KeyImager struct {
	lookup KeyLookup
}

// NewKeyImager returns a key imager over the wallet's key lookup.
func NewKeyImager(lookup KeyLookup) *KeyImager {
	return &KeyImager{lookup: lookup}
}

// KeyImage returns the key image of the output.
func (k *KeyImager) KeyImage(out *stake.OutputEntry) ([]byte, error) {
	pub, err := btcec.ParsePubKey(out.PubKey)
	if err != nil {
		return nil, fmt.Errorf("output %d has invalid public key: %w",
			out.AnonIndex, err)
	}
	priv, err := k.lookup(out.PubKey)
	if err != nil {
		return nil, err
	}
	if !priv.PubKey().IsEqual(pub) {
		return nil, fmt.Errorf("key for output %d does not match its "+
			"public key", out.AnonIndex)
	}
	return KeyImage(priv)
}

// NewStake returns the ring-confidential stake input for the wallet output
// coin, computing its key image.
func (k *KeyImager) NewStake(params *stake.Params, coin *stake.OutputRecord) (*stake.RingCTStake, error) {
	if coin == nil || coin.Tx == nil {
		return nil, errors.New("ringct: output record has no transaction")
	}
	out, ok := coin.Tx.Output(coin.Index)
	if !ok {
		return nil, fmt.Errorf("ringct: transaction %v has no output %d",
			coin.Tx.TxHash, coin.Index)
	}
	image, err := k.KeyImage(out)
	if err != nil {
		return nil, err
	}
	log.Tracef("Key image %x for output %v:%d", image, coin.Tx.TxHash,
		coin.Index)
	return stake.NewRingCTStake(params, coin, image)
}
