// Copyright (c) 2024 The ringstake developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package simservices

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ringstake/stakeinput/blockchain/stake"
)

// ErrInjected is returned by services told to fail.
var ErrInjected = errors.New("simservices: injected failure")

// Point returns a deterministic 33 byte pseudo point for the tag and n.
func Point(tag string, n uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	sum := chainhash.HashB(append([]byte(tag), buf[:]...))
	return append([]byte{0x02}, sum...)
}

// DecoySelector hands out decoys from a pool of anon outputs numbered from
// FirstIndex on.
type DecoySelector struct {
	FirstIndex int64

	// Duplicate makes the selector return the same decoy twice.
	Duplicate bool

	// Fail makes every selection fail.
	Fail bool

	calls atomic.Int32
}

// SelectDecoys returns count consecutive pool outputs, skipping exclude.
func (d *DecoySelector) SelectDecoys(exclude int64, count int, tip stake.BlockRef) ([]stake.RingMember, error) {
	d.calls.Add(1)
	if d.Fail {
		return nil, ErrInjected
	}

	members := make([]stake.RingMember, 0, count)
	for idx := d.FirstIndex; len(members) < count; idx++ {
		if idx == exclude {
			continue
		}
		members = append(members, stake.RingMember{
			AnonIndex:  idx,
			PubKey:     Point("decoy-pub", uint64(idx)),
			Commitment: Point("decoy-commit", uint64(idx)),
		})
	}
	if d.Duplicate && count > 1 {
		members[1] = members[0]
	}
	return members, nil
}

// Calls returns how often SelectDecoys was called.
func (d *DecoySelector) Calls() int {
	return int(d.calls.Load())
}

// RingSigner creates outputs with deterministic commitments and signs with a
// hash over the signature hash and the ring.
type RingSigner struct {
	// Fail makes Sign fail.
	Fail bool

	mtx     sync.Mutex
	outputs uint64
	signed  []chainhash.Hash
}

// NewOutput returns an output of value and records it in out.
func (s *RingSigner) NewOutput(value btcutil.Amount, out *stake.OutputsSigContext) (*stake.RingCTOutput, error) {
	s.mtx.Lock()
	s.outputs++
	n := s.outputs
	s.mtx.Unlock()

	blind := chainhash.HashB(Point("blind", n))
	out.Amounts = append(out.Amounts, value)
	out.Blinds = append(out.Blinds, blind)
	return &stake.RingCTOutput{
		PubKey:          Point("out-pub", n),
		EphemeralPubKey: Point("out-eph", n),
		Commitment:      Point("out-commit", uint64(value)^n),
		RangeProof:      blind,
	}, nil
}

// Sign returns the signature over sigHash.
func (s *RingSigner) Sign(in *stake.InputsSigContext, out *stake.OutputsSigContext, sigHash chainhash.Hash) ([]byte, error) {
	if s.Fail {
		return nil, ErrInjected
	}
	if len(in.Members) != in.RingSize {
		return nil, errors.New("simservices: incomplete ring")
	}
	s.mtx.Lock()
	s.signed = append(s.signed, sigHash)
	s.mtx.Unlock()
	return Signature(sigHash, in.KeyImage), nil
}

// Signed returns the signature hashes signed so far.
func (s *RingSigner) Signed() []chainhash.Hash {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]chainhash.Hash(nil), s.signed...)
}

// Signature returns the signature RingSigner produces for sigHash and the key
// image.
func Signature(sigHash chainhash.Hash, keyImage []byte) []byte {
	return chainhash.DoubleHashB(append(sigHash[:], keyImage...))
}

// SpendProver returns transparent proofs: a hash over the request.
type SpendProver struct {
	// Fail makes every proof fail.
	Fail bool

	// Tamper makes the prover bind the proof to the wrong outputs.
	Tamper bool

	calls atomic.Int32
}

// ProveSpend returns a spend for req.
func (p *SpendProver) ProveSpend(req *stake.SpendRequest) (*stake.CoinSpend, error) {
	p.calls.Add(1)
	if p.Fail {
		return nil, ErrInjected
	}
	spend := &stake.CoinSpend{
		Denomination:        req.Denomination,
		SerialHash:          req.SerialHash,
		AccumulatorChecksum: req.AccumulatorChecksum,
		TxOutHash:           req.TxOutHash,
	}
	if p.Tamper {
		spend.TxOutHash[0] ^= 0xff
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], req.AccumulatorChecksum)
	preimage := append(req.SerialHash[:], req.TxOutHash[:]...)
	spend.Proof = chainhash.DoubleHashB(append(preimage, buf[:]...))
	return spend, nil
}

// Calls returns how often ProveSpend was called.
func (p *SpendProver) Calls() int {
	return int(p.calls.Load())
}

// Minter returns mints with sequential commitments.
type Minter struct {
	// Fail makes every mint fail.
	Fail bool

	next atomic.Uint64
}

// NewMint returns a fresh mint of denom.
func (m *Minter) NewMint(denom stake.Denomination) (*stake.ZerocoinMintOutput, error) {
	if m.Fail {
		return nil, ErrInjected
	}
	n := m.next.Add(1)
	return &stake.ZerocoinMintOutput{
		Denomination: denom,
		Commitment:   Point("mint", n),
	}, nil
}

// Services bundles one instance of every stand-in service.
type Services struct {
	Decoys *DecoySelector
	Signer *RingSigner
	Prover *SpendProver
	Minter *Minter
}

// NewServices returns fresh stand-in services.
func NewServices() *Services {
	return &Services{
		Decoys: &DecoySelector{FirstIndex: 1000},
		Signer: &RingSigner{},
		Prover: &SpendProver{},
		Minter: &Minter{},
	}
}

// Wallet returns a wallet handle over the services for a coinstake on tip.
// The ring position is drawn from a generator seeded with seed.
func (s *Services) Wallet(chain stake.ChainView, tip stake.BlockRef, seed int64) *stake.Wallet {
	return &stake.Wallet{
		Chain:     chain,
		Tip:       tip,
		Decoys:    s.Decoys,
		Signer:    s.Signer,
		Prover:    s.Prover,
		Minter:    s.Minter,
		PayScript: []byte{0x51},
		Rand:      rand.New(rand.NewSource(seed)),
	}
}
