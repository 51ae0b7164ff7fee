package algorithm

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Sampler is the single owner of the process-wide random generator backing
// action selection. It is seeded once at startup and advances monotonically
// across calls; draws serialize on the mutex so the snapshot captured for a
// draw always describes the state that produced it.
type Sampler struct {
	mu  sync.Mutex
	pcg *rand.PCG
	rng *rand.Rand
}

// NewSampler seeds the generator deterministically. Tests use this to get
// reproducible draw sequences.
func NewSampler(seed uint64) *Sampler {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Sampler{pcg: pcg, rng: rand.New(pcg)}
}

// NewSamplerFromEntropy seeds from system entropy, for deployments that do
// not pin a seed.
func NewSamplerFromEntropy() (*Sampler, error) {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to read entropy for sampler seed: %w", err)
	}
	s1 := binary.LittleEndian.Uint64(buf[0:8])
	s2 := binary.LittleEndian.Uint64(buf[8:16])
	pcg := rand.NewPCG(s1, s2)
	return &Sampler{pcg: pcg, rng: rand.New(pcg)}, nil
}

// Draw returns a Bernoulli(p) sample together with the generator state
// captured before the draw. Feeding that state back to Replay with the same
// p reproduces the outcome exactly.
func (s *Sampler) Draw(p float64) (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.pcg.MarshalBinary()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to snapshot rng state: %w", err)
	}
	outcome := 0
	if s.rng.Float64() < p {
		outcome = 1
	}
	return outcome, snapshot, nil
}

// Replay re-executes a draw from a captured snapshot without touching the
// live generator.
func Replay(snapshot []byte, p float64) (int, error) {
	pcg := rand.NewPCG(0, 0)
	if err := pcg.UnmarshalBinary(snapshot); err != nil {
		return 0, fmt.Errorf("failed to restore rng state: %w", err)
	}
	rng := rand.New(pcg)
	outcome := 0
	if rng.Float64() < p {
		outcome = 1
	}
	return outcome, nil
}
