package flow

import (
	"math/rand/v2"
	"sync"
)

// Randomizer supplies the two random draws a session needs: group
// assignment and the stimulus permutation.
type Randomizer interface {
	// Shuffle returns a permuted copy of items.
	Shuffle(items []string) []string
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
}

type systemRandomizer struct{}

// SystemRandomizer draws from the runtime's global source.
func SystemRandomizer() Randomizer {
	return systemRandomizer{}
}

func (systemRandomizer) Shuffle(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (systemRandomizer) IntN(n int) int {
	return rand.IntN(n)
}

type seededRandomizer struct {
	mu sync.Mutex
	r  *rand.Rand
}

// SeededRandomizer returns a deterministic Randomizer. Safe for concurrent use.
func SeededRandomizer(seed uint64) Randomizer {
	return &seededRandomizer{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededRandomizer) Shuffle(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (s *seededRandomizer) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}
