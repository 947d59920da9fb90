package gentest

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/tempusfrangit/go-gentest/idl"
)

// Randomizer is the single random source of a generation run. Every
// randomized choice draws from it in sequence.
type Randomizer struct {
	r *rand.Rand
}

// NewRandomizer seeds a new source.
func NewRandomizer(seed uint64) *Randomizer {
	return &Randomizer{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// RandomizeCase returns s with each rune independently upper- or
// lower-cased with equal probability.
func (r *Randomizer) RandomizeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if r.r.IntN(2) == 0 {
			b.WriteRune(unicode.ToLower(c))
		} else {
			b.WriteRune(unicode.ToUpper(c))
		}
	}
	return b.String()
}

// RandomizeEnum picks the C constant of one of e's values uniformly.
// e must have at least one value; idl.Validate rejects empty enumerations.
func (r *Randomizer) RandomizeEnum(e *idl.Enumeration) string {
	return e.Values[r.r.IntN(len(e.Values))].Name
}
