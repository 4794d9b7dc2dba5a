// Package thermal models the heat a sintering batch needs and how fast a
// furnace sheds it.
package thermal

import (
	"math"

	"github.com/roach88/kiln/internal/ident"
)

// Config holds the coefficients of the required-heat model.
type Config struct {
	// BaseTemp is the temperature any batch needs (Kelvin).
	BaseTemp uint64
	// PressureCoefficient is added per PSI of applied pressure.
	PressureCoefficient float64
	// EntropyMultiplier scales the base temperature by normalised entropy.
	EntropyMultiplier float64
}

// DefaultConfig is the model used by RequiredHeat.
var DefaultConfig = Config{
	BaseTemp:            2000,
	PressureCoefficient: 8.5,
	EntropyMultiplier:   0.15,
}

// MinCooldownRate is the slowest a furnace ever cools per cycle.
const MinCooldownRate uint64 = 10

// RequiredHeat returns the temperature needed to sinter a batch with the
// given digest under pressure, using DefaultConfig.
func RequiredHeat(hash ident.Digest, pressure uint64) uint64 {
	return DefaultConfig.RequiredHeat(hash, pressure)
}

// RequiredHeat returns base + pressure*coefficient + entropy*multiplier*base,
// rounded to the nearest degree.
func (c Config) RequiredHeat(hash ident.Digest, pressure uint64) uint64 {
	base := float64(c.BaseTemp)
	total := base +
		float64(pressure)*c.PressureCoefficient +
		Entropy(hash)*c.EntropyMultiplier*base
	return uint64(math.Round(total))
}

// Entropy returns the Shannon entropy of the digest bytes normalised to
// [0, 1]. 32 bytes carry at most 5 bits.
func Entropy(hash ident.Digest) float64 {
	var freq [256]int
	for _, b := range hash {
		freq[b]++
	}

	n := float64(len(hash))
	var entropy float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}

	return math.Min(entropy/5.0, 1.0)
}

// CooldownRate approximates Newton cooling: 5% of the gap to ambient per
// cycle, never below MinCooldownRate.
func CooldownRate(current, ambient uint64) uint64 {
	var delta uint64
	if current > ambient {
		delta = current - ambient
	}
	rate := uint64(math.Round(float64(delta) * 0.05))
	if rate < MinCooldownRate {
		return MinCooldownRate
	}
	return rate
}

// CyclesToAmbient counts CooldownRate steps until current reaches ambient.
func CyclesToAmbient(current, ambient uint64) int {
	cycles := 0
	for current > ambient {
		rate := CooldownRate(current, ambient)
		if current-ambient <= rate {
			current = ambient
		} else {
			current -= rate
		}
		cycles++
	}
	return cycles
}
