// Package kinetics implements the per-gene update rules: Hill-type
// expression, multiplicative Gaussian noise and explicit-Euler protein turnover.
package kinetics

import (
	"math"
	"math/rand"
)

// MicromolarToNanomolar converts binding affinity into the TF concentration unit.
const MicromolarToNanomolar = 1000.0

// Expression returns the TF-driven activation of a gene:
//
//	E = vmax * tf^n / ((kd*1000)^n + tf^n) * (1-methylation) * (1-mutation)
//
// floored at 0. Negative tf, kd and n are treated as 0; tf == 0 and an
// all-zero denominator both yield 0.
func Expression(tf, kd, n, vmax, methylation, mutation float64) float64 {
	tf = nonNegative(tf)
	kd = nonNegative(kd)
	n = nonNegative(n)
	if tf == 0 {
		return 0
	}

	kdNM := kd * MicromolarToNanomolar
	tfN := math.Pow(tf, n)
	denom := math.Pow(kdNM, n) + tfN
	if denom == 0 || math.IsNaN(denom) {
		return 0
	}
	ratio := tfN / denom
	if math.IsNaN(ratio) {
		// tf^n overflowed to +Inf; the curve is saturated.
		ratio = 1
	}

	e := vmax * ratio
	e *= (1 - methylation) * (1 - mutation)
	return floor(e)
}

// StepProtein advances dP/dt = eta*T - delta*P by one explicit Euler step and
// floors the result at 0. Large dt*delta can overshoot below zero before the
// floor; that is the documented behaviour, not adaptive control.
func StepProtein(p, t, eta, delta, dt float64) float64 {
	return floor(p + (eta*t-delta*p)*dt)
}

// Source supplies uniform draws in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// Noise is the only source of randomness in the engine. It is not safe for
// concurrent use; give each session its own instance.
type Noise struct {
	src Source
}

func NewNoise(src Source) *Noise {
	if src == nil {
		src = rand.New(rand.NewSource(1))
	}
	return &Noise{src: src}
}

func NewSeededNoise(seed int64) *Noise {
	return NewNoise(rand.New(rand.NewSource(seed)))
}

// Gaussian draws one zero-mean sample with standard deviation sigma using
// the Box-Muller transform. sigma == 0 returns 0 without consuming draws.
func (n *Noise) Gaussian(sigma float64) float64 {
	if sigma == 0 {
		return 0
	}
	u1 := 1 - n.src.Float64() // (0, 1], keeps the log finite
	u2 := n.src.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return z * sigma
}

// Apply perturbs an expression value into an mRNA estimate, T = E*(1+eps),
// floored at 0. sigma == 0 returns e unchanged.
func (n *Noise) Apply(e, sigma float64) float64 {
	if sigma == 0 {
		return e
	}
	return floor(e * (1 + n.Gaussian(sigma)))
}

func floor(v float64) float64 {
	if v > 0 {
		return v
	}
	// Also maps NaN and -0 to 0.
	return 0
}

func nonNegative(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}
