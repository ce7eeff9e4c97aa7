// Package simulation generates Monte Carlo trajectories of a Vasicek short rate.
//
// Paths advance one time step at a time across all paths. Every run draws from a single
// PCG stream in step-major order (all paths of step t, then step t+1), so a fixed seed
// reproduces the matrix bit for bit. Vasicek rates may go negative; no reflection or
// absorption is applied.
package simulation

import (
	"fmt"
	"math/rand/v2"

	"github.com/meenmo/shortrate/vasicek"
)

// pcgStream is the fixed PCG stream selector; the seed alone picks the sequence.
const pcgStream = 0x5eed_0f_7a5e_c0de

// Config describes one simulation run.
type Config struct {
	// Steps is the horizon in increments of Dt. Zero yields a single row of R0.
	Steps int
	// Paths is the number of independent trajectories.
	Paths int
	// Dt is the step size in years.
	Dt float64
	// Scheme selects the transition; empty means SchemeExact.
	Scheme Scheme
	// Seed makes the run reproducible. Nil draws a fresh seed.
	Seed *uint64
}

// Seed is a convenience for filling Config.Seed.
func Seed(v uint64) *uint64 {
	return &v
}

// NewRand returns the generator Simulate uses for a given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// Simulate generates a (Steps+1) × Paths matrix of rates under p.
func Simulate(p vasicek.Params, cfg Config) (*Matrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("%w: steps must be >= 0, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if cfg.Paths <= 0 {
		return nil, fmt.Errorf("%w: paths must be > 0, got %d", ErrInvalidConfig, cfg.Paths)
	}
	if err := checkStep(cfg.Dt); err != nil {
		return nil, err
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = SchemeExact
	}
	tr, err := newTransition(p, cfg.Dt, scheme)
	if err != nil {
		return nil, err
	}

	var seed uint64
	if cfg.Seed != nil {
		seed = *cfg.Seed
	} else {
		seed = rand.Uint64() // runtime-seeded source
	}
	rng := NewRand(seed)

	m := newMatrix(cfg.Steps, cfg.Paths, p.R0)
	for t := 1; t <= cfg.Steps; t++ {
		prev := m.Row(t - 1)
		cur := m.Row(t)
		for j := range cur {
			cur[j] = tr.next(prev[j], rng.NormFloat64())
		}
	}
	return m, nil
}
