// Package simulate generates synthetic metric vectors for demos, training
// baselines and tests. It mirrors a small system health triple: CPU load
// (percent), network jitter (milliseconds), memory usage (percent).
package simulate

import (
	"context"
	"math/rand"
	"os"
)

// Profile describes one gaussian regime, per feature.
type Profile struct {
	Mean   []float64
	Stddev []float64
}

// Healthy is the baseline regime of a quiet system.
var Healthy = Profile{
	Mean:   []float64{15, 5, 20},
	Stddev: []float64{0.5, 0.2, 0.5},
}

// Degraded is the regime under load spike, jitter chaos and a leak.
var Degraded = Profile{
	Mean:   []float64{85, 120, 60},
	Stddev: []float64{10, 30, 5},
}

// FeatureNames returns the column names of generated vectors.
func FeatureNames() []string {
	return []string{"cpu", "jitter", "memory"}
}

// Generator produces metric vectors from the healthy regime, switching to
// the degraded regime whenever the injected trigger reports true. It never
// returns io.EOF: a simulated stream is live.
type Generator struct {
	rng      *rand.Rand
	healthy  Profile
	degraded Profile
	trigger  func() bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed seeds the random source for reproducible streams.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithTrigger sets the predicate that switches to the degraded regime.
// The default never triggers.
func WithTrigger(trigger func() bool) Option {
	return func(g *Generator) { g.trigger = trigger }
}

// WithProfiles overrides the healthy and degraded regimes.
func WithProfiles(healthy, degraded Profile) Option {
	return func(g *Generator) {
		g.healthy = healthy
		g.degraded = degraded
	}
}

// NewGenerator creates a Generator with the default regimes.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:      rand.New(rand.NewSource(42)),
		healthy:  Healthy,
		degraded: Degraded,
		trigger:  func() bool { return false },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sample draws n baseline vectors from the healthy regime, ignoring the
// trigger. Use it to build training data.
func (g *Generator) Sample(n int) [][]float64 {
	data := make([][]float64, n)
	for i := range data {
		data[i] = g.draw(g.healthy)
	}
	return data
}

// Next returns one vector from the current regime.
func (g *Generator) Next(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile := g.healthy
	if g.trigger() {
		profile = g.degraded
	}
	return g.draw(profile), nil
}

func (g *Generator) draw(p Profile) []float64 {
	v := make([]float64, len(p.Mean))
	for i := range v {
		v[i] = p.Mean[i] + g.rng.NormFloat64()*p.Stddev[i]
	}
	return v
}

// FileTrigger reports true while path exists. It lets an operator flip a
// simulated stream into the degraded regime by touching a file.
func FileTrigger(path string) func() bool {
	return func() bool {
		_, err := os.Stat(path)
		return err == nil
	}
}
