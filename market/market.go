// Package market runs the agent-based market diffusion simulation that the
// calibrator fits: customers on a small-world network, an advertising
// schedule, word of mouth and purchases.
package market

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/reefcal/components"
	"github.com/pthm-cable/reefcal/config"
	"github.com/pthm-cable/reefcal/systems"
	"github.com/pthm-cable/reefcal/telemetry"
)

// Market is one simulation run. It owns its world and random source, so
// several markets can run concurrently.
type Market struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config
	seed  int64

	customerMapper *ecs.Map4[
		components.Customer,
		components.Awareness,
		components.Perception,
		components.Adoption,
	]
	customerFilter *ecs.Filter3[
		components.Awareness,
		components.Perception,
		components.Adoption,
	]

	network  *systems.Network
	entities []ecs.Entity // indexed by network node

	touchpoints *systems.TouchpointSystem
	wordOfMouth *systems.WordOfMouthSystem
	adoption    *systems.AdoptionSystem

	collector *telemetry.Collector
	step      int

	// Scratch buffers for per-step sampling
	awareness  []float64
	perception []float64
}

// New builds a market from cfg, which must have been produced by
// config.Load so its derived values are set. cfg is read, never written.
func New(cfg *config.Config, seed int64) *Market {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(seed))

	m := &Market{
		world: world,
		rng:   rng,
		cfg:   cfg,
		seed:  seed,
		customerMapper: ecs.NewMap4[
			components.Customer,
			components.Awareness,
			components.Perception,
			components.Adoption,
		](world),
		customerFilter: ecs.NewFilter3[
			components.Awareness,
			components.Perception,
			components.Adoption,
		](world),
		collector:  telemetry.NewCollector(cfg.Market.Steps),
		awareness:  make([]float64, 0, cfg.Market.Customers),
		perception: make([]float64, 0, cfg.Market.Customers),
	}

	m.network = systems.BuildNetwork(cfg.Market.Customers, cfg.Network.Degree, cfg.Network.Rewire, rng)
	m.spawnCustomers()

	m.touchpoints = systems.NewTouchpointSystem(world, cfg.Touchpoints, cfg.Segments, cfg.Market.AwarenessDecay)
	m.wordOfMouth = systems.NewWordOfMouthSystem(world, m.network, m.entities, cfg.Network)
	m.adoption = systems.NewAdoptionSystem(world, m.network, cfg.Market, cfg.Segments)

	return m
}

// Step advances the market one period: ads, word of mouth, then purchases.
func (m *Market) Step() telemetry.StepStats {
	m.collector.RecordExposures(m.touchpoints.Update(m.step, m.rng))
	m.collector.RecordConversations(m.wordOfMouth.Update(m.rng))

	adoptions, repurchases := m.adoption.Update(m.step, m.rng)
	m.collector.RecordAdoptions(adoptions)
	m.collector.RecordRepurchases(repurchases)

	stats := m.flushTelemetry()
	m.step++
	return stats
}

// Run steps until the configured horizon and returns every step's stats.
func (m *Market) Run() []telemetry.StepStats {
	for m.step < m.cfg.Market.Steps {
		m.Step()
	}
	return m.collector.History()
}

// Run simulates one market from cfg with the given seed.
func Run(cfg *config.Config, seed int64) []telemetry.StepStats {
	return New(cfg, seed).Run()
}

// Network returns the customers' social graph.
func (m *Market) Network() *systems.Network { return m.network }

// Seed returns the seed the market was built with.
func (m *Market) Seed() int64 { return m.seed }

// CurrentStep returns the number of completed steps.
func (m *Market) CurrentStep() int { return m.step }

// LogSummary logs the network shape and the last step.
func (m *Market) LogSummary(logger *slog.Logger) {
	h := m.collector.History()
	attrs := []any{
		"seed", m.seed,
		"customers", m.network.Len(),
		"mean_degree", m.network.MeanDegree(),
		"components", m.network.Components(),
		"steps", m.step,
	}
	if len(h) > 0 {
		attrs = append(attrs, "last", h[len(h)-1])
	}
	logger.Info("market", attrs...)
}
