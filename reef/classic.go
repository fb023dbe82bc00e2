package reef

import (
	"context"
	"math"
	"slices"
)

// Phase names reported to a PhaseHook.
const (
	PhaseRebuild     = "rebuild"
	PhaseSpawning    = "spawning"
	PhaseBrooding    = "brooding"
	PhaseProduce     = "produce"
	PhaseEvaluate    = "evaluate"
	PhaseSettle      = "settle"
	PhaseBudding     = "budding"
	PhaseDepredation = "depredation"
)

// PhaseHook receives generation timing boundaries.
type PhaseHook interface {
	StartTick()
	StartPhase(phase string)
	EndTick()
}

type noopHook struct{}

func (noopHook) StartTick()        {}
func (noopHook) StartPhase(string) {}
func (noopHook) EndTick()          {}

// Strategy runs one generation of a reproduction variant on one reef.
type Strategy[G Gene] interface {
	Generation(ctx context.Context, pop *Population[G]) GenerationReport
}

// GenerationReport summarizes one generation of one subpopulation.
type GenerationReport struct {
	Generation    int
	Subpopulation int

	Spawning int // classic broadcast spawning larvae
	Brooding int // classic brooding larvae
	Budding  int // classic budding larvae
	Larvae   int // all larvae produced
	Settled  int // larvae that joined the reef
	Failed   int // evaluations that returned an error

	Depredated int
	Occupied   int
	Free       int
	Fitness    []float64 // cached fitness of settled corals after the generation

	Substrates *SubstrateReport // adaptive variant only
}

// engine holds what both reproduction variants share.
type engine[G Gene] struct {
	index  int // subpopulation
	params Params
	ops    Operators[G]
	rng    Random
	eval   *batchEvaluator[G]
	hook   PhaseHook
}

func (e *engine[G]) settleAll(pop *Population[G], larvae []*Coral[G]) int {
	settled := 0
	for _, l := range larvae {
		if pop.Settle(l, e.params.Attempts, e.rng) {
			settled++
		}
	}
	return settled
}

func (e *engine[G]) finish(pop *Population[G], r *GenerationReport) {
	e.hook.StartPhase(PhaseDepredation)
	r.Subpopulation = e.index
	r.Depredated = pop.Depredate(e.params.Depredation, e.params.DepredationP, e.rng)
	r.Occupied = pop.Occupied()
	r.Free = len(pop.free)
	r.Fitness = make([]float64, 0, r.Occupied)
	for _, g := range pop.SettledPositions() {
		r.Fitness = append(r.Fitness, pop.cache[g])
	}
}

// Classic splits the settled corals into a sexual broadcast spawning
// phase and an asexual brooding phase, then buds the best corals and
// depredates.
type Classic[G Gene] struct {
	engine[G]
}

// classicCounts returns the spawning and brooding larva counts for numC
// settled corals. Spawning pairs corals, so its count is made even.
func classicCounts(numC int, fb float64) (numESL, numISL int) {
	numESL = int(math.Ceil(float64(numC) * fb))
	if numESL%2 == 1 {
		numESL--
	}
	numISL = int(math.Ceil(float64(numC) * (1 - fb)))
	return numESL, numISL
}

func (c *Classic[G]) crossover() func(a, b []G, rng Random) {
	if c.params.Crossover == CrossoverSBX {
		return c.ops.SBX
	}
	return c.ops.BLX
}

// Generation implements Strategy.
func (c *Classic[G]) Generation(ctx context.Context, pop *Population[G]) GenerationReport {
	var r GenerationReport

	c.hook.StartPhase(PhaseRebuild)
	pop.BuildFitnessCache()
	numESL, numISL := classicCounts(pop.Occupied(), c.params.Broadcast)
	settled := pop.SettledPositions()

	c.hook.StartPhase(PhaseSpawning)
	larvae := c.spawn(pop, settled, numESL)
	r.Spawning = len(larvae)

	c.hook.StartPhase(PhaseBrooding)
	larvae = append(larvae, c.brood(pop, settled, numISL)...)
	r.Brooding = len(larvae) - r.Spawning

	c.hook.StartPhase(PhaseEvaluate)
	r.Failed = c.eval.evaluate(ctx, larvae)

	c.hook.StartPhase(PhaseSettle)
	r.Settled = c.settleAll(pop, larvae)

	c.hook.StartPhase(PhaseBudding)
	buds := c.bud(pop)
	r.Budding = len(buds)
	r.Failed += c.eval.evaluate(ctx, buds)
	r.Settled += c.settleAll(pop, buds)

	r.Larvae = r.Spawning + r.Brooding + r.Budding
	c.finish(pop, &r)
	return r
}

// spawn pairs numESL random settled corals and crosses clones of each pair.
func (c *Classic[G]) spawn(pop *Population[G], settled []int, numESL int) []*Coral[G] {
	perm := slices.Clone(settled)
	shuffle(perm, c.rng)
	half := numESL / 2
	a := slices.Clone(perm[:half])
	b := slices.Clone(perm[half:numESL])
	shuffle(a, c.rng)
	shuffle(b, c.rng)

	cross := c.crossover()
	larvae := make([]*Coral[G], 0, numESL)
	for i := range a {
		x := pop.Occupant(a[i]).Clone()
		y := pop.Occupant(b[i]).Clone()
		cross(x.Genome, y.Genome, c.rng)
		larvae = append(larvae, x, y)
	}
	return larvae
}

// brood mutates clones of numISL random settled corals.
func (c *Classic[G]) brood(pop *Population[G], settled []int, numISL int) []*Coral[G] {
	perm := slices.Clone(settled)
	shuffle(perm, c.rng)
	larvae := make([]*Coral[G], 0, numISL)
	for _, g := range perm[:numISL] {
		l := pop.Occupant(g).Clone()
		c.ops.Brood(l.Genome, c.rng)
		larvae = append(larvae, l)
	}
	return larvae
}

// bud clones the ceil(numC*Fa) fittest settled corals unchanged.
func (c *Classic[G]) bud(pop *Population[G]) []*Coral[G] {
	numASL := int(math.Ceil(float64(pop.Occupied()) * c.params.Budding))
	ranked := pop.RankByFitness()
	if numASL > len(ranked) {
		numASL = len(ranked)
	}
	larvae := make([]*Coral[G], 0, numASL)
	for i := 0; i < numASL; i++ {
		g := ranked[len(ranked)-1-i]
		larvae = append(larvae, pop.Occupant(g).Clone())
	}
	return larvae
}
