package reef

import (
	"context"
	"log/slog"
)

// SubstrateReport is the per-generation row of the adaptive variant.
type SubstrateReport struct {
	Generation    int `csv:"-"`
	Subpopulation int `csv:"-"`

	Best int `csv:"Best"` // substrate of the best new larva, -1 when none

	S0 int `csv:"S0"`
	S1 int `csv:"S1"`
	S2 int `csv:"S2"`
	S3 int `csv:"S3"`

	P0 float64 `csv:"P0"`
	P1 float64 `csv:"P1"`
	P2 float64 `csv:"P2"`
	P3 float64 `csv:"P3"`
}

// Settled returns the per-substrate settlement counts.
func (r SubstrateReport) Settled() [NumSubstrates]int {
	return [NumSubstrates]int{r.S0, r.S1, r.S2, r.S3}
}

// Ratios returns the cumulative per-substrate win ratios.
func (r SubstrateReport) Ratios() [NumSubstrates]float64 {
	return [NumSubstrates]float64{r.P0, r.P1, r.P2, r.P3}
}

// LogValue implements slog.LogValuer.
func (r SubstrateReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("best", r.Best),
		slog.Int("s0", r.S0),
		slog.Int("s1", r.S1),
		slog.Int("s2", r.S2),
		slog.Int("s3", r.S3),
		slog.Float64("p0", r.P0),
		slog.Float64("p1", r.P1),
		slog.Float64("p2", r.P2),
		slog.Float64("p3", r.P3),
	)
}

// Substrate maps a grid position to its operator region: the reef is cut
// into NumSubstrates equal sections and the remainder joins the last one.
func Substrate(position, size int) int {
	section := size / NumSubstrates
	if section < 1 {
		return 0
	}
	return clampInt(position/section, 0, NumSubstrates-1)
}

// Adaptive gives every settled coral one larva, produced by the operator
// of the substrate the coral sits on. It keeps running win counts per
// substrate for the lifetime of the instance.
type Adaptive[G Gene] struct {
	engine[G]
	table  [NumSubstrates]Operator[G]
	wins   [NumSubstrates]int
	logger *slog.Logger
}

// Wins returns the cumulative per-substrate win counters.
func (a *Adaptive[G]) Wins() [NumSubstrates]int { return a.wins }

// offspring holds one coral's children before selection.
type offspring[G Gene] struct {
	children  []*Coral[G]
	substrate int
}

// larva returns the better child; the first wins ties.
func (b offspring[G]) larva() *Coral[G] {
	if len(b.children) == 2 && b.children[1].Fitness > b.children[0].Fitness {
		return b.children[1]
	}
	return b.children[0]
}

// Generation implements Strategy.
func (a *Adaptive[G]) Generation(ctx context.Context, pop *Population[G]) GenerationReport {
	var r GenerationReport

	a.hook.StartPhase(PhaseRebuild)
	pop.BuildFitnessCache()

	a.hook.StartPhase(PhaseProduce)
	broods := a.produce(pop)

	a.hook.StartPhase(PhaseEvaluate)
	var all []*Coral[G]
	for _, b := range broods {
		all = append(all, b.children...)
	}
	r.Failed = a.eval.evaluate(ctx, all)

	larvae := make([]*Coral[G], len(broods))
	winner := -1
	for i, b := range broods {
		larvae[i] = b.larva()
		if winner == -1 || larvae[i].Fitness > larvae[winner].Fitness {
			winner = i
		}
	}

	report := SubstrateReport{Subpopulation: a.index, Best: -1}
	if winner >= 0 {
		report.Best = broods[winner].substrate
		a.wins[report.Best]++
	}

	a.hook.StartPhase(PhaseSettle)
	var settled [NumSubstrates]int
	for i, l := range larvae {
		if pop.Settle(l, a.params.Attempts, a.rng) {
			settled[broods[i].substrate]++
			r.Settled++
		}
	}
	r.Larvae = len(larvae)

	report.S0, report.S1, report.S2, report.S3 = settled[0], settled[1], settled[2], settled[3]
	ratios := a.ratios()
	report.P0, report.P1, report.P2, report.P3 = ratios[0], ratios[1], ratios[2], ratios[3]
	r.Substrates = &report
	a.logger.Debug("substrates", "subpopulation", a.index, "report", report)

	a.finish(pop, &r)
	return r
}

// produce walks storage in index order and creates one offspring per settled coral.
func (a *Adaptive[G]) produce(pop *Population[G]) []offspring[G] {
	n := pop.Size()
	occupied := pop.Occupied()
	broods := make([]offspring[G], 0, occupied)

	for idx := range pop.storage {
		c := &pop.storage[idx]
		if !c.Settled() {
			continue
		}
		sub := Substrate(c.Position, n)
		op := a.table[sub]
		u := a.rng.Float64()

		switch {
		case a.params.Broadcast <= u:
			l := c.Clone()
			a.ops.Mutate(l.Genome, a.rng)
			broods = append(broods, offspring[G]{children: []*Coral[G]{l}, substrate: sub})
		case op.Crossover != nil && occupied > 1:
			x, y := c.Clone(), a.partner(pop, idx).Clone()
			op.Crossover(x.Genome, y.Genome, a.rng)
			broods = append(broods, offspring[G]{children: []*Coral[G]{x, y}, substrate: sub})
		case op.Crossover != nil:
			// A lone coral has no partner; fall back to the default mutation.
			l := c.Clone()
			a.ops.Mutate(l.Genome, a.rng)
			broods = append(broods, offspring[G]{children: []*Coral[G]{l}, substrate: sub})
		default:
			l := c.Clone()
			op.Mutate(l.Genome, a.rng)
			broods = append(broods, offspring[G]{children: []*Coral[G]{l}, substrate: sub})
		}
	}
	return broods
}

// partner redraws storage indices until it finds a settled coral other than self.
func (a *Adaptive[G]) partner(pop *Population[G], self int) *Coral[G] {
	n := len(pop.storage)
	for {
		j := a.rng.Intn(n)
		if j != self && pop.storage[j].Settled() {
			return &pop.storage[j]
		}
	}
}

func (a *Adaptive[G]) ratios() [NumSubstrates]float64 {
	var out [NumSubstrates]float64
	total := 0
	for _, w := range a.wins {
		total += w
	}
	if total == 0 {
		return out
	}
	for s, w := range a.wins {
		out[s] = float64(w) / float64(total)
	}
	return out
}
