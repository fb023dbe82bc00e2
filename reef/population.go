package reef

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Empty marks a grid slot with no occupant.
const Empty = -1

// Population is one reef: a fixed storage array of corals, the grid that
// maps slots to storage indices, a fitness cache per slot and the sorted
// list of free storage indices. All methods mutate in place and must be
// called from a single goroutine.
type Population[G Gene] struct {
	ops     Operators[G]
	storage []Coral[G]
	grid    []int
	cache   []float64
	free    []int
}

// NewPopulation allocates an empty reef of size n. Call Initialize before use.
func NewPopulation[G Gene](n int, ops Operators[G]) *Population[G] {
	p := &Population[G]{
		ops:     ops,
		storage: make([]Coral[G], n),
		grid:    make([]int, n),
		cache:   make([]float64, n),
		free:    make([]int, 0, n),
	}
	for g := range p.grid {
		p.grid[g] = Empty
	}
	for i := range p.storage {
		p.storage[i].Position = NoPosition
	}
	return p
}

// Size returns N.
func (p *Population[G]) Size() int { return len(p.grid) }

// Occupied returns the number of settled corals.
func (p *Population[G]) Occupied() int { return len(p.grid) - len(p.free) }

// Free returns a copy of the free list.
func (p *Population[G]) Free() []int { return slices.Clone(p.free) }

// Operators returns the genome operator set of the reef.
func (p *Population[G]) Operators() Operators[G] { return p.ops }

// At returns the storage slot i.
func (p *Population[G]) At(i int) *Coral[G] { return &p.storage[i] }

// Occupant returns the coral on grid slot g, or nil when g is empty.
func (p *Population[G]) Occupant(g int) *Coral[G] {
	idx := p.grid[g]
	if idx == Empty {
		return nil
	}
	return &p.storage[idx]
}

// CachedFitness returns the cache entry of grid slot g.
func (p *Population[G]) CachedFitness(g int) float64 { return p.cache[g] }

// Initialize fills round(N*r0) storage slots with random genomes on random
// empty grid slots and frees the rest. Placement redraws until it hits an
// empty slot; r0 <= 1 guarantees one exists.
func (p *Population[G]) Initialize(r0 float64, rng Random) {
	n := len(p.grid)
	stop := int(math.Round(float64(n) * r0))
	if stop > n {
		stop = n
	}

	p.free = p.free[:0]
	for g := range p.grid {
		p.grid[g] = Empty
		p.cache[g] = 0
	}

	for i := 0; i < stop; i++ {
		p.storage[i] = Coral[G]{Genome: p.ops.Random(rng)}
		for {
			g := rng.Intn(n)
			if p.grid[g] == Empty {
				p.bind(i, g)
				break
			}
		}
	}
	for i := stop; i < n; i++ {
		p.storage[i] = Coral[G]{Position: NoPosition}
		p.free = append(p.free, i)
	}
}

func (p *Population[G]) bind(idx, g int) {
	p.storage[idx].Position = g
	p.grid[g] = idx
	p.cache[g] = p.storage[idx].Fitness
}

// BuildFitnessCache rewrites every cache entry from the grid.
func (p *Population[G]) BuildFitnessCache() {
	for g, idx := range p.grid {
		if idx == Empty {
			p.cache[g] = 0
			continue
		}
		p.cache[g] = p.storage[idx].Fitness
	}
}

// SettledPositions returns the occupied grid indices in ascending order.
func (p *Population[G]) SettledPositions() []int {
	out := make([]int, 0, p.Occupied())
	for g, idx := range p.grid {
		if idx != Empty {
			out = append(out, g)
		}
	}
	return out
}

// RankByFitness returns the occupied grid indices sorted ascending by
// cached fitness; ties keep grid index order.
func (p *Population[G]) RankByFitness() []int {
	ranked := p.SettledPositions()
	sort.SliceStable(ranked, func(i, j int) bool {
		return p.cache[ranked[i]] < p.cache[ranked[j]]
	})
	return ranked
}

// Settle tries up to k random grid slots for larva. An empty slot takes
// the highest free storage index; an occupied slot is taken over in place
// when its cached fitness is strictly lower. A larva that finds neither is
// dropped and Settle reports false.
func (p *Population[G]) Settle(larva *Coral[G], k int, rng Random) bool {
	n := len(p.grid)
	for attempt := 0; attempt < k; attempt++ {
		g := rng.Intn(n)
		idx := p.grid[g]
		switch {
		case idx == Empty:
			last := len(p.free) - 1
			idx = p.free[last]
			p.free = p.free[:last]
			p.place(idx, g, larva)
			return true
		case p.cache[g] < larva.Fitness:
			p.place(idx, g, larva)
			return true
		}
	}
	return false
}

func (p *Population[G]) place(idx, g int, larva *Coral[G]) {
	p.storage[idx] = Coral[G]{
		Genome:    larva.Genome,
		Fitness:   larva.Fitness,
		Evaluated: larva.Evaluated,
	}
	p.bind(idx, g)
}

// Depredate draws once against pd; on success it removes the ceil(fd*N)
// lowest ranked settled corals (or all of them when fewer are settled) and
// returns how many were removed.
func (p *Population[G]) Depredate(fd, pd float64, rng Random) int {
	if rng.Float64() >= pd {
		return 0
	}
	numDep := int(math.Ceil(fd * float64(len(p.grid))))
	ranked := p.RankByFitness()
	if numDep > len(ranked) {
		numDep = len(ranked)
	}
	for _, g := range ranked[:numDep] {
		p.evict(g)
	}
	return numDep
}

func (p *Population[G]) evict(g int) {
	idx := p.grid[g]
	p.storage[idx].Position = NoPosition
	p.grid[g] = Empty
	p.cache[g] = 0
	at, _ := slices.BinarySearch(p.free, idx)
	p.free = slices.Insert(p.free, at, idx)
}

// Best returns the grid index of the fittest settled coral, or Empty.
func (p *Population[G]) Best() int {
	best := Empty
	for g, idx := range p.grid {
		if idx == Empty {
			continue
		}
		if best == Empty || p.cache[g] > p.cache[best] {
			best = g
		}
	}
	return best
}

// Check verifies the reef invariants and returns the first violation.
func (p *Population[G]) Check() error {
	n := len(p.grid)
	if p.Occupied()+len(p.free) != n {
		return fmt.Errorf("occupied %d + free %d != size %d", p.Occupied(), len(p.free), n)
	}

	inFree := make(map[int]bool, len(p.free))
	for i, idx := range p.free {
		if inFree[idx] {
			return fmt.Errorf("free list holds %d twice", idx)
		}
		if i > 0 && p.free[i-1] > idx {
			return fmt.Errorf("free list not sorted at %d", i)
		}
		if p.storage[idx].Position != NoPosition {
			return fmt.Errorf("free storage %d is settled at %d", idx, p.storage[idx].Position)
		}
		inFree[idx] = true
	}

	occupied := 0
	for g, idx := range p.grid {
		if idx == Empty {
			if p.cache[g] != 0 {
				return fmt.Errorf("empty slot %d has cached fitness %g", g, p.cache[g])
			}
			continue
		}
		occupied++
		if inFree[idx] {
			return fmt.Errorf("slot %d references free storage %d", g, idx)
		}
		c := &p.storage[idx]
		if c.Position != g {
			return fmt.Errorf("storage %d on slot %d records position %d", idx, g, c.Position)
		}
		if p.cache[g] != c.Fitness {
			return fmt.Errorf("slot %d cache %g != fitness %g", g, p.cache[g], c.Fitness)
		}
	}
	if occupied != n-len(p.free) {
		return fmt.Errorf("grid holds %d corals, free list implies %d", occupied, n-len(p.free))
	}
	return nil
}

// Snapshot is a comparable copy of the reef state.
type Snapshot[G Gene] struct {
	Grid    []int
	Cache   []float64
	Free    []int
	Genomes [][]G
	Fitness []float64
}

// Snapshot copies the reef state.
func (p *Population[G]) Snapshot() Snapshot[G] {
	s := Snapshot[G]{
		Grid:    slices.Clone(p.grid),
		Cache:   slices.Clone(p.cache),
		Free:    slices.Clone(p.free),
		Genomes: make([][]G, len(p.storage)),
		Fitness: make([]float64, len(p.storage)),
	}
	for i := range p.storage {
		s.Genomes[i] = slices.Clone(p.storage[i].Genome)
		s.Fitness[i] = p.storage[i].Fitness
	}
	return s
}
