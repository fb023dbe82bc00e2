package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/reefcal/components"
	"github.com/pthm-cable/reefcal/config"
)

// Talk applies one word-of-mouth conversation to the listener.
func Talk(aw *components.Awareness, per *components.Perception, speaker, awarenessGain, pull float64) {
	aw.Level = clamp01(aw.Level + awarenessGain*(1-aw.Level))
	per.Value = clampUnit(per.Value + pull*(speaker-per.Value))
}

// WordOfMouthSystem lets adopters talk to their neighbours.
type WordOfMouthSystem struct {
	filter   ecs.Filter3[components.Customer, components.Perception, components.Adoption]
	awMap    *ecs.Map[components.Awareness]
	perMap   *ecs.Map[components.Perception]
	network  *Network
	entities []ecs.Entity
	cfg      config.NetworkConfig

	speakers []speaker
}

type speaker struct {
	node       int64
	perception float64
}

// NewWordOfMouthSystem creates a word-of-mouth system. entities maps node
// IDs to customer entities.
func NewWordOfMouthSystem(w *ecs.World, nw *Network, entities []ecs.Entity, cfg config.NetworkConfig) *WordOfMouthSystem {
	return &WordOfMouthSystem{
		filter:   *ecs.NewFilter3[components.Customer, components.Perception, components.Adoption](w),
		awMap:    ecs.NewMap[components.Awareness](w),
		perMap:   ecs.NewMap[components.Perception](w),
		network:  nw,
		entities: entities,
		cfg:      cfg,
	}
}

// Update runs one round of conversations. Speakers are the adopters at the
// start of the round, with the perception they held then. Returns the
// number of conversations.
func (s *WordOfMouthSystem) Update(rng *rand.Rand) int {
	s.speakers = s.speakers[:0]
	query := s.filter.Query()
	for query.Next() {
		cust, per, adopt := query.Get()
		if adopt.Adopted {
			s.speakers = append(s.speakers, speaker{node: cust.Node, perception: per.Value})
		}
	}

	talks := 0
	for _, sp := range s.speakers {
		for _, nb := range s.network.Neighbors(sp.node) {
			if rng.Float64() >= s.cfg.WOMProbability {
				continue
			}
			e := s.entities[nb]
			Talk(s.awMap.Get(e), s.perMap.Get(e), sp.perception, s.cfg.WOMAwareness, s.cfg.WOMPerception)
			talks++
		}
	}
	return talks
}

// AdoptionProbability is the per-step chance that an aware non-adopter buys:
// (innovation + imitation*adoptedFraction) * awareness * logistic(weight*perception).
func AdoptionProbability(innovation, imitation, adoptedFraction, awareness, perception, weight float64) float64 {
	p := (innovation + imitation*adoptedFraction) * awareness * logistic(weight*perception)
	return clamp01(p)
}

// AdoptionSystem turns awareness into purchases.
type AdoptionSystem struct {
	filter   ecs.Filter4[components.Customer, components.Awareness, components.Perception, components.Adoption]
	network  *Network
	market   config.MarketConfig
	segments []config.SegmentConfig

	adopted []bool // by node, snapshot at the start of a step
}

// NewAdoptionSystem creates an adoption system.
func NewAdoptionSystem(w *ecs.World, nw *Network, market config.MarketConfig, segments []config.SegmentConfig) *AdoptionSystem {
	return &AdoptionSystem{
		filter:   *ecs.NewFilter4[components.Customer, components.Awareness, components.Perception, components.Adoption](w),
		network:  nw,
		market:   market,
		segments: segments,
		adopted:  make([]bool, nw.Len()),
	}
}

// Update runs one purchase round. Neighbour influence uses the adopters
// from before the round, so the outcome does not depend on query order.
func (s *AdoptionSystem) Update(step int, rng *rand.Rand) (adoptions, repurchases int) {
	query := s.filter.Query()
	for query.Next() {
		cust, _, _, adopt := query.Get()
		s.adopted[cust.Node] = adopt.Adopted
	}

	query = s.filter.Query()
	for query.Next() {
		cust, aw, per, adopt := query.Get()
		if adopt.Adopted {
			if rng.Float64() < s.market.RepurchaseProbability {
				adopt.Purchases++
				repurchases++
			}
			continue
		}

		innovation := s.market.Innovation * s.segments[cust.Segment].Innovativeness
		p := AdoptionProbability(innovation, s.market.Imitation, s.adoptedFraction(cust.Node),
			aw.Level, per.Value, s.market.PerceptionWeight)
		if rng.Float64() < p {
			adopt.Adopted = true
			adopt.Step = int32(step)
			adopt.Purchases = 1
			adoptions++
		}
	}
	return adoptions, repurchases
}

func (s *AdoptionSystem) adoptedFraction(node int64) float64 {
	ns := s.network.Neighbors(node)
	if len(ns) == 0 {
		return 0
	}
	n := 0
	for _, nb := range ns {
		if s.adopted[nb] {
			n++
		}
	}
	return float64(n) / float64(len(ns))
}
