package market

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/reefcal/components"
)

// spawnCustomers creates one customer entity per network node.
func (m *Market) spawnCustomers() {
	cfg := m.cfg
	m.entities = make([]ecs.Entity, 0, m.network.Len())

	for i := 0; i < m.network.Len(); i++ {
		cust := components.Customer{Node: int64(i), Segment: m.drawSegment()}
		aw := components.Awareness{Level: cfg.Market.InitialAwareness}
		per := components.Perception{Value: cfg.Market.InitialPerception}
		ad := components.Adoption{Step: components.NotAdopted}

		m.entities = append(m.entities, m.customerMapper.NewEntity(&cust, &aw, &per, &ad))
	}
}

// drawSegment picks a segment index by share.
func (m *Market) drawSegment() components.Segment {
	cdf := m.cfg.Derived.SegmentCDF
	if len(cdf) == 0 {
		return 0
	}
	u := m.rng.Float64()
	idx := sort.Search(len(cdf), func(i int) bool { return u < cdf[i] })
	if idx >= len(cdf) {
		idx = len(cdf) - 1
	}
	return components.Segment(idx)
}
