// Package components defines ECS components for the market simulation.
package components

// Segment indexes the configured customer segments.
type Segment uint8

// NotAdopted is Adoption.Step before the first purchase.
const NotAdopted = -1

// Customer ties an entity to its social network node and segment.
type Customer struct {
	Node    int64 // graph node ID, equal to the customer index
	Segment Segment
}

// Awareness is brand awareness in [0, 1].
type Awareness struct {
	Level float64
}

// Perception is brand perception in [-1, 1].
type Perception struct {
	Value float64
}

// Adoption tracks a customer's purchases.
type Adoption struct {
	Adopted   bool
	Step      int32 // step of the first purchase, or NotAdopted
	Purchases int32
}
