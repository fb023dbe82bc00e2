package systems

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/reefcal/components"
	"github.com/pthm-cable/reefcal/config"
)

// Pressure returns the advertising pressure at step. The schedule repeats
// when it is shorter than the horizon; an empty schedule means no ads.
func Pressure(schedule []float64, step int) float64 {
	if len(schedule) == 0 {
		return 0
	}
	return schedule[step%len(schedule)]
}

// Expose applies one ad exposure: awareness closes the gap to 1 by
// effectiveness, perception moves toward the message by shift.
func Expose(aw *components.Awareness, per *components.Perception, effectiveness, message, shift float64) {
	aw.Level += effectiveness * (1 - aw.Level)
	per.Value += shift * (message - per.Value)
	aw.Level = clamp01(aw.Level)
	per.Value = clampUnit(per.Value)
}

// DecayAwareness fades awareness by the per-step decay fraction.
func DecayAwareness(aw *components.Awareness, decay float64) {
	aw.Level *= 1 - decay
}

// TouchpointSystem exposes customers to the advertising schedule.
type TouchpointSystem struct {
	filter   ecs.Filter3[components.Customer, components.Awareness, components.Perception]
	tp       config.TouchpointsConfig
	segments []config.SegmentConfig
	decay    float64
}

// NewTouchpointSystem creates a touchpoint system.
func NewTouchpointSystem(w *ecs.World, tp config.TouchpointsConfig, segments []config.SegmentConfig, decay float64) *TouchpointSystem {
	return &TouchpointSystem{
		filter:   *ecs.NewFilter3[components.Customer, components.Awareness, components.Perception](w),
		tp:       tp,
		segments: segments,
		decay:    decay,
	}
}

// Update decays awareness and then exposes each customer with probability
// reach * pressure * segment sensitivity. Returns the number of exposures.
func (s *TouchpointSystem) Update(step int, rng *rand.Rand) int {
	pressure := Pressure(s.tp.Schedule, step)
	exposures := 0

	query := s.filter.Query()
	for query.Next() {
		cust, aw, per := query.Get()
		DecayAwareness(aw, s.decay)

		p := s.tp.Reach * pressure * s.segments[cust.Segment].Sensitivity
		if rng.Float64() < p {
			Expose(aw, per, s.tp.AdEffectiveness, s.tp.MessagePerception, s.tp.PerceptionShift)
			exposures++
		}
	}
	return exposures
}
