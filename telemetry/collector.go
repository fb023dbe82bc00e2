package telemetry

import "gonum.org/v1/gonum/stat"

// Collector accumulates market events within a step and produces StepStats.
type Collector struct {
	history []StepStats

	// Event counters for the current step
	adoptions     int
	repurchases   int
	exposures     int
	conversations int
}

// NewCollector creates a collector with room for steps rows.
func NewCollector(steps int) *Collector {
	if steps < 0 {
		steps = 0
	}
	return &Collector{history: make([]StepStats, 0, steps)}
}

// RecordAdoptions records first purchases.
func (c *Collector) RecordAdoptions(n int) {
	c.adoptions += n
}

// RecordRepurchases records repeat purchases.
func (c *Collector) RecordRepurchases(n int) {
	c.repurchases += n
}

// RecordExposures records advertising exposures.
func (c *Collector) RecordExposures(n int) {
	c.exposures += n
}

// RecordConversations records word-of-mouth conversations.
func (c *Collector) RecordConversations(n int) {
	c.conversations += n
}

// Flush produces the StepStats for step and resets the counters.
// awareness and perception hold one value per customer.
func (c *Collector) Flush(step, adopters int, awareness, perception []float64) StepStats {
	stats := StepStats{
		Step:          step,
		Sales:         c.adoptions + c.repurchases,
		Adoptions:     c.adoptions,
		Repurchases:   c.repurchases,
		Exposures:     c.exposures,
		Conversations: c.conversations,
		Adopters:      adopters,
	}
	if n := len(awareness); n > 0 {
		stats.AdoptedShare = float64(adopters) / float64(n)
		stats.AwarenessMean = stat.Mean(awareness, nil)
	}
	if len(perception) > 0 {
		stats.PerceptionMean = stat.Mean(perception, nil)
	}

	c.history = append(c.history, stats)

	// Reset for next step
	c.adoptions = 0
	c.repurchases = 0
	c.exposures = 0
	c.conversations = 0

	return stats
}

// History returns every flushed step in order.
func (c *Collector) History() []StepStats {
	return c.history
}
