package market

import "github.com/pthm-cable/reefcal/telemetry"

// flushTelemetry samples the customer state and closes the current step.
func (m *Market) flushTelemetry() telemetry.StepStats {
	m.awareness = m.awareness[:0]
	m.perception = m.perception[:0]
	adopters := 0

	query := m.customerFilter.Query()
	for query.Next() {
		aw, per, adopt := query.Get()
		m.awareness = append(m.awareness, aw.Level)
		m.perception = append(m.perception, per.Value)
		if adopt.Adopted {
			adopters++
		}
	}

	return m.collector.Flush(m.step, adopters, m.awareness, m.perception)
}
