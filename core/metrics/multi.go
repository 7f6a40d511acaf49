package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordShipments forwards shipment events when supported by the sink.
func (m *MultiSink) RecordShipments(evs []ShipmentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ShipmentRecorder); ok {
			if err := rec.RecordShipments(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordIncumbent forwards progress events when supported by the sink.
func (m *MultiSink) RecordIncumbent(ev IncumbentEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(IncumbentRecorder); ok {
			if err := rec.RecordIncumbent(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFailure forwards failures when supported by the sink.
func (m *MultiSink) RecordFailure(ev FailureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FailureRecorder); ok {
			if err := rec.RecordFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
