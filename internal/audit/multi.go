package audit

import "github.com/k4hvh/madbridge/internal/types"

// Sink is the narrow contract every audit backend satisfies; it matches
// internal/pipeline.AuditSink structurally so a Driver can be handed any
// combination of sinks without this package importing pipeline.
type Sink interface {
	Record(types.DecisionRecord)
}

// MultiSink fans one record out to every configured sink, letting a
// deployment run the JSONL debugging copy and the SQL source of truth
// side by side.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a Sink that forwards to every non-nil sink in sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

// Record forwards rec to every wrapped sink.
func (m *MultiSink) Record(rec types.DecisionRecord) {
	for _, s := range m.sinks {
		s.Record(rec)
	}
}
