package audit

import (
	"testing"

	"github.com/k4hvh/madbridge/internal/types"
)

type recordingSink struct {
	records []types.DecisionRecord
}

func (s *recordingSink) Record(rec types.DecisionRecord) {
	s.records = append(s.records, rec)
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiSink(a, b)

	rec := types.DecisionRecord{Kind: types.DecisionRuleMatch, RuleName: "r"}
	m.Record(rec)

	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("expected both sinks to receive the record, got %d and %d", len(a.records), len(b.records))
	}
}

func TestMultiSinkIgnoresNilSinks(t *testing.T) {
	a := &recordingSink{}
	m := NewMultiSink(a, nil)

	m.Record(types.DecisionRecord{Kind: types.DecisionAckEmission})

	if len(a.records) != 1 {
		t.Fatalf("expected the non-nil sink to still receive the record, got %d", len(a.records))
	}
}
