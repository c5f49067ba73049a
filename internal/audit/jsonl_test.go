package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

func TestJSONLSinkWritesToTodaysFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir)
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}

	now := time.Now().UTC()
	sink.Record(types.DecisionRecord{
		Timestamp:   now,
		Kind:        types.DecisionRuleMatch,
		Direction:   types.GCSToRouter,
		MessageType: "HEARTBEAT",
		RuleName:    "r1",
	})

	path := filepath.Join(dir, now.Format("2006-01-02")+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected daily file to exist: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected at least one line written")
	}
	var rec types.DecisionRecord
	if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if rec.RuleName != "r1" || rec.Kind != types.DecisionRuleMatch {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestJSONLSinkAppendsMultipleRecords(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir)
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		sink.Record(types.DecisionRecord{Timestamp: now, Kind: types.DecisionParseFailure})
	}

	path := filepath.Join(dir, now.Format("2006-01-02")+".jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Errorf("expected 3 lines, got %d", lines)
	}
}

func TestJSONLSinkFillsZeroTimestamp(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir)
	if err != nil {
		t.Fatalf("NewJSONLSink: %v", err)
	}

	sink.Record(types.DecisionRecord{Kind: types.DecisionAckEmission})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one daily file, got %d", len(entries))
	}
}
