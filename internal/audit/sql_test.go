package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

func TestSQLSinkMigratesAndInserts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "decisions.db")

	sink, err := NewSQLSink("sqlite://"+dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLSink: %v", err)
	}
	defer sink.Close()

	rec := types.DecisionRecord{
		Timestamp:    time.Now().UTC(),
		Kind:         types.DecisionBatchRelease,
		Direction:    types.RouterToGCS,
		MessageType:  "HEARTBEAT",
		RuleName:     "batch-rule",
		BatchID:      types.NewBatchID(),
		ActivationID: "",
		Detail:       "quorum",
	}
	sink.Record(rec)

	var count int
	if err := sink.db.Get(&count, "SELECT COUNT(*) FROM decisions WHERE rule_name = ?", "batch-rule"); err != nil {
		t.Fatalf("query inserted row: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 inserted row, got %d", count)
	}
}

func TestSQLSinkReopenDoesNotReapplyMigrations(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "decisions.db")

	sink1, err := NewSQLSink("sqlite://"+dbPath, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	sink1.Close()

	sink2, err := NewSQLSink("sqlite://"+dbPath, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer sink2.Close()

	var count int
	if err := sink2.db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 recorded migration, got %d", count)
	}
}
