package app

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/mapletrade/internal/common"
	"github.com/bobmcallan/mapletrade/internal/models"
)

func TestCheckSchemaVersion_FirstRun(t *testing.T) {
	mgr := newTestStorageManager(t)
	logger := common.NewSilentLogger()
	ctx := context.Background()

	// No stored version yet, first run initializes
	if !checkSchemaVersion(ctx, mgr, logger) {
		t.Error("expected rebuild on first run (no stored version)")
	}

	stored, err := mgr.InternalStore().GetSystemKV(ctx, schemaVersionKey)
	if err != nil {
		t.Fatalf("schema version not stored: %v", err)
	}
	if stored != common.SchemaVersion {
		t.Errorf("stored version = %q, want %q", stored, common.SchemaVersion)
	}

	// Second call matches and does nothing
	if checkSchemaVersion(ctx, mgr, logger) {
		t.Error("expected no rebuild when stored version matches")
	}
}

func TestCheckSchemaVersion_MismatchPurgesDerivedData(t *testing.T) {
	mgr := newTestStorageManager(t)
	logger := common.NewSilentLogger()
	ctx := context.Background()

	// Seed a stale version and some derived data
	if err := mgr.InternalStore().SetSystemKV(ctx, schemaVersionKey, "0"); err != nil {
		t.Fatalf("SetSystemKV failed: %v", err)
	}
	report := &models.UserRecord{
		UserID:   "alice",
		Subject:  "report",
		Key:      "rpt-1",
		Value:    `{"id":"rpt-1"}`,
		DateTime: time.Now(),
	}
	if err := mgr.UserDataStore().Put(ctx, report); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	portfolio := &models.UserRecord{
		UserID:   "alice",
		Subject:  "portfolio",
		Key:      "pf-1",
		Value:    `{"id":"pf-1"}`,
		DateTime: time.Now(),
	}
	if err := mgr.UserDataStore().Put(ctx, portfolio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !checkSchemaVersion(ctx, mgr, logger) {
		t.Error("expected rebuild on version mismatch")
	}

	// Derived data gone, portfolio survives
	if _, err := mgr.UserDataStore().Get(ctx, "alice", "report", "rpt-1"); err == nil {
		t.Error("expected report to be purged on schema mismatch")
	}
	if _, err := mgr.UserDataStore().Get(ctx, "alice", "portfolio", "pf-1"); err != nil {
		t.Errorf("portfolio should survive schema rebuild: %v", err)
	}

	stored, _ := mgr.InternalStore().GetSystemKV(ctx, schemaVersionKey)
	if stored != common.SchemaVersion {
		t.Errorf("stored version = %q, want %q", stored, common.SchemaVersion)
	}
}
