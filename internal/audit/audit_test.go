package audit

import (
	"context"
	"testing"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store/storetest"
)

func TestRecorderPersistsEntries(t *testing.T) {
	mem := storetest.New()
	st := mem.Storage()

	rec := NewRecorder(st.Audit, logger.New(logger.LevelError), 16)
	rec.Start()

	rec.Record("alice", "project_created", "project", "p-1", map[string]string{"name": "Riverside Mall"})
	rec.Record("bob", "order_sent", "purchase_order", "o-1", nil)
	rec.Shutdown()

	if got := mem.AuditCount(); got != 2 {
		t.Fatalf("persisted entries = %d, want 2", got)
	}

	entries, err := st.Audit.ListByEntity(context.Background(), "project", "p-1", 10)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries for project p-1 = %d, want 1", len(entries))
	}
	if entries[0].Actor != "alice" {
		t.Errorf("actor = %q, want %q", entries[0].Actor, "alice")
	}
	if string(entries[0].Detail) != `{"name":"Riverside Mall"}` {
		t.Errorf("detail = %s, want name payload", entries[0].Detail)
	}
}

func TestRecorderKeepsEntryWhenDetailUnmarshallable(t *testing.T) {
	mem := storetest.New()
	st := mem.Storage()

	rec := NewRecorder(st.Audit, logger.New(logger.LevelError), 4)
	rec.Start()

	rec.Record("carol", "transfer_approved", "budget_transfer", "t-1", make(chan int))
	rec.Shutdown()

	entries, err := st.Audit.ListByEntity(context.Background(), "budget_transfer", "t-1", 10)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 even when detail cannot be marshalled", len(entries))
	}
	if entries[0].Detail != nil {
		t.Errorf("detail = %s, want nil", entries[0].Detail)
	}
}
