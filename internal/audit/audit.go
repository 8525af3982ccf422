// Package audit persists an append-only trail of financial actions.
// Recording happens off the request path: callers hand entries to a
// buffered worker and move on, so a slow audit table never holds up a
// settlement or a transfer.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// Inserter is the slice of the audit store the recorder needs.
type Inserter interface {
	Insert(ctx context.Context, entry *store.AuditEntry) error
}

type Recorder struct {
	store   Inserter
	logger  *logger.Logger
	entries chan store.AuditEntry
	wg      sync.WaitGroup
	timeout time.Duration
}

func NewRecorder(auditStore Inserter, log *logger.Logger, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 128
	}
	return &Recorder{
		store:   auditStore,
		logger:  log,
		entries: make(chan store.AuditEntry, buffer),
		timeout: 10 * time.Second,
	}
}

// Start launches the persistence worker.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Record queues one audit entry. It never blocks: when the buffer is
// full the entry is dropped and a warning logged, because audit must not
// slow down the operation it describes. Detail is marshalled to JSON; a
// detail that cannot be marshalled is recorded as null.
func (r *Recorder) Record(actor, action, entityType, entityID string, detail any) {
	entry := store.AuditEntry{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}

	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			r.logger.Warn("audit", "failed to marshal detail for %s %s: %v", action, entityID, err)
		} else {
			entry.Detail = raw
		}
	}

	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("audit", "buffer full, dropping entry %s %s/%s", action, entityType, entityID)
	}
}

// Shutdown stops accepting entries and drains what was already queued.
func (r *Recorder) Shutdown() {
	close(r.entries)
	r.wg.Wait()
}

func (r *Recorder) loop() {
	defer r.wg.Done()

	for entry := range r.entries {
		r.persist(entry)
	}
}

func (r *Recorder) persist(entry store.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Insert(ctx, &entry); err != nil {
		r.logger.Error("audit", "failed to persist entry %s %s/%s: %v", entry.Action, entry.EntityType, entry.EntityID, err)
	}
}
