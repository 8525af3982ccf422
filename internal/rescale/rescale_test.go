package rescale

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/audit"
	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store/storetest"
)

func newService(t *testing.T) (*Service, *storetest.Memory, func()) {
	t.Helper()
	mem := storetest.New()
	st := mem.Storage()
	rec := audit.NewRecorder(st.Audit, logger.New(logger.LevelError), 64)
	rec.Start()
	svc := NewService(st, logger.New(logger.LevelError), rec)
	return svc, mem, rec.Shutdown
}

func insertPhase(t *testing.T, st *store.Storage, projectID uuid.UUID, name string, allocated float64) uuid.UUID {
	t.Helper()
	phase := &store.Phase{ID: uuid.New(), ProjectID: projectID, Name: name, AllocatedBudget: allocated}
	if err := st.Phases.Insert(context.Background(), phase); err != nil {
		t.Fatalf("insert phase %s: %v", name, err)
	}
	return phase.ID
}

func TestRescalePhaseBudgets(t *testing.T) {
	ctx := context.Background()

	t.Run("scales allocations proportionally", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		foundations := insertPhase(t, st, projectID, "foundations", 20000)
		structure := insertPhase(t, st, projectID, "structure", 30000)

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 100000, 150000)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if len(changes) != 2 {
			t.Fatalf("changes = %d, want 2", len(changes))
		}

		wantAlloc := map[uuid.UUID]float64{foundations: 30000, structure: 45000}
		for id, want := range wantAlloc {
			phase, err := st.Phases.GetByID(ctx, id)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if phase.AllocatedBudget != want {
				t.Errorf("phase %s allocation = %v, want %v", phase.Name, phase.AllocatedBudget, want)
			}
		}
	})

	t.Run("scales down with cent rounding", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		id := insertPhase(t, st, projectID, "finishes", 100)

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 3, 1)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if len(changes) != 1 || !changes[0].Updated {
			t.Fatalf("changes = %+v, want one applied change", changes)
		}

		phase, err := st.Phases.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if phase.AllocatedBudget != 33.33 {
			t.Errorf("allocation = %v, want 33.33", phase.AllocatedBudget)
		}
	})

	t.Run("zero previous direct cost leaves phases untouched", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		id := insertPhase(t, st, projectID, "foundations", 20000)

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 0, 150000)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if changes != nil {
			t.Fatalf("changes = %+v, want nil", changes)
		}

		phase, err := st.Phases.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if phase.AllocatedBudget != 20000 {
			t.Errorf("allocation = %v, want untouched 20000", phase.AllocatedBudget)
		}
	})

	t.Run("zero new direct cost leaves phases untouched", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		id := insertPhase(t, st, projectID, "foundations", 20000)

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 100000, 0)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if changes != nil {
			t.Fatalf("changes = %+v, want nil", changes)
		}

		phase, err := st.Phases.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if phase.AllocatedBudget != 20000 {
			t.Errorf("allocation = %v, want untouched 20000", phase.AllocatedBudget)
		}
	})

	t.Run("unchanged direct cost is a no-op", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()
		insertPhase(t, st, projectID, "foundations", 20000)

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 80000, 80000)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if changes != nil {
			t.Fatalf("changes = %+v, want nil", changes)
		}
	})

	t.Run("one failing phase does not stop the others", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		first := insertPhase(t, st, projectID, "foundations", 10000)
		second := insertPhase(t, st, projectID, "structure", 20000)
		third := insertPhase(t, st, projectID, "finishes", 30000)

		mem.AllocationUpdateErr[second] = errors.New("deadlock detected")

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 100000, 200000)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if len(changes) != 3 {
			t.Fatalf("changes = %d, want 3", len(changes))
		}

		var failed, updated int
		for _, c := range changes {
			if c.Failure != "" {
				failed++
				if c.PhaseID != second {
					t.Errorf("failed phase = %s, want %s", c.PhaseID, second)
				}
			}
			if c.Updated {
				updated++
			}
		}
		if failed != 1 || updated != 2 {
			t.Errorf("failed = %d, updated = %d, want 1 and 2", failed, updated)
		}

		for id, want := range map[uuid.UUID]float64{first: 20000, second: 20000, third: 60000} {
			phase, err := st.Phases.GetByID(ctx, id)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if phase.AllocatedBudget != want {
				t.Errorf("phase %s allocation = %v, want %v", phase.Name, phase.AllocatedBudget, want)
			}
		}
	})

	t.Run("zero allocation stays zero without a write", func(t *testing.T) {
		svc, mem, shutdown := newService(t)
		defer shutdown()
		st := mem.Storage()
		projectID := uuid.New()

		id := insertPhase(t, st, projectID, "contingent works", 0)
		mem.AllocationUpdateErr[id] = errors.New("should not be written")

		changes, err := svc.RescalePhaseBudgets(ctx, projectID, "alice", 100000, 150000)
		if err != nil {
			t.Fatalf("RescalePhaseBudgets: %v", err)
		}
		if len(changes) != 1 {
			t.Fatalf("changes = %d, want 1", len(changes))
		}
		if changes[0].Updated || changes[0].Failure != "" {
			t.Errorf("change = %+v, want untouched zero allocation", changes[0])
		}
	})
}
