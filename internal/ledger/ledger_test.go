package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store/storetest"
)

func newService(t *testing.T) (*Service, *store.Storage) {
	t.Helper()
	st := storetest.New().Storage()
	return NewService(st, logger.New(logger.LevelError)), st
}

func TestValidateCapitalAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("sufficient capital", func(t *testing.T) {
		svc, st := newService(t)
		projectID := uuid.New()

		err := st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     projectID,
			TotalInvested: 100000,
			TotalUsed:     20000,
			CommittedCost: 30000,
		})
		if err != nil {
			t.Fatalf("Overwrite: %v", err)
		}

		a, err := svc.ValidateCapitalAvailability(ctx, projectID, 50000)
		if err != nil {
			t.Fatalf("ValidateCapitalAvailability: %v", err)
		}
		if !a.Sufficient {
			t.Errorf("sufficient = false, want true")
		}
		if a.Available != 50000 {
			t.Errorf("available = %v, want 50000", a.Available)
		}
		if a.Shortfall != 0 {
			t.Errorf("shortfall = %v, want 0", a.Shortfall)
		}
	})

	t.Run("insufficient capital reports shortfall", func(t *testing.T) {
		svc, st := newService(t)
		projectID := uuid.New()

		err := st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     projectID,
			TotalInvested: 100,
		})
		if err != nil {
			t.Fatalf("Overwrite: %v", err)
		}

		a, err := svc.ValidateCapitalAvailability(ctx, projectID, 150)
		if err != nil {
			t.Fatalf("ValidateCapitalAvailability: %v", err)
		}
		if a.Sufficient {
			t.Errorf("sufficient = true, want false")
		}
		if a.Available != 100 {
			t.Errorf("available = %v, want 100", a.Available)
		}
		if a.Shortfall != 50 {
			t.Errorf("shortfall = %v, want 50", a.Shortfall)
		}
	})

	t.Run("zero investment passes with capital not set", func(t *testing.T) {
		svc, _ := newService(t)
		projectID := uuid.New()

		a, err := svc.ValidateCapitalAvailability(ctx, projectID, 5000)
		if err != nil {
			t.Fatalf("ValidateCapitalAvailability: %v", err)
		}
		if !a.CapitalNotSet {
			t.Errorf("capitalNotSet = false, want true")
		}
		if !a.Sufficient {
			t.Errorf("sufficient = false, want true when capital is not set")
		}
		if a.Warning() == "" {
			t.Errorf("warning is empty, want a capital-not-set note")
		}
	})

	t.Run("committed cost shrinks availability", func(t *testing.T) {
		svc, st := newService(t)
		projectID := uuid.New()

		err := st.Finances.Overwrite(ctx, &store.ProjectFinances{
			ProjectID:     projectID,
			TotalInvested: 10000,
			TotalUsed:     2000,
			CommittedCost: 7500,
		})
		if err != nil {
			t.Fatalf("Overwrite: %v", err)
		}

		a, err := svc.ValidateCapitalAvailability(ctx, projectID, 1000)
		if err != nil {
			t.Fatalf("ValidateCapitalAvailability: %v", err)
		}
		if a.Sufficient {
			t.Errorf("sufficient = true, want false with only 500 available")
		}
		if a.Shortfall != 500 {
			t.Errorf("shortfall = %v, want 500", a.Shortfall)
		}
	})
}

func TestUpdateCommittedCost(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	projectID := uuid.New()

	if err := svc.UpdateCommittedCost(ctx, projectID, 1250.505); err != nil {
		t.Fatalf("UpdateCommittedCost: %v", err)
	}
	if err := svc.UpdateCommittedCost(ctx, projectID, -250.51); err != nil {
		t.Fatalf("UpdateCommittedCost: %v", err)
	}

	fin, err := st.Finances.Get(ctx, projectID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fin.CommittedCost != 1000 {
		t.Errorf("committed cost = %v, want 1000", fin.CommittedCost)
	}
}

func TestCurrentTotalUsedFallsBackToExpenses(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	projectID := uuid.New()

	for _, amount := range []float64{100.25, 49.75} {
		err := st.Expenses.Insert(ctx, &store.Expense{
			ID:         uuid.New(),
			ProjectID:  projectID,
			Category:   "materials",
			Amount:     amount,
			IncurredOn: time.Now(),
		})
		if err != nil {
			t.Fatalf("Insert expense: %v", err)
		}
	}

	got, err := svc.CurrentTotalUsed(ctx, projectID)
	if err != nil {
		t.Fatalf("CurrentTotalUsed: %v", err)
	}
	if got != 150 {
		t.Errorf("total used = %v, want 150 from expense fallback", got)
	}

	err = st.Finances.Overwrite(ctx, &store.ProjectFinances{ProjectID: projectID, TotalUsed: 150})
	if err != nil {
		t.Fatalf("Overwrite: %v", err)
	}

	got, err = svc.CurrentTotalUsed(ctx, projectID)
	if err != nil {
		t.Fatalf("CurrentTotalUsed: %v", err)
	}
	if got != 150 {
		t.Errorf("total used = %v, want 150 from ledger row", got)
	}
}
