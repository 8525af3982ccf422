// Package forecast projects capital runway from spend history. The burn
// rate is the slope of a linear regression over cumulative daily spend;
// with too little history it falls back to a plain average and says so.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

var ErrNoHistory = errors.New("no expense history to project from")

// minHistoryDays is the least number of distinct spend days a regression
// is trusted on.
const minHistoryDays = 3

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
}

func NewService(storage *store.Storage, log *logger.Logger) *Service {
	return &Service{storage: storage, logger: log}
}

// Projection is the runway estimate for one project. DaysRemaining is
// zero when the burn rate or remaining capital gives nothing to project.
type Projection struct {
	ProjectID        uuid.UUID  `json:"project_id"`
	HistoryDays      int        `json:"history_days"`
	TotalSpent       float64    `json:"total_spent"`
	DailyBurnRate    float64    `json:"daily_burn_rate"`
	HorizonDays      int        `json:"horizon_days,omitempty"`
	ProjectedSpend   float64    `json:"projected_spend,omitempty"`
	RemainingCapital float64    `json:"remaining_capital"`
	DaysRemaining    int        `json:"days_remaining"`
	ExhaustedOn      *time.Time `json:"exhausted_on,omitempty"`
	Reliable         bool       `json:"reliable"`
}

// CapitalRunway estimates when the project's remaining capital runs out
// at the current spend rate. When horizonDays is positive the projection
// also carries the total spend expected horizonDays from now.
func (s *Service) CapitalRunway(ctx context.Context, projectID uuid.UUID, horizonDays int) (*Projection, error) {
	daily, err := s.storage.Expenses.DailyTotals(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load spend history: %w", err)
	}
	if len(daily) == 0 {
		return nil, ErrNoHistory
	}

	first := daily[0].Day
	xs := make([]float64, len(daily))
	ys := make([]float64, len(daily))
	var cumulative float64
	for i, d := range daily {
		xs[i] = d.Day.Sub(first).Hours() / 24
		cumulative += d.Total
		ys[i] = cumulative
	}

	p := &Projection{
		ProjectID:   projectID,
		HistoryDays: int(xs[len(xs)-1]) + 1,
		TotalSpent:  money.Round2(cumulative),
	}

	if len(daily) >= minHistoryDays {
		_, beta := stat.LinearRegression(xs, ys, nil, false)
		p.DailyBurnRate = money.Round2(beta)
		p.Reliable = true
	} else {
		p.DailyBurnRate = money.Round2(cumulative / float64(p.HistoryDays))
	}

	if horizonDays > 0 {
		p.HorizonDays = horizonDays
		p.ProjectedSpend = money.Round2(cumulative + p.DailyBurnRate*float64(horizonDays))
	}

	fin, err := s.storage.Finances.Get(ctx, projectID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read finances: %w", err)
	}
	if fin != nil {
		p.RemainingCapital = money.Sum(fin.TotalInvested, -fin.TotalUsed, -fin.CommittedCost)
	}

	if p.DailyBurnRate <= 0 || p.RemainingCapital <= 0 {
		return p, nil
	}

	p.DaysRemaining = int(math.Ceil(p.RemainingCapital / p.DailyBurnRate))
	exhausted := daily[len(daily)-1].Day.AddDate(0, 0, p.DaysRemaining)
	p.ExhaustedOn = &exhausted

	s.logger.Debug("forecast", "project %s: burn %0.2f/day, %d days of runway", projectID, p.DailyBurnRate, p.DaysRemaining)
	return p, nil
}
