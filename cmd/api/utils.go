package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/config"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
)

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func intQueryOrDefault(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	return fallback
}

func parseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

func parseDateOrDefault(dateStr string, fallback time.Time) time.Time {
	if dateStr == "" {
		return fallback
	}
	if t, err := parseDate(dateStr); err == nil {
		return t
	}
	return fallback
}

func conversionPolicy(p config.Policy) budget.Policy {
	return budget.Policy{
		PreConstructionPct: p.Conversion.PreConstructionPct,
		IndirectPct:        p.Conversion.IndirectPct,
	}
}

func toleranceFrom(p config.Policy) money.Tolerance {
	return money.Tolerance{
		Absolute:    p.Tolerance.AbsoluteCents,
		RelativePct: p.Tolerance.RelativePct,
	}
}
