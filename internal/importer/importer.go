// Package importer loads expenses from accounting exports: semicolon
// separated CSV, Windows-1252 encoded, amounts written with decimal
// commas. Rows that cannot be read are logged and skipped; the rest land
// as expenses and one recalculation is queued at the end.
package importer

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/Victorkib/kisheka-construction-sub007/internal/logger"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

// Columns an expense export must carry. Description is optional.
const (
	colDate        = "date"
	colCategory    = "category"
	colDescription = "description"
	colAmount      = "amount"
)

const dateLayout = "02/01/2006"

// RecalcEnqueuer schedules a financial recalculation after an import.
type RecalcEnqueuer interface {
	Enqueue(projectID uuid.UUID) bool
}

type Service struct {
	storage *store.Storage
	logger  *logger.Logger
	recalc  RecalcEnqueuer
}

func NewService(storage *store.Storage, log *logger.Logger, recalc RecalcEnqueuer) *Service {
	return &Service{storage: storage, logger: log, recalc: recalc}
}

// Result summarizes one import run.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportExpenses reads an export and records one expense per usable row.
// A bad row never aborts the run; it is reported in the result and the
// remaining rows still land.
func (s *Service) ImportExpenses(ctx context.Context, projectID uuid.UUID, createdBy string, r io.Reader) (*Result, error) {
	if _, err := s.storage.Projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	decoded := charmap.Windows1252.NewDecoder().Reader(r)
	df := dataframe.ReadCSV(decoded, dataframe.WithDelimiter(';'), dataframe.WithLazyQuotes(true))
	if df.Error() != nil {
		return nil, fmt.Errorf("failed to read import file: %w", df.Error())
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("import file has no rows")
	}
	for _, col := range []string{colDate, colCategory, colAmount} {
		if !containsString(df.Names(), col) {
			return nil, fmt.Errorf("import file is missing the %q column", col)
		}
	}

	result := &Result{}
	for i := 0; i < df.Nrow(); i++ {
		expense, err := s.rowToExpense(df, i, projectID, createdBy)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			s.logger.Warn("importer", "row %d skipped: %v", i+1, err)
			continue
		}
		if err := s.storage.Expenses.Insert(ctx, expense); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			s.logger.Error("importer", "row %d failed to persist: %v", i+1, err)
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		s.recalc.Enqueue(projectID)
	}
	s.logger.Info("importer", "project %s: %d expenses imported, %d rows skipped", projectID, result.Imported, result.Skipped)
	return result, nil
}

func (s *Service) rowToExpense(df dataframe.DataFrame, rowIdx int, projectID uuid.UUID, createdBy string) (*store.Expense, error) {
	amount, err := ParseAmount(getStr(df, colAmount, rowIdx))
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount %v is not positive", amount)
	}

	dateRaw := strings.TrimSpace(getStr(df, colDate, rowIdx))
	incurredOn, err := time.Parse(dateLayout, dateRaw)
	if err != nil {
		return nil, fmt.Errorf("bad date %q, expected dd/mm/yyyy", dateRaw)
	}

	category := strings.TrimSpace(getStr(df, colCategory, rowIdx))
	if category == "" {
		return nil, fmt.Errorf("category is empty")
	}

	return &store.Expense{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Category:    category,
		Description: strings.TrimSpace(getStr(df, colDescription, rowIdx)),
		Amount:      amount,
		IncurredOn:  incurredOn,
		CreatedBy:   createdBy,
	}, nil
}

func getStr(df dataframe.DataFrame, col string, rowIdx int) string {
	if !containsString(df.Names(), col) {
		return ""
	}
	return df.Col(col).Elem(rowIdx).String()
}

func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// ParseAmount reads a money value in either 1.234,56 or 1234.56 form,
// with an optional R$ prefix.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "R$")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("bad amount %q", raw)
	}
	return money.Round2(value), nil
}
