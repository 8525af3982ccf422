package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/importer"
	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type CreateExpenseResponse = response.APIResponse[*store.Expense]
type ListExpensesResponse = response.APIResponse[[]store.Expense]
type ExpensesByCategoryResponse = response.APIResponse[[]store.CategoryTotal]
type ImportExpensesResponse = response.APIResponse[*importer.Result]

func (app *application) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		PhaseID     *uuid.UUID `json:"phase_id"`
		Category    string     `json:"category"`
		Description string     `json:"description"`
		Amount      float64    `json:"amount"`
		IncurredOn  string     `json:"incurred_on"`
		CreatedBy   string     `json:"created_by"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Category == "" {
		writeJSONError(w, http.StatusBadRequest, "category is required")
		return
	}
	if input.Amount <= 0 {
		writeJSONError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	ctx := r.Context()
	if _, err := app.store.Projects.GetByID(ctx, projectID); err != nil {
		app.writeServiceError(w, err)
		return
	}
	if input.PhaseID != nil {
		phase, err := app.store.Phases.GetByID(ctx, *input.PhaseID)
		if err != nil {
			app.writeServiceError(w, err)
			return
		}
		if phase.ProjectID != projectID {
			writeJSONError(w, http.StatusUnprocessableEntity, "phase belongs to a different project")
			return
		}
	}

	expense := &store.Expense{
		ID:          uuid.New(),
		ProjectID:   projectID,
		PhaseID:     input.PhaseID,
		Category:    input.Category,
		Description: input.Description,
		Amount:      money.Round2(input.Amount),
		IncurredOn:  parseDateOrDefault(input.IncurredOn, time.Now()),
		CreatedBy:   input.CreatedBy,
	}
	if err := app.store.Expenses.Insert(ctx, expense); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to record expense: "+err.Error())
		return
	}
	app.audit.Record(input.CreatedBy, "expense_recorded", "project", projectID.String(), map[string]any{
		"category": expense.Category,
		"amount":   expense.Amount,
	})
	app.recalc.Enqueue(projectID)

	response := &CreateExpenseResponse{
		Success: true,
		Data:    expense,
		Message: "Expense recorded",
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Expenses.ListByProject(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list expenses: "+err.Error())
		return
	}

	response := &ListExpensesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved expenses",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Expenses.SumByCategory(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to sum expenses by category: "+err.Error())
		return
	}

	response := &ExpensesByCategoryResponse{
		Success: true,
		Data:    data,
		Message: "Successfully summed expenses by category",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Import expenses
// @Description	Imports expenses from a semicolon separated, Windows-1252 encoded CSV export. Bad rows are skipped and reported; good rows land and queue one recalculation.
// @Tags			Expenses
// @Accept			mpfd
// @Produce		json
// @Param			projectID	path		string					true	"Project ID"
// @Param			file		formData	file					true	"CSV export"
// @Success		200			{object}	ImportExpensesResponse	"Import summary"
// @Failure		400			{object}	response.ErrorResponse	"Missing file or unreadable export"
// @Router			/projects/{projectID}/expenses/import [post]
func (app *application) handleImportExpenses(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	createdBy := r.FormValue("created_by")

	ctx := r.Context()
	result, err := app.importer.ImportExpenses(ctx, projectID, createdBy, file)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			app.writeServiceError(w, err)
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to import expenses: "+err.Error())
		return
	}
	app.audit.Record(createdBy, "expenses_imported", "project", projectID.String(), result)

	response := &ImportExpensesResponse{
		Success:  true,
		Data:     result,
		Message:  "Import finished",
		Warnings: result.Errors,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
