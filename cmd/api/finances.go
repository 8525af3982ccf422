package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/money"
	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type GetFinancesResponse = response.APIResponse[*FinancialSnapshot]
type CreateInvestmentResponse = response.APIResponse[*store.Investment]
type ListInvestmentsResponse = response.APIResponse[[]store.Investment]

// FinancialSnapshot is the ledger row plus the derived figure buyers
// actually ask for: how much is left to commit.
type FinancialSnapshot struct {
	ProjectID        uuid.UUID `json:"project_id"`
	TotalInvested    float64   `json:"total_invested"`
	TotalUsed        float64   `json:"total_used"`
	CommittedCost    float64   `json:"committed_cost"`
	CapitalBalance   float64   `json:"capital_balance"`
	AvailableCapital float64   `json:"available_capital"`
	CapitalNotSet    bool      `json:"capital_not_set"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (app *application) handleGetFinances(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	if _, err := app.store.Projects.GetByID(ctx, projectID); err != nil {
		app.writeServiceError(w, err)
		return
	}
	finances, err := app.ledger.Snapshot(ctx, projectID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	snapshot := &FinancialSnapshot{
		ProjectID:        finances.ProjectID,
		TotalInvested:    finances.TotalInvested,
		TotalUsed:        finances.TotalUsed,
		CommittedCost:    finances.CommittedCost,
		CapitalBalance:   finances.CapitalBalance,
		AvailableCapital: money.Sum(finances.TotalInvested, -finances.TotalUsed, -finances.CommittedCost),
		CapitalNotSet:    finances.TotalInvested == 0,
		UpdatedAt:        finances.UpdatedAt,
	}

	response := &GetFinancesResponse{
		Success: true,
		Data:    snapshot,
		Message: "Successfully retrieved project finances",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Record investment
// @Description	Records invested capital and queues a financial recalculation.
// @Tags			Finances
// @Accept			json
// @Produce		json
// @Param			projectID	path		string														true	"Project ID"
// @Param			investment	body		object{investor:string,amount:number,invested_on:string}	true	"Investment details"
// @Success		201			{object}	CreateInvestmentResponse									"Investment recorded"
// @Failure		400			{object}	response.ErrorResponse										"Invalid request payload"
// @Router			/projects/{projectID}/investments [post]
func (app *application) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		Investor   string  `json:"investor"`
		Amount     float64 `json:"amount"`
		InvestedOn string  `json:"invested_on"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
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

	investment := &store.Investment{
		ID:         uuid.New(),
		ProjectID:  projectID,
		Investor:   input.Investor,
		Amount:     money.Round2(input.Amount),
		InvestedOn: parseDateOrDefault(input.InvestedOn, time.Now()),
	}
	if err := app.store.Investments.Insert(ctx, investment); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to record investment: "+err.Error())
		return
	}
	app.audit.Record(input.Investor, "investment_recorded", "project", projectID.String(), map[string]any{"amount": investment.Amount})
	app.recalc.Enqueue(projectID)

	response := &CreateInvestmentResponse{
		Success: true,
		Data:    investment,
		Message: "Investment recorded",
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Investments.ListByProject(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list investments: "+err.Error())
		return
	}

	response := &ListInvestmentsResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved investments",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
