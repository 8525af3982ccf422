package main

import (
	"fmt"
	"net/http"

	"github.com/Victorkib/kisheka-construction-sub007/internal/forecast"
	"github.com/Victorkib/kisheka-construction-sub007/internal/report"
	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
)

type BudgetExecutionResponse = response.APIResponse[*report.Execution]
type CapitalRunwayResponse = response.APIResponse[*forecast.Projection]

// @Summary		Budget execution report
// @Description	Budgeted versus actual spend per direct cost category. format=csv or format=xlsx downloads the report instead of returning JSON.
// @Tags			Reports
// @Produce		json
// @Param			projectID	path		string	true	"Project ID"
// @Param			format		query		string	false	"Output format"	Enums(json, csv, xlsx)
// @Success		200			{object}	BudgetExecutionResponse	"Budget execution rows"
// @Failure		404			{object}	response.ErrorResponse	"Project not found"
// @Router			/projects/{projectID}/reports/budget-execution [get]
func (app *application) handleBudgetExecutionReport(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	execution, err := app.reports.BudgetExecution(ctx, projectID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		response := &BudgetExecutionResponse{
			Success: true,
			Data:    execution,
			Message: "Successfully generated budget execution report",
		}
		if err := writeJSON(w, http.StatusOK, response); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to write response")
		}

	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=budget-execution-%s.csv", projectID))
		if err := execution.WriteCSV(w); err != nil {
			app.logger.Error("api", "failed to stream csv report: %v", err)
		}

	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=budget-execution-%s.xlsx", projectID))
		if err := execution.WriteXLSX(w); err != nil {
			app.logger.Error("api", "failed to stream xlsx report: %v", err)
		}

	default:
		writeJSONError(w, http.StatusBadRequest, "format must be json, csv or xlsx")
	}
}

func (app *application) handleCapitalRunway(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	projection, err := app.forecast.CapitalRunway(ctx, projectID, intQueryOrDefault(r, "days", 30))
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &CapitalRunwayResponse{
		Success: true,
		Data:    projection,
		Message: "Successfully projected capital runway",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
