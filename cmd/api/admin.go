package main

import (
	"net/http"

	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type RecalculateResponse = response.APIResponse[*store.ProjectFinances]
type ListAuditResponse = response.APIResponse[[]store.AuditEntry]

// handleRecalculate rebuilds the project's figures synchronously. The
// background cascade usually keeps them current; this is the manual lever
// for when an operator wants to see the rebuilt row right away.
func (app *application) handleRecalculate(w http.ResponseWriter, r *http.Request) {
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
	if err := app.recalc.Recalculate(ctx, projectID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to recalculate: "+err.Error())
		return
	}
	finances, err := app.store.Finances.Get(ctx, projectID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &RecalculateResponse{
		Success: true,
		Data:    finances,
		Message: "Project finances recalculated",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListAuditEntries(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID := r.URL.Query().Get("entity_id")
	if entityType == "" || entityID == "" {
		writeJSONError(w, http.StatusBadRequest, "entity_type and entity_id are required")
		return
	}
	limit := intQueryOrDefault(r, "limit", 50)

	ctx := r.Context()
	data, err := app.store.Audit.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list audit entries: "+err.Error())
		return
	}

	response := &ListAuditResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved audit entries",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
