package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/rescale"
	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type CreateProjectResponse = response.APIResponse[*store.Project]
type GetProjectResponse = response.APIResponse[*store.Project]
type ListProjectsResponse = response.APIResponse[[]store.Project]
type UpdateBudgetResponse = response.APIResponse[*BudgetUpdateResult]
type CreatePhaseResponse = response.APIResponse[*store.Phase]
type ListPhasesResponse = response.APIResponse[[]store.Phase]
type MessageResponse = response.APIResponse[any]

// BudgetUpdateResult is what a budget edit returns: the stored document
// plus what the rescaler did to each phase.
type BudgetUpdateResult struct {
	Budget         budget.Enhanced  `json:"budget"`
	DetectedShape  budget.Shape     `json:"detected_shape"`
	RescaledPhases []rescale.Change `json:"rescaled_phases,omitempty"`
}

// @Summary		Create project
// @Description	Creates a project. Legacy budgets are upgraded to the enhanced shape on write.
// @Tags			Projects
// @Accept			json
// @Produce		json
// @Param			project	body		object{name:string,created_by:string,budget:object}	true	"Project details"
// @Success		201		{object}	CreateProjectResponse								"Project created"
// @Failure		400		{object}	response.ErrorResponse								"Invalid request payload"
// @Failure		422		{object}	response.ErrorResponse								"Budget failed validation"
// @Router			/projects [post]
func (app *application) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name      string          `json:"name"`
		CreatedBy string          `json:"created_by"`
		Budget    json.RawMessage `json:"budget"`
	}

	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Name == "" || len(input.Budget) == 0 {
		writeJSONError(w, http.StatusBadRequest, "name and budget are required")
		return
	}

	enhanced, _, warnings, err := budget.Normalize(input.Budget, conversionPolicy(app.policy))
	if err != nil {
		app.writeServiceError(w, err)
		return
	}
	if v := budget.Validate(enhanced, toleranceFrom(app.policy)); !v.Valid {
		writeJSONErrorDetails(w, http.StatusUnprocessableEntity, "budget failed validation", v.Errors)
		return
	}

	raw, err := json.Marshal(enhanced)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode budget: "+err.Error())
		return
	}

	project := &store.Project{
		ID:        uuid.New(),
		Name:      input.Name,
		CreatedBy: input.CreatedBy,
		Budget:    raw,
	}

	ctx := r.Context()
	if err := app.store.Projects.Insert(ctx, project); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create project: "+err.Error())
		return
	}
	app.audit.Record(input.CreatedBy, "project_created", "project", project.ID.String(), map[string]any{"name": project.Name})

	response := &CreateProjectResponse{
		Success:  true,
		Data:     project,
		Message:  "Project created",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := app.store.Projects.List(ctx)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list projects: "+err.Error())
		return
	}

	response := &ListProjectsResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved projects",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	project, err := app.store.Projects.GetByID(ctx, projectID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &GetProjectResponse{
		Success: true,
		Data:    project,
		Message: "Successfully retrieved project",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	if err := app.store.Projects.Delete(ctx, projectID); err != nil {
		app.writeServiceError(w, err)
		return
	}
	app.audit.Record("", "project_deleted", "project", projectID.String(), nil)

	response := &MessageResponse{
		Success: true,
		Message: "Project and its dependent records deleted",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Update project budget
// @Description	Replaces the budget document and rescales phase allocations in proportion to the direct construction cost change.
// @Tags			Projects
// @Accept			json
// @Produce		json
// @Param			projectID	path		string												true	"Project ID"
// @Param			budget		body		object{budget:object,updated_by:string}			true	"New budget document"
// @Success		200			{object}	UpdateBudgetResponse								"Budget updated"
// @Failure		404			{object}	response.ErrorResponse								"Project not found"
// @Failure		422			{object}	response.ErrorResponse								"Budget failed validation"
// @Router			/projects/{projectID}/budget [put]
func (app *application) handleUpdateProjectBudget(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		Budget    json.RawMessage `json:"budget"`
		UpdatedBy string          `json:"updated_by"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(input.Budget) == 0 {
		writeJSONError(w, http.StatusBadRequest, "budget is required")
		return
	}

	ctx := r.Context()
	project, err := app.store.Projects.GetByID(ctx, projectID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	// The stored document was validated on write, so a parse failure here
	// only costs the rescale ratio, not the edit.
	oldDCC := 0.0
	if oldEnhanced, _, _, err := budget.Normalize(project.Budget, conversionPolicy(app.policy)); err == nil {
		oldDCC = oldEnhanced.DirectConstructionCosts.Total
	} else {
		app.logger.Warn("api", "project %s: stored budget did not parse, phases will not be rescaled: %v", projectID, err)
	}

	enhanced, shape, warnings, err := budget.Normalize(input.Budget, conversionPolicy(app.policy))
	if err != nil {
		app.writeServiceError(w, err)
		return
	}
	if v := budget.Validate(enhanced, toleranceFrom(app.policy)); !v.Valid {
		writeJSONErrorDetails(w, http.StatusUnprocessableEntity, "budget failed validation", v.Errors)
		return
	}

	raw, err := json.Marshal(enhanced)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode budget: "+err.Error())
		return
	}
	if err := app.store.Projects.UpdateBudget(ctx, projectID, raw); err != nil {
		app.writeServiceError(w, err)
		return
	}
	app.audit.Record(input.UpdatedBy, "budget_updated", "project", projectID.String(), map[string]any{
		"old_direct_costs": oldDCC,
		"new_direct_costs": enhanced.DirectConstructionCosts.Total,
	})

	changes, err := app.rescale.RescalePhaseBudgets(ctx, projectID, input.UpdatedBy, oldDCC, enhanced.DirectConstructionCosts.Total)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "budget stored but phases failed to rescale: "+err.Error())
		return
	}

	response := &UpdateBudgetResponse{
		Success: true,
		Data: &BudgetUpdateResult{
			Budget:         enhanced,
			DetectedShape:  shape,
			RescaledPhases: changes,
		},
		Message:  "Budget updated",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleCreatePhase(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		Name            string  `json:"name"`
		AllocatedBudget float64 `json:"allocated_budget"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if input.AllocatedBudget < 0 {
		writeJSONError(w, http.StatusBadRequest, "allocated_budget must not be negative")
		return
	}

	ctx := r.Context()
	if _, err := app.store.Projects.GetByID(ctx, projectID); err != nil {
		app.writeServiceError(w, err)
		return
	}

	phase := &store.Phase{
		ID:              uuid.New(),
		ProjectID:       projectID,
		Name:            input.Name,
		AllocatedBudget: input.AllocatedBudget,
		CreatedAt:       time.Now(),
	}
	if err := app.store.Phases.Insert(ctx, phase); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to create phase: "+err.Error())
		return
	}

	response := &CreatePhaseResponse{
		Success: true,
		Data:    phase,
		Message: "Phase created",
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListPhases(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Phases.ListByProject(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list phases: "+err.Error())
		return
	}

	response := &ListPhasesResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved phases",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
