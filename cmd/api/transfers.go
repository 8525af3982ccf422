package main

import (
	"net/http"

	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/transfer"
)

type TransferResponse = response.APIResponse[*store.BudgetTransfer]
type ListTransfersResponse = response.APIResponse[[]store.BudgetTransfer]

// @Summary		Request budget transfer
// @Description	Files a pending transfer between direct cost categories. The source balance is checked now and again at approval; no money moves until someone approves.
// @Tags			Transfers
// @Accept			json
// @Produce		json
// @Param			projectID	path		string																					true	"Project ID"
// @Param			transfer	body		object{from_category:string,to_category:string,amount:number,requested_by:string,note:string}	true	"Transfer request"
// @Success		201			{object}	TransferResponse		"Transfer requested"
// @Failure		422			{object}	response.ErrorResponse	"Invalid transfer or insufficient category balance"
// @Router			/projects/{projectID}/transfers [post]
func (app *application) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		FromCategory string  `json:"from_category"`
		ToCategory   string  `json:"to_category"`
		Amount       float64 `json:"amount"`
		RequestedBy  string  `json:"requested_by"`
		Note         string  `json:"note"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	created, err := app.transfers.Request(ctx, transfer.RequestCommand{
		ProjectID:    projectID,
		FromCategory: input.FromCategory,
		ToCategory:   input.ToCategory,
		Amount:       input.Amount,
		RequestedBy:  input.RequestedBy,
		Note:         input.Note,
	})
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &TransferResponse{
		Success: true,
		Data:    created,
		Message: "Transfer requested",
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Transfers.ListByProject(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list transfers: "+err.Error())
		return
	}

	response := &ListTransfersResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved transfers",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := uuidParam(r, "transferID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var input struct {
		DecidedBy string `json:"decided_by"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	approved, warnings, err := app.transfers.Approve(ctx, transferID, input.DecidedBy)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &TransferResponse{
		Success:  true,
		Data:     approved,
		Message:  "Transfer approved and applied",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleRejectTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, err := uuidParam(r, "transferID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid transfer id")
		return
	}

	var input struct {
		DecidedBy string `json:"decided_by"`
		Note      string `json:"note"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	rejected, err := app.transfers.Reject(ctx, transferID, input.DecidedBy, input.Note)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &TransferResponse{
		Success: true,
		Data:    rejected,
		Message: "Transfer rejected",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
