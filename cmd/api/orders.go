package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Victorkib/kisheka-construction-sub007/internal/response"
	"github.com/Victorkib/kisheka-construction-sub007/internal/settlement"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
)

type SendOrderResponse = response.APIResponse[*SentOrder]
type GetOrderResponse = response.APIResponse[*store.PurchaseOrder]
type ListOrdersResponse = response.APIResponse[[]store.PurchaseOrder]
type OrderDecisionResponse = response.APIResponse[*store.PurchaseOrder]

// SentOrder is the creation payload. The response token appears here and
// nowhere else; the supplier link is built from it and later reads of the
// order never include it.
type SentOrder struct {
	*store.PurchaseOrder
	ResponseToken          string    `json:"response_token"`
	ResponseTokenExpiresAt time.Time `json:"response_token_expires_at"`
}

// @Summary		Send purchase order
// @Description	Validates the draft against available capital, mints a single-use response token and records the order as sent. Provide materials for a bulk order, or quantity and unit_cost for a single line.
// @Tags			Orders
// @Accept			json
// @Produce		json
// @Param			projectID	path		string					true	"Project ID"
// @Param			order		body		object{supplier:string,description:string,quantity:number,unit_cost:number,phase_id:string,requested_by:string,materials:[]object}	true	"Order draft"
// @Success		201			{object}	SendOrderResponse		"Order sent"
// @Failure		404			{object}	response.ErrorResponse	"Project not found"
// @Failure		422			{object}	response.ErrorResponse	"Draft invalid or capital insufficient"
// @Router			/projects/{projectID}/orders [post]
func (app *application) handleSendOrder(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	var input struct {
		Supplier    string                       `json:"supplier"`
		Description string                       `json:"description"`
		Quantity    float64                      `json:"quantity"`
		UnitCost    float64                      `json:"unit_cost"`
		PhaseID     *uuid.UUID                   `json:"phase_id"`
		RequestedBy string                       `json:"requested_by"`
		Materials   []settlement.MaterialRequest `json:"materials"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	order, warnings, err := app.settlement.SendOrder(ctx, settlement.SendOrderCommand{
		ProjectID:   projectID,
		PhaseID:     input.PhaseID,
		Supplier:    input.Supplier,
		Description: input.Description,
		Quantity:    input.Quantity,
		UnitCost:    input.UnitCost,
		Materials:   input.Materials,
		RequestedBy: input.RequestedBy,
	})
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &SendOrderResponse{
		Success: true,
		Data: &SentOrder{
			PurchaseOrder:          order,
			ResponseToken:          order.ResponseToken,
			ResponseTokenExpiresAt: order.ResponseTokenExpiresAt,
		},
		Message:  "Order sent to supplier",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusCreated, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleListOrders(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuidParam(r, "projectID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	ctx := r.Context()
	data, err := app.store.Orders.ListByProject(ctx, projectID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list orders: "+err.Error())
		return
	}

	response := &ListOrdersResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved orders",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ctx := r.Context()
	order, err := app.store.Orders.GetByID(ctx, orderID)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &GetOrderResponse{
		Success: true,
		Data:    order,
		Message: "Successfully retrieved order",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Record supplier response
// @Description	Applies a supplier's answer to a sent order. The token is single use: the first response spends it and later attempts conflict. Bulk orders take a lines array; single orders take action with optional new terms. Accepting validates the final total against available capital.
// @Tags			Orders
// @Accept			json
// @Produce		json
// @Param			orderID		path		string	true	"Order ID"
// @Param			response	body		object{token:string,action:string,unit_cost:number,quantity:number,notes:string,rejection_reason:string,lines:[]object}	true	"Supplier response"
// @Success		200			{object}	OrderDecisionResponse	"Response recorded"
// @Failure		403			{object}	response.ErrorResponse	"Token does not match"
// @Failure		409			{object}	response.ErrorResponse	"Token already used or order not awaiting a response"
// @Failure		410			{object}	response.ErrorResponse	"Token expired"
// @Failure		422			{object}	response.ErrorResponse	"Response invalid or capital insufficient"
// @Router			/orders/{orderID}/response [post]
func (app *application) handleSupplierResponse(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var input struct {
		Token           string                    `json:"token"`
		Action          string                    `json:"action"`
		UnitCost        *float64                  `json:"unit_cost"`
		Quantity        *float64                  `json:"quantity"`
		Notes           string                    `json:"notes"`
		RejectionReason string                    `json:"rejection_reason"`
		Lines           []settlement.LineResponse `json:"lines"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if input.Token == "" {
		writeJSONError(w, http.StatusBadRequest, "token is required")
		return
	}

	ctx := r.Context()
	var order *store.PurchaseOrder
	var warnings []string
	if len(input.Lines) > 0 {
		order, warnings, err = app.settlement.ProcessBulkResponse(ctx, settlement.BulkResponse{
			OrderID: orderID,
			Token:   input.Token,
			Notes:   input.Notes,
			Lines:   input.Lines,
		})
	} else {
		order, warnings, err = app.settlement.ProcessSupplierResponse(ctx, settlement.SupplierResponse{
			OrderID:         orderID,
			Token:           input.Token,
			Action:          input.Action,
			UnitCost:        input.UnitCost,
			Quantity:        input.Quantity,
			Notes:           input.Notes,
			RejectionReason: input.RejectionReason,
		})
	}
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &OrderDecisionResponse{
		Success:  true,
		Data:     order,
		Message:  "Supplier response recorded",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

func (app *application) handleApproveModification(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "orderID")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var input struct {
		ApprovedBy string `json:"approved_by"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	order, warnings, err := app.settlement.ApproveModification(ctx, orderID, input.ApprovedBy)
	if err != nil {
		app.writeServiceError(w, err)
		return
	}

	response := &OrderDecisionResponse{
		Success:  true,
		Data:     order,
		Message:  "Modified terms approved and funds committed",
		Warnings: warnings,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
