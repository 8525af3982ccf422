package main

import (
	"errors"
	"net/http"

	"github.com/Victorkib/kisheka-construction-sub007/internal/budget"
	"github.com/Victorkib/kisheka-construction-sub007/internal/forecast"
	"github.com/Victorkib/kisheka-construction-sub007/internal/settlement"
	"github.com/Victorkib/kisheka-construction-sub007/internal/store"
	"github.com/Victorkib/kisheka-construction-sub007/internal/transfer"
)

// writeServiceError maps the engine's sentinel errors onto statuses so
// handlers stay thin. Anything unrecognized is a 500.
func (app *application) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "record not found")

	case errors.Is(err, settlement.ErrTokenInvalid):
		writeJSONError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, settlement.ErrTokenExpired):
		writeJSONError(w, http.StatusGone, err.Error())

	case errors.Is(err, settlement.ErrTokenAlreadyUsed),
		errors.Is(err, settlement.ErrOrderNotRespondable),
		errors.Is(err, settlement.ErrModificationNotPending),
		errors.Is(err, store.ErrTransferNotPending):
		writeJSONError(w, http.StatusConflict, err.Error())

	case errors.Is(err, settlement.ErrInsufficientCapital),
		errors.Is(err, settlement.ErrInvalidOrder),
		errors.Is(err, settlement.ErrInvalidResponse),
		errors.Is(err, settlement.ErrNotesRequired),
		errors.Is(err, settlement.ErrReasonRequired),
		errors.Is(err, settlement.ErrNotBulkOrder),
		errors.Is(err, settlement.ErrLineResponsesRequired),
		errors.Is(err, transfer.ErrInvalidTransfer),
		errors.Is(err, budget.ErrUnknownShape),
		errors.Is(err, budget.ErrUnknownCategory),
		errors.Is(err, budget.ErrInsufficientBalance),
		errors.Is(err, forecast.ErrNoHistory):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())

	default:
		app.logger.Error("api", "unhandled service error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
