package controllers

import (
	"net/http"

	"github.com/visionscan/pos-backend/api/responses"
	"github.com/visionscan/pos-backend/api/validators"
	checkoutsvc "github.com/visionscan/pos-backend/internal/checkout"
	inventorysvc "github.com/visionscan/pos-backend/internal/inventory"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/logger"
)

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// Checkout settles the session and returns the bill.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID.String())
		}

		bill, err := svc.Execute(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, bill)
	}
}

// Restock adds stock back to a catalog entry.
func Restock(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithInventoryID(ctx, inventoryID.String())
		}

		item, err := svc.Restock(ctx, inventoryID, payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toInventoryItemResponse(item))
	}
}
