package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/visionscan/pos-backend/api/responses"
	"github.com/visionscan/pos-backend/api/validators"
	sessionsvc "github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/db/models"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/logger"
)

type sessionResponse struct {
	ID          uuid.UUID          `json:"id"`
	Status      string             `json:"status"`
	Total       *decimal.Decimal   `json:"total"`
	Items       []scanItemResponse `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at"`
}

type scanItemResponse struct {
	ID           uuid.UUID        `json:"id"`
	InventoryID  *uuid.UUID       `json:"inventory_id"`
	DetectedName string           `json:"detected_name"`
	Confidence   float64          `json:"confidence"`
	Quantity     int              `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	FirstSeen    time.Time        `json:"first_seen"`
}

type sessionItemsResponse struct {
	Items      []scanItemResponse `json:"items"`
	TotalCount int                `json:"total_count"`
	Unresolved int                `json:"unresolved_count"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
}

func toSessionResponse(session *models.ScanSession) sessionResponse {
	return sessionResponse{
		ID:          session.ID,
		Status:      session.Status.String(),
		Total:       session.Total,
		Items:       toScanItemResponses(session.Items),
		CreatedAt:   session.CreatedAt,
		CompletedAt: session.CompletedAt,
	}
}

func toScanItemResponses(items []models.ScanItem) []scanItemResponse {
	out := make([]scanItemResponse, 0, len(items))
	for i := range items {
		out = append(out, scanItemResponse{
			ID:           items[i].ID,
			InventoryID:  items[i].InventoryID,
			DetectedName: items[i].DetectedName,
			Confidence:   items[i].Confidence,
			Quantity:     items[i].Quantity,
			UnitPrice:    items[i].UnitPrice,
			FirstSeen:    items[i].FirstSeen,
		})
	}
	return out
}

// StartSession opens a new scan session.
func StartSession(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
			return
		}

		session, err := svc.Start(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toSessionResponse(session))
	}
}

// GetSession returns a session with its aggregated lines.
func GetSession(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
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

		session, err := svc.Get(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toSessionResponse(session))
	}
}

// ListSessionItems returns the session's lines with the running subtotal.
func ListSessionItems(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session service unavailable"))
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

		list, err := svc.ListItems(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionItemsResponse{
			Items:      toScanItemResponses(list.Items),
			TotalCount: len(list.Items),
			Unresolved: list.Unresolved,
			Subtotal:   list.Subtotal,
		})
	}
}
