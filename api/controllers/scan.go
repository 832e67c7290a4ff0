package controllers

import (
	"net/http"

	"github.com/visionscan/pos-backend/api/responses"
	"github.com/visionscan/pos-backend/api/validators"
	detectionsvc "github.com/visionscan/pos-backend/internal/detection"
	sessionsvc "github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/db/models"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/logger"
)

type scanRequest struct {
	DetectedName string   `json:"detected_name" validate:"required,min=1"`
	Confidence   *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	Quantity     *int     `json:"quantity" validate:"omitempty,min=1"`
}

type detectFromImageRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}

// ScanItem folds one detected label into the session.
func ScanItem(svc sessionsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload scanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sessionsvc.ScanInput{Label: payload.DetectedName}
		if payload.Confidence != nil {
			input.Confidence = *payload.Confidence
		}
		if payload.Quantity != nil {
			input.Quantity = *payload.Quantity
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID.String())
		}

		item, err := svc.Scan(ctx, sessionID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toScanItemResponses([]models.ScanItem{*item})[0])
	}
}

// DetectFromImage runs a vision-model detection round and returns
// catalog proposals without committing any scan lines.
func DetectFromImage(svc detectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "detection service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload detectFromImageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID.String())
		}

		result, err := svc.DetectFromImage(ctx, sessionID, payload.ImageBase64)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
