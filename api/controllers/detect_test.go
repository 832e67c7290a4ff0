package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	detectionsvc "github.com/visionscan/pos-backend/internal/detection"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
)

type stubDetectionService struct {
	result *detectionsvc.Result
	err    error

	gotSessionID uuid.UUID
	gotImage     string
}

func (s *stubDetectionService) DetectFromImage(ctx context.Context, sessionID uuid.UUID, imageBase64 string) (*detectionsvc.Result, error) {
	s.gotSessionID = sessionID
	s.gotImage = imageBase64
	return s.result, s.err
}

func TestDetectFromImageSuccess(t *testing.T) {
	inventoryID := uuid.New()
	svc := &stubDetectionService{
		result: &detectionsvc.Result{
			Proposals: []detectionsvc.Proposal{
				{
					InventoryID: inventoryID,
					Name:        "Red Apple",
					SKU:         "APPLE001",
					Confidence:  0.91,
					Quantity:    2,
					MatchedFrom: "red apple",
				},
			},
			Unmatched:        []string{"garden gnome"},
			ProcessingTimeMS: 1800,
			ModelUsed:        "llava-phi3",
		},
	}
	handler := DetectFromImage(svc, nil)

	sessionID := uuid.New()
	body := bytes.NewBufferString(`{"image_base64":"aGVsbG8="}`)
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/scan/detect-from-image", body), "sessionId", sessionID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotSessionID != sessionID {
		t.Fatalf("session id not forwarded")
	}
	if svc.gotImage != "aGVsbG8=" {
		t.Fatalf("image payload not forwarded: %q", svc.gotImage)
	}

	var envelope struct {
		Data detectionsvc.Result `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Proposals) != 1 || envelope.Data.Proposals[0].InventoryID != inventoryID {
		t.Fatalf("unexpected proposals %+v", envelope.Data.Proposals)
	}
	if len(envelope.Data.Unmatched) != 1 || envelope.Data.Unmatched[0] != "garden gnome" {
		t.Fatalf("unexpected unmatched %+v", envelope.Data.Unmatched)
	}
	if envelope.Data.ModelUsed != "llava-phi3" {
		t.Fatalf("unexpected model %q", envelope.Data.ModelUsed)
	}
}

func TestDetectFromImageRequiresImage(t *testing.T) {
	handler := DetectFromImage(&stubDetectionService{}, nil)

	body := bytes.NewBufferString(`{}`)
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/scan/detect-from-image", body), "sessionId", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetectFromImageModelUnavailable(t *testing.T) {
	svc := &stubDetectionService{err: pkgerrors.New(pkgerrors.CodeDependency, "vision model unavailable")}
	handler := DetectFromImage(svc, nil)

	body := bytes.NewBufferString(`{"image_base64":"aGVsbG8="}`)
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/x/scan/detect-from-image", body), "sessionId", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
