package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/internal/matching"
	"github.com/visionscan/pos-backend/internal/sessions"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/metrics"
)

const maxImagePayloadBytes = 5_000_000

// Proposal is one detection resolved against the catalog. Proposals are
// suggestions only; the client commits them with explicit scan calls.
type Proposal struct {
	InventoryID uuid.UUID       `json:"inventory_id"`
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Confidence  float64         `json:"confidence"`
	Quantity    int             `json:"quantity"`
	MatchedFrom string          `json:"matched_from"`
}

// Result is the outcome of one detection round.
type Result struct {
	Proposals        []Proposal `json:"results"`
	Unmatched        []string   `json:"unmatched_labels"`
	ProcessingTimeMS int64      `json:"processing_time_ms"`
	ModelUsed        string     `json:"model_used"`
}

type gateway interface {
	DetectProducts(ctx context.Context, imageBase64 string, vocabulary []string) ([]DetectedProduct, int64, error)
	Model() string
}

// Service runs image detection rounds against active sessions.
type Service interface {
	DetectFromImage(ctx context.Context, sessionID uuid.UUID, imageBase64 string) (*Result, error)
}

type service struct {
	gateway   gateway
	sessions  *sessions.Repository
	catalog   *inventory.Repository
	threshold float64
	metrics   *metrics.POSMetrics
}

// NewService builds the detection orchestrator.
func NewService(gw gateway, sessionRepo *sessions.Repository, catalog *inventory.Repository, threshold float64, m *metrics.POSMetrics) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("detection gateway required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0, 1], got %v", threshold)
	}
	return &service{gateway: gw, sessions: sessionRepo, catalog: catalog, threshold: threshold, metrics: m}, nil
}

func (s *service) DetectFromImage(ctx context.Context, sessionID uuid.UUID, imageBase64 string) (*Result, error) {
	if err := validateImagePayload(imageBase64); err != nil {
		return nil, err
	}

	session, err := s.sessions.FindSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeSessionNotActive, "session is not active").
			WithDetails(map[string]any{"session_id": sessionID.String(), "status": session.Status.String()})
	}

	catalog, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no inventory available for matching")
	}
	vocabulary := make([]string, 0, len(catalog))
	for i := range catalog {
		vocabulary = append(vocabulary, catalog[i].Name)
	}

	started := time.Now()
	detections, evalMS, err := s.gateway.DetectProducts(ctx, imageBase64, vocabulary)
	if err != nil {
		s.metrics.IncDetectionFailure(s.gateway.Model())
		return nil, err
	}
	s.metrics.ObserveDetection(s.gateway.Model(), time.Since(started))

	result := &Result{
		Proposals:        make([]Proposal, 0, len(detections)),
		ProcessingTimeMS: evalMS,
		ModelUsed:        s.gateway.Model(),
	}
	for _, detected := range detections {
		matched := matching.Match(detected.Name, catalog, s.threshold)
		if matched == nil {
			result.Unmatched = append(result.Unmatched, detected.Name)
			continue
		}
		result.Proposals = append(result.Proposals, Proposal{
			InventoryID: matched.ID,
			Name:        matched.Name,
			SKU:         matched.SKU,
			Confidence:  detected.Confidence,
			Quantity:    detected.Quantity,
			MatchedFrom: detected.Name,
		})
	}
	return result, nil
}

// validateImagePayload keeps obviously broken payloads away from the
// model: empty bodies, payloads past the 5MB cap, and bytes outside the
// standard base64 alphabet.
func validateImagePayload(imageBase64 string) error {
	if imageBase64 == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "image_base64 is required")
	}
	if len(imageBase64) > maxImagePayloadBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, "image too large (max 5MB)").
			WithDetails(map[string]any{"size": len(imageBase64), "limit": maxImagePayloadBytes})
	}
	for i := 0; i < len(imageBase64); i++ {
		c := imageBase64[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/', c == '=':
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid base64 encoding")
		}
	}
	return nil
}
