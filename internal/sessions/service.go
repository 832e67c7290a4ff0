package sessions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/internal/matching"
	"github.com/visionscan/pos-backend/pkg/db/models"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/metrics"
)

// ScanInput is one detected label to fold into a session.
type ScanInput struct {
	Label      string
	Confidence float64
	Quantity   int
}

// ItemList is the aggregated view of a session's lines.
type ItemList struct {
	Items      []models.ScanItem
	Subtotal   decimal.Decimal
	Unresolved int
}

// Service aggregates scans into session lines.
type Service interface {
	Start(ctx context.Context) (*models.ScanSession, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ScanSession, error)
	Scan(ctx context.Context, sessionID uuid.UUID, input ScanInput) (*models.ScanItem, error)
	ScanBatch(ctx context.Context, sessionID uuid.UUID, inputs []ScanInput) ([]models.ScanItem, error)
	ListItems(ctx context.Context, sessionID uuid.UUID) (*ItemList, error)
}

type service struct {
	repo      *Repository
	catalog   *inventory.Repository
	threshold float64
	metrics   *metrics.POSMetrics

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService builds the session aggregator. threshold is the minimum
// fuzzy similarity for a label to resolve against the catalog.
func NewService(repo *Repository, catalog *inventory.Repository, threshold float64, m *metrics.POSMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0, 1], got %v", threshold)
	}
	return &service{
		repo:      repo,
		catalog:   catalog,
		threshold: threshold,
		metrics:   m,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

func (s *service) Start(ctx context.Context) (*models.ScanSession, error) {
	return s.repo.CreateSession(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ScanSession, error) {
	return s.repo.FindSessionWithItems(ctx, id)
}

// sessionLock returns the mutex serializing writes for one session.
// Locks are never reclaimed; sessions are short-lived and the table
// stays small for the lifetime of the process.
func (s *service) sessionLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *service) Scan(ctx context.Context, sessionID uuid.UUID, input ScanInput) (*models.ScanItem, error) {
	input, err := normalizeInput(input)
	if err != nil {
		return nil, err
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return s.applyScan(ctx, sessionID, input)
}

func (s *service) ScanBatch(ctx context.Context, sessionID uuid.UUID, inputs []ScanInput) ([]models.ScanItem, error) {
	normalized := make([]ScanInput, 0, len(inputs))
	for _, input := range inputs {
		in, err := normalizeInput(input)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, in)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	items := make([]models.ScanItem, 0, len(normalized))
	for _, input := range normalized {
		item, err := s.applyScan(ctx, sessionID, input)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// applyScan folds one label into the session. Callers must hold the
// session lock.
func (s *service) applyScan(ctx context.Context, sessionID uuid.UUID, input ScanInput) (*models.ScanItem, error) {
	session, err := s.repo.FindSession(ctx, sessionID)
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
	matched := matching.Match(input.Label, catalog, s.threshold)

	if matched == nil {
		// Unresolved labels always open a new line: without a catalog
		// identity there is nothing safe to merge on.
		item, err := s.repo.CreateItem(ctx, &models.ScanItem{
			SessionID:    sessionID,
			DetectedName: input.Label,
			Confidence:   input.Confidence,
			Quantity:     input.Quantity,
			FirstSeen:    time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncScan("unmatched")
		return item, nil
	}

	existing, err := s.repo.FindItemByInventory(ctx, sessionID, matched.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Quantity += input.Quantity
		if input.Confidence > existing.Confidence {
			existing.Confidence = input.Confidence
		}
		item, err := s.repo.UpdateItem(ctx, existing)
		if err != nil {
			return nil, err
		}
		s.metrics.IncScan("merged")
		return item, nil
	}

	price := matched.Price
	inventoryID := matched.ID
	item, err := s.repo.CreateItem(ctx, &models.ScanItem{
		SessionID:    sessionID,
		InventoryID:  &inventoryID,
		DetectedName: input.Label,
		Confidence:   input.Confidence,
		Quantity:     input.Quantity,
		UnitPrice:    &price,
		FirstSeen:    time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncScan("matched")
	return item, nil
}

func (s *service) ListItems(ctx context.Context, sessionID uuid.UUID) (*ItemList, error) {
	if _, err := s.repo.FindSession(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	unresolved := 0
	for i := range items {
		if !items[i].Resolved() {
			unresolved++
			continue
		}
		if items[i].UnitPrice != nil {
			line := items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
			subtotal = subtotal.Add(line)
		}
	}
	return &ItemList{Items: items, Subtotal: subtotal, Unresolved: unresolved}, nil
}

func normalizeInput(input ScanInput) (ScanInput, error) {
	input.Label = strings.TrimSpace(input.Label)
	if input.Label == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "detected_name is required")
	}
	if input.Confidence < 0 {
		input.Confidence = 0
	}
	if input.Confidence > 1 {
		input.Confidence = 1
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}
	return input, nil
}
