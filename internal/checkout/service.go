package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/db/models"
	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BillLine is one finalized line on the receipt.
type BillLine struct {
	InventoryID uuid.UUID       `json:"inventory_id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Bill is the receipt produced by a successful checkout.
type Bill struct {
	SessionID   uuid.UUID       `json:"session_id"`
	Lines       []BillLine      `json:"lines"`
	Total       decimal.Decimal `json:"total"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Service finalizes sessions into bills.
type Service interface {
	Execute(ctx context.Context, sessionID uuid.UUID) (*Bill, error)
}

type service struct {
	tx       txRunner
	sessions *sessions.Repository
	catalog  *inventory.Repository
	metrics  *metrics.POSMetrics
}

// NewService builds the checkout engine.
func NewService(tx txRunner, sessionRepo *sessions.Repository, catalog *inventory.Repository, m *metrics.POSMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, sessions: sessionRepo, catalog: catalog, metrics: m}, nil
}

// Execute settles the session in a single transaction. Every line must
// be resolved and every stock decrement must succeed or nothing is
// written: the completed transition, the decrements and the movement
// rows all commit together.
func (s *service) Execute(ctx context.Context, sessionID uuid.UUID) (*Bill, error) {
	var bill *Bill
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sessionRepo := s.sessions.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		session, err := sessionRepo.FindSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !session.IsActive() {
			return pkgerrors.New(pkgerrors.CodeSessionNotActive, "session is not active").
				WithDetails(map[string]any{"session_id": sessionID.String(), "status": session.Status.String()})
		}

		items, err := sessionRepo.ListItems(ctx, sessionID)
		if err != nil {
			return err
		}
		if labels := unresolvedLabels(items); len(labels) > 0 {
			return pkgerrors.New(pkgerrors.CodeUnresolvedItems, "session has unresolved items").
				WithDetails(map[string]any{"session_id": sessionID.String(), "labels": labels})
		}

		now := time.Now().UTC()
		lines := make([]BillLine, 0, len(items))
		total := decimal.Zero
		for i := range items {
			line, err := settleLine(ctx, catalogRepo, sessionID, &items[i])
			if err != nil {
				return err
			}
			lines = append(lines, *line)
			total = total.Add(line.LineTotal)
		}

		if err := sessionRepo.MarkCompleted(ctx, sessionID, total, now); err != nil {
			return err
		}

		bill = &Bill{SessionID: sessionID, Lines: lines, Total: total, CompletedAt: now}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout(checkoutOutcome(err))
		return nil, err
	}
	s.metrics.IncCheckout("completed")
	return bill, nil
}

// settleLine decrements stock for one resolved line and prices it from
// the scan-time snapshot.
func settleLine(ctx context.Context, catalog *inventory.Repository, sessionID uuid.UUID, item *models.ScanItem) (*BillLine, error) {
	updated, err := catalog.AdjustStock(ctx, *item.InventoryID, -item.Quantity, enums.MovementReasonSale, &sessionID)
	if err != nil {
		return nil, err
	}

	unitPrice := updated.Price
	if item.UnitPrice != nil {
		unitPrice = *item.UnitPrice
	}
	return &BillLine{
		InventoryID: updated.ID,
		SKU:         updated.SKU,
		Name:        updated.Name,
		Quantity:    item.Quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}, nil
}

func unresolvedLabels(items []models.ScanItem) []string {
	var labels []string
	for i := range items {
		if !items[i].Resolved() {
			labels = append(labels, items[i].DetectedName)
		}
	}
	return labels
}

func checkoutOutcome(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
		return "insufficient_stock"
	case pkgerrors.IsCode(err, pkgerrors.CodeUnresolvedItems):
		return "unresolved_items"
	case pkgerrors.IsCode(err, pkgerrors.CodeSessionNotActive):
		return "session_not_active"
	default:
		return "failed"
	}
}
