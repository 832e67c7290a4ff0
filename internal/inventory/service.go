package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/pkg/db/models"
	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog management and the restock path.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.InventoryItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, page pagination.Params) ([]models.InventoryItem, int64, error)
	Restock(ctx context.Context, id uuid.UUID, quantity int) (*models.InventoryItem, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// CreateInput captures a new catalog entry.
type CreateInput struct {
	SKU      string
	Name     string
	Category string
	Price    decimal.Decimal
	Stock    int
	Aliases  []string
}

// UpdateInput patches an existing entry; nil fields stay untouched.
// SKU is immutable once assigned and intentionally absent.
type UpdateInput struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	Stock    *int
	Aliases  *[]string
}

type service struct {
	tx   txRunner
	repo *Repository
}

// NewService builds the inventory service.
func NewService(tx txRunner, repo *Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.InventoryItem, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	item := &models.InventoryItem{
		SKU:      sku,
		Name:     name,
		Category: strings.TrimSpace(input.Category),
		Price:    input.Price,
		Stock:    input.Stock,
		Aliases:  trimAliases(input.Aliases),
		IsActive: true,
	}
	return s.repo.Create(ctx, item)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.InventoryItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		item.Name = name
	}
	if input.Category != nil {
		item.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		item.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		item.Stock = *input.Stock
	}
	if input.Aliases != nil {
		item.Aliases = trimAliases(*input.Aliases)
	}

	return s.repo.Update(ctx, item)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, page pagination.Params) ([]models.InventoryItem, int64, error) {
	return s.repo.List(ctx, page)
}

// Restock increments stock and records the movement atomically.
func (s *service) Restock(ctx context.Context, id uuid.UUID, quantity int) (*models.InventoryItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	}

	var item *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, adjustErr := s.repo.WithTx(tx).AdjustStock(ctx, id, quantity, enums.MovementReasonRestock, nil)
		if adjustErr != nil {
			return adjustErr
		}
		item = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Deactivate soft-retires an entry; movement history stays intact and
// the entry stops participating in matching.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	item.IsActive = false
	_, err = s.repo.Update(ctx, item)
	return err
}

func trimAliases(aliases []string) pq.StringArray {
	trimmed := make(pq.StringArray, 0, len(aliases))
	for _, alias := range aliases {
		if a := strings.TrimSpace(alias); a != "" {
			trimmed = append(trimmed, a)
		}
	}
	return trimmed
}
