package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/pkg/db"
	"github.com/visionscan/pos-backend/pkg/db/models"
	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/pagination"
)

// Repository wires together catalog and stock-movement persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(gdb *gorm.DB) *Repository {
	return &Repository{db: gdb}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a catalog entry by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// FindBySKU loads a catalog entry by its unique SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, err
	}
	return &item, nil
}

// List returns a page of catalog entries plus the total count.
func (r *Repository) List(ctx context.Context, page pagination.Params) ([]models.InventoryItem, int64, error) {
	page = pagination.Normalize(page)

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListActive returns every active catalog entry; this is the matching
// snapshot handed to the matcher and the detection vocabulary source.
func (r *Repository) ListActive(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new catalog entry.
func (r *Repository) Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists").
				WithDetails(map[string]any{"sku": item.SKU})
		}
		return nil, err
	}
	return item, nil
}

// Update persists the full entry row.
func (r *Repository) Update(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// AdjustStock applies a signed delta to an entry's stock and records
// the movement in the same unit of work. The stock check and mutation
// are a single conditional UPDATE so concurrent adjustments cannot race
// past the sufficiency check and drive stock negative. Callers needing
// atomicity with the movement row must invoke this on a transaction-
// bound repository.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason enums.MovementReason, sessionID *uuid.UUID) (*models.InventoryItem, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		item, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for "+item.Name).
			WithDetails(map[string]any{
				"inventory_id": id.String(),
				"item":         item.Name,
				"available":    item.Stock,
				"required":     -delta,
			})
	}

	movement := &models.StockMovement{
		ID:          uuid.New(),
		InventoryID: id,
		Delta:       delta,
		Reason:      reason,
		SessionID:   sessionID,
	}
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

// ListMovements returns the movement history for an entry, oldest first.
func (r *Repository) ListMovements(ctx context.Context, inventoryID uuid.UUID) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
