package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/visionscan/pos-backend/pkg/enums"
)

// StockMovement is an append-only audit record of a stock change.
// Rows are created only inside the same transaction as the stock
// mutation they describe and are never updated or deleted.
type StockMovement struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	InventoryID uuid.UUID            `gorm:"column:inventory_id;type:uuid;not null;index"`
	Delta       int                  `gorm:"column:delta;not null"`
	Reason      enums.MovementReason `gorm:"column:reason;not null"`
	SessionID   *uuid.UUID           `gorm:"column:session_id;type:uuid;index"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
