package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScanItem is one aggregated line in a scan session. InventoryID is
// null for detections that did not resolve against the catalog; such
// lines block checkout but are kept visible for manual reconciliation.
// At most one line exists per (session, resolved inventory id).
type ScanItem struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SessionID    uuid.UUID        `gorm:"column:session_id;type:uuid;not null;index"`
	InventoryID  *uuid.UUID       `gorm:"column:inventory_id;type:uuid;index"`
	DetectedName string           `gorm:"column:detected_name;not null"`
	Confidence   float64          `gorm:"column:confidence;not null;default:0"`
	Quantity     int              `gorm:"column:quantity;not null;default:1"`
	UnitPrice    *decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2)"`
	FirstSeen    time.Time        `gorm:"column:first_seen;not null"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// Resolved reports whether the line matched a catalog entry.
func (i *ScanItem) Resolved() bool {
	return i != nil && i.InventoryID != nil
}
