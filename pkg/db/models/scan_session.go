package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/visionscan/pos-backend/pkg/enums"
)

// ScanSession represents one customer transaction from start to checkout.
// Total and CompletedAt stay null until the session is checked out.
type ScanSession struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Status      enums.SessionStatus `gorm:"column:status;not null;default:'active'"`
	Total       *decimal.Decimal    `gorm:"column:total;type:numeric(12,2)"`
	Items       []ScanItem          `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	CompletedAt *time.Time          `gorm:"column:completed_at"`
}

// IsActive reports whether the session still accepts scans.
func (s *ScanSession) IsActive() bool {
	return s != nil && s.Status == enums.SessionStatusActive
}
