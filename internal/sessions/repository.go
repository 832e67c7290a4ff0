package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/pkg/db/models"
	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
)

// Repository persists scan sessions and their aggregated lines.
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

// CreateSession inserts a fresh active session.
func (r *Repository) CreateSession(ctx context.Context) (*models.ScanSession, error) {
	session := &models.ScanSession{
		ID:     uuid.New(),
		Status: enums.SessionStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindSession loads a session without its lines.
func (r *Repository) FindSession(ctx context.Context, id uuid.UUID) (*models.ScanSession, error) {
	var session models.ScanSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, err
	}
	return &session, nil
}

// FindSessionWithItems loads a session together with its lines in scan order.
func (r *Repository) FindSessionWithItems(ctx context.Context, id uuid.UUID) (*models.ScanSession, error) {
	var session models.ScanSession
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("first_seen ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, err
	}
	return &session, nil
}

// UpdateSession persists the session row.
func (r *Repository) UpdateSession(ctx context.Context, session *models.ScanSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// MarkCompleted transitions the session from active to completed,
// recording the final total. The guarded WHERE clause makes the
// transition single-shot: a second caller sees zero rows affected.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, total decimal.Decimal, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.ScanSession{}).
		Where("id = ? AND status = ?", id, enums.SessionStatusActive).
		Updates(map[string]any{
			"status":       enums.SessionStatusCompleted,
			"total":        total,
			"completed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindSession(ctx, id); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeSessionNotActive, "session is not active").
			WithDetails(map[string]any{"session_id": id.String()})
	}
	return nil
}

// ListItems returns the session's lines in scan order.
func (r *Repository) ListItems(ctx context.Context, sessionID uuid.UUID) ([]models.ScanItem, error) {
	var items []models.ScanItem
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("first_seen ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindItemByInventory returns the session's line for a resolved catalog
// entry, or nil when the entry has not been scanned yet.
func (r *Repository) FindItemByInventory(ctx context.Context, sessionID, inventoryID uuid.UUID) (*models.ScanItem, error) {
	var item models.ScanItem
	err := r.db.WithContext(ctx).
		First(&item, "session_id = ? AND inventory_id = ?", sessionID, inventoryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a new scan line.
func (r *Repository) CreateItem(ctx context.Context, item *models.ScanItem) (*models.ScanItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem persists the line row.
func (r *Repository) UpdateItem(ctx context.Context, item *models.ScanItem) (*models.ScanItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}
