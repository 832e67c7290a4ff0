package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/visionscan/pos-backend/api/responses"
	"github.com/visionscan/pos-backend/api/validators"
	inventorysvc "github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/pkg/db/models"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
	"github.com/visionscan/pos-backend/pkg/logger"
	"github.com/visionscan/pos-backend/pkg/pagination"
)

type inventoryItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Aliases   []string        `json:"aliases"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type inventoryListResponse struct {
	Items      []inventoryItemResponse `json:"items"`
	TotalCount int64                   `json:"total_count"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

type createInventoryRequest struct {
	SKU      string          `json:"sku" validate:"required,min=1"`
	Name     string          `json:"name" validate:"required,min=1"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price" validate:"required"`
	Stock    int             `json:"stock" validate:"min=0"`
	Aliases  []string        `json:"aliases" validate:"omitempty,dive,min=1"`
}

type updateInventoryRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1"`
	Category *string          `json:"category"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock" validate:"omitempty,min=0"`
	Aliases  *[]string        `json:"aliases" validate:"omitempty,dive,min=1"`
}

func toInventoryItemResponse(item *models.InventoryItem) inventoryItemResponse {
	aliases := []string(item.Aliases)
	if aliases == nil {
		aliases = []string{}
	}
	return inventoryItemResponse{
		ID:        item.ID,
		SKU:       item.SKU,
		Name:      item.Name,
		Category:  item.Category,
		Price:     item.Price,
		Stock:     item.Stock,
		Aliases:   aliases,
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// ListInventory returns the catalog one page at a time.
func ListInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page := pagination.Params{Limit: limit, Offset: offset}
		items, total, err := svc.List(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]inventoryItemResponse, 0, len(items))
		for i := range items {
			out = append(out, toInventoryItemResponse(&items[i]))
		}
		responses.WriteSuccess(w, inventoryListResponse{
			Items:      out,
			TotalCount: total,
			Limit:      page.Limit,
			Offset:     page.Offset,
		})
	}
}

// CreateInventory adds a catalog entry.
func CreateInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload createInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), inventorysvc.CreateInput{
			SKU:      payload.SKU,
			Name:     payload.Name,
			Category: payload.Category,
			Price:    payload.Price,
			Stock:    payload.Stock,
			Aliases:  payload.Aliases,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toInventoryItemResponse(item))
	}
}

// GetInventory returns one catalog entry.
func GetInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), inventoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toInventoryItemResponse(item))
	}
}

// UpdateInventory patches a catalog entry; SKU is immutable.
func UpdateInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateInventoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithInventoryID(ctx, inventoryID.String())
		}

		item, err := svc.Update(ctx, inventoryID, inventorysvc.UpdateInput{
			Name:     payload.Name,
			Category: payload.Category,
			Price:    payload.Price,
			Stock:    payload.Stock,
			Aliases:  payload.Aliases,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toInventoryItemResponse(item))
	}
}

// DeactivateInventory soft-deletes a catalog entry so it stops matching
// while its movement history stays intact.
func DeactivateInventory(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		inventoryID, err := validators.ParseUUIDParam(r, "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithInventoryID(ctx, inventoryID.String())
		}

		if err := svc.Deactivate(ctx, inventoryID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
