package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	svc, err := NewService(testTxRunner{db: gdb}, repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo
}

func TestServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{name: "missing sku", input: CreateInput{Name: "Apple", Price: decimal.NewFromInt(1)}},
		{name: "missing name", input: CreateInput{SKU: "A1", Price: decimal.NewFromInt(1)}},
		{name: "negative price", input: CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(-1)}},
		{name: "negative stock", input: CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(1), Stock: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestServiceCreateTrimsAliases(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	item, err := svc.Create(context.Background(), CreateInput{
		SKU:     " APPLE001 ",
		Name:    " Red Apple ",
		Price:   decimal.NewFromFloat(2.00),
		Stock:   5,
		Aliases: []string{" apple ", "", "fuji apple"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.SKU != "APPLE001" || item.Name != "Red Apple" {
		t.Fatalf("expected trimmed fields, got %q/%q", item.SKU, item.Name)
	}
	if len(item.Aliases) != 2 {
		t.Fatalf("expected 2 aliases, got %v", item.Aliases)
	}
}

func TestServiceUpdatePatchesFields(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(1), Stock: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newName := "Green Apple"
	newPrice := decimal.NewFromFloat(1.50)
	updated, err := svc.Update(ctx, item.ID, UpdateInput{Name: &newName, Price: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Green Apple" {
		t.Fatalf("name not patched: %q", updated.Name)
	}
	if !updated.Price.Equal(newPrice) {
		t.Fatalf("price not patched: %s", updated.Price)
	}
	if updated.SKU != "A1" || updated.Stock != 3 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
}

func TestServiceUpdateUnknownID(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	name := "X"
	if _, err := svc.Update(context.Background(), uuid.New(), UpdateInput{Name: &name}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceRestock(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(1), Stock: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Restock(ctx, item.ID, 7)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if updated.Stock != 10 {
		t.Fatalf("expected stock 10, got %d", updated.Stock)
	}

	movements, err := repo.ListMovements(ctx, item.ID)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(movements))
	}
	if movements[0].Delta != 7 || movements[0].Reason != enums.MovementReasonRestock {
		t.Fatalf("unexpected movement %+v", movements[0])
	}
	if movements[0].SessionID != nil {
		t.Fatalf("restock movements must not reference a session")
	}
}

func TestServiceRestockRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(1), Stock: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, qty := range []int{0, -5} {
		if _, err := svc.Restock(ctx, item.ID, qty); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("quantity %d: expected validation error, got %v", qty, err)
		}
	}

	after, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Stock != 3 {
		t.Fatalf("stock changed on rejected restock: %d", after.Stock)
	}
}

func TestServiceDeactivate(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	item, err := svc.Create(ctx, CreateInput{SKU: "A1", Name: "Apple", Price: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Deactivate(ctx, item.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// Entry remains loadable for history but leaves the matching snapshot.
	after, err := repo.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.IsActive {
		t.Fatal("expected item to be inactive")
	}
	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("deactivated item still in matching snapshot")
	}
}
