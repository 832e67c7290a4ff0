package detection

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/visionscan/pos-backend/internal/inventory"
	"github.com/visionscan/pos-backend/internal/sessions"
	"github.com/visionscan/pos-backend/pkg/db/models"
	"github.com/visionscan/pos-backend/pkg/enums"
	pkgerrors "github.com/visionscan/pos-backend/pkg/errors"
)

type stubGateway struct {
	detections []DetectedProduct
	evalMS     int64
	err        error

	gotImage      string
	gotVocabulary []string
}

func (g *stubGateway) DetectProducts(ctx context.Context, imageBase64 string, vocabulary []string) ([]DetectedProduct, int64, error) {
	g.gotImage = imageBase64
	g.gotVocabulary = vocabulary
	if g.err != nil {
		return nil, 0, g.err
	}
	return g.detections, g.evalMS, nil
}

func (g *stubGateway) Model() string { return "llava-phi3" }

type serviceFixture struct {
	svc      Service
	gw       *stubGateway
	sessRepo *sessions.Repository
	catalog  *inventory.Repository
}

func newServiceFixture(t *testing.T, gw *stubGateway) *serviceFixture {
	t.Helper()
	dsn := "file:detection_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.InventoryItem{}, &models.StockMovement{}, &models.ScanSession{}, &models.ScanItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessRepo := sessions.NewRepository(gdb)
	catalog := inventory.NewRepository(gdb)
	svc, err := NewService(gw, sessRepo, catalog, 0.6, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &serviceFixture{svc: svc, gw: gw, sessRepo: sessRepo, catalog: catalog}
}

func (f *serviceFixture) seedItem(t *testing.T, sku, name string, aliases ...string) *models.InventoryItem {
	t.Helper()
	item, err := f.catalog.Create(context.Background(), &models.InventoryItem{
		SKU:      sku,
		Name:     name,
		Price:    decimal.NewFromFloat(1.00),
		Stock:    10,
		Aliases:  pq.StringArray(aliases),
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func (f *serviceFixture) startSession(t *testing.T) *models.ScanSession {
	t.Helper()
	session, err := f.sessRepo.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

func TestDetectFromImageProposals(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{
		detections: []DetectedProduct{
			{Name: "red apple", Confidence: 0.92, Quantity: 2},
			{Name: "garden gnome", Confidence: 0.88, Quantity: 1},
		},
		evalMS: 1800,
	}
	f := newServiceFixture(t, gw)
	ctx := context.Background()

	apple := f.seedItem(t, "APPLE001", "Red Apple")
	f.seedItem(t, "COLA001", "Cola Can 330ml")
	session := f.startSession(t)

	result, err := f.svc.DetectFromImage(ctx, session.ID, "aW1hZ2U=")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}

	if f.gw.gotImage != "aW1hZ2U=" {
		t.Fatal("image not forwarded to gateway")
	}
	if len(f.gw.gotVocabulary) != 2 {
		t.Fatalf("expected active catalog names as vocabulary, got %v", f.gw.gotVocabulary)
	}

	if len(result.Proposals) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(result.Proposals))
	}
	proposal := result.Proposals[0]
	if proposal.InventoryID != apple.ID || proposal.SKU != "APPLE001" {
		t.Fatalf("unexpected proposal %+v", proposal)
	}
	if proposal.MatchedFrom != "red apple" || proposal.Confidence != 0.92 || proposal.Quantity != 2 {
		t.Fatalf("unexpected proposal %+v", proposal)
	}

	if len(result.Unmatched) != 1 || result.Unmatched[0] != "garden gnome" {
		t.Fatalf("expected unmatched label reported, got %v", result.Unmatched)
	}
	if result.ProcessingTimeMS != 1800 {
		t.Fatalf("expected eval time forwarded, got %d", result.ProcessingTimeMS)
	}
	if result.ModelUsed != "llava-phi3" {
		t.Fatalf("unexpected model %q", result.ModelUsed)
	}

	// Proposals never touch session lines; committing is a separate call.
	items, err := f.sessRepo.ListItems(ctx, session.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no scan lines written, got %d", len(items))
	}
}

func TestDetectFromImageValidatesPayload(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &stubGateway{})
	session := f.startSession(t)
	f.seedItem(t, "APPLE001", "Red Apple")
	ctx := context.Background()

	tests := []struct {
		name  string
		image string
	}{
		{name: "empty", image: ""},
		{name: "not base64", image: "not base64!!"},
		{name: "too large", image: strings.Repeat("A", maxImagePayloadBytes+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.DetectFromImage(ctx, session.ID, tc.image)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDetectFromImageSessionChecks(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &stubGateway{})
	ctx := context.Background()
	f.seedItem(t, "APPLE001", "Red Apple")

	if _, err := f.svc.DetectFromImage(ctx, uuid.New(), "aW1hZ2U="); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	session := f.startSession(t)
	session.Status = enums.SessionStatusCompleted
	if err := f.sessRepo.UpdateSession(ctx, session); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if _, err := f.svc.DetectFromImage(ctx, session.ID, "aW1hZ2U="); !pkgerrors.IsCode(err, pkgerrors.CodeSessionNotActive) {
		t.Fatalf("expected session not active, got %v", err)
	}
}

func TestDetectFromImageEmptyCatalog(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t, &stubGateway{})
	session := f.startSession(t)

	if _, err := f.svc.DetectFromImage(context.Background(), session.ID, "aW1hZ2U="); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty catalog, got %v", err)
	}
}

func TestDetectFromImageGatewayFailure(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{err: pkgerrors.New(pkgerrors.CodeDependency, "connection refused")}
	f := newServiceFixture(t, gw)
	session := f.startSession(t)
	f.seedItem(t, "APPLE001", "Red Apple")

	if _, err := f.svc.DetectFromImage(context.Background(), session.ID, "aW1hZ2U="); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
