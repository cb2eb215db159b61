package promotions

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

type stubPromotionRepo struct {
	rows       []models.Promotion
	listErr    error
	priorCount int64
	priorErr   error
	priorCalls int
}

func (s *stubPromotionRepo) ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.Promotion, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.rows, nil
}

func (s *stubPromotionRepo) CountPriorOrders(ctx context.Context, storeID, customerID uuid.UUID) (int64, error) {
	s.priorCalls++
	return s.priorCount, s.priorErr
}

type stubUsage struct {
	counts UsageCounts
	err    error
}

func (s stubUsage) Snapshot(ctx context.Context, promos []Promotion, customerID *uuid.UUID) (UsageCounts, error) {
	return s.counts, s.err
}

var fixedNow = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo promotionRepository, usage usageReader, buf *bytes.Buffer) Service {
	t.Helper()
	if buf == nil {
		buf = &bytes.Buffer{}
	}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Usage:    usage,
		Clock:    func() time.Time { return fixedNow },
		Location: time.UTC,
		Logger:   logger.New(logger.Options{ServiceName: "promotions-test", Output: buf}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresRepoAndLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: &bytes.Buffer{}})}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := NewService(ServiceParams{Repo: &stubPromotionRepo{}}); err == nil {
		t.Fatal("expected error without logger")
	}
}

func TestServiceBestForOrder(t *testing.T) {
	pct := baseRow(enums.PromotionTypePercentage)
	pct.DiscountPercentage = nullDec("10")
	fixed := baseRow(enums.PromotionTypeFixedAmount)
	fixed.DiscountAmount = nullDec("8")
	broken := baseRow(enums.PromotionTypeBOGO)

	buf := &bytes.Buffer{}
	svc := newTestService(t, &stubPromotionRepo{rows: []models.Promotion{pct, fixed, broken}}, nil, buf)

	order := Order{
		StoreID:      testStoreID,
		Items:        []CartItem{item("25", 2), item("10", 1)},
		Subtotal:     dec("1"),
		DeliveryType: enums.DeliveryTypeDelivery,
	}
	eval, err := svc.BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("best for order: %v", err)
	}
	if !eval.Order.Subtotal.Equal(dec("60")) {
		t.Fatalf("expected subtotal recomputed from items, got %s", eval.Order.Subtotal)
	}
	if eval.Best == nil || eval.Best.Promotion.ID != fixed.ID || !eval.Best.Discount.Equal(dec("8")) {
		t.Fatalf("expected fixed promotion to win, got %+v", eval.Best)
	}
	if len(eval.Decisions) != 2 {
		t.Fatalf("expected decisions for the two loadable promotions, got %d", len(eval.Decisions))
	}
	if !strings.Contains(buf.String(), RejectInvalidBOGO) {
		t.Fatalf("expected rejected promotion to be logged, got %s", buf.String())
	}
}

func TestServiceBestForOrderFirstOrderEvidence(t *testing.T) {
	customer := uuid.New()
	first := baseRow(enums.PromotionTypeFirstOrder)
	first.DiscountAmount = nullDec("15")

	order := Order{
		StoreID:      testStoreID,
		CustomerID:   &customer,
		Items:        []CartItem{item("50", 1)},
		DeliveryType: enums.DeliveryTypeDelivery,
	}

	repo := &stubPromotionRepo{rows: []models.Promotion{first}}
	eval, err := newTestService(t, repo, nil, nil).BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("best for order: %v", err)
	}
	if eval.Best == nil || !eval.Best.Discount.Equal(dec("15")) {
		t.Fatalf("expected first order discount for a new customer, got %+v", eval.Best)
	}

	repo = &stubPromotionRepo{rows: []models.Promotion{first}, priorCount: 3}
	eval, err = newTestService(t, repo, nil, nil).BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("best for order: %v", err)
	}
	if eval.Best != nil || eval.Decisions[0].Reason != ReasonFirstOrder {
		t.Fatalf("returning customers must not get first order promotions, got %+v", eval.Decisions)
	}

	repo = &stubPromotionRepo{rows: []models.Promotion{first}, priorErr: errors.New("db timeout")}
	eval, err = newTestService(t, repo, nil, nil).BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("history failures should degrade, got %v", err)
	}
	if eval.Best != nil {
		t.Fatalf("unknown history must not grant first order promotions")
	}

	order.CustomerID = nil
	repo = &stubPromotionRepo{rows: []models.Promotion{first}}
	if _, err := newTestService(t, repo, nil, nil).BestForOrder(context.Background(), order); err != nil {
		t.Fatalf("best for order: %v", err)
	}
	if repo.priorCalls != 0 {
		t.Fatalf("anonymous orders should not query history")
	}
}

func TestServiceBestForOrderUsageCaps(t *testing.T) {
	capped := baseRow(enums.PromotionTypeFixedAmount)
	capped.DiscountAmount = nullDec("20")
	capped.MaxUses = intPtr(5)
	fallback := baseRow(enums.PromotionTypeFixedAmount)
	fallback.DiscountAmount = nullDec("3")

	order := Order{StoreID: testStoreID, Items: []CartItem{item("50", 1)}, DeliveryType: enums.DeliveryTypePickup}
	repo := &stubPromotionRepo{rows: []models.Promotion{capped, fallback}}

	usage := stubUsage{counts: UsageCounts{Global: map[uuid.UUID]int64{capped.ID: 5}}}
	eval, err := newTestService(t, repo, usage, nil).BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("best for order: %v", err)
	}
	if eval.Best == nil || eval.Best.Promotion.ID != fallback.ID {
		t.Fatalf("expected capped promotion to be exhausted, got %+v", eval.Best)
	}

	eval, err = newTestService(t, repo, stubUsage{err: errors.New("redis down")}, nil).BestForOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("usage failures should degrade, got %v", err)
	}
	if eval.Best == nil || eval.Best.Promotion.ID != fallback.ID || eval.Decisions[0].Reason != ReasonUsageUnavailable {
		t.Fatalf("expected capped promotion to be skipped when usage is unknown, got %+v", eval.Decisions)
	}
}

func TestServiceBestForOrderValidation(t *testing.T) {
	svc := newTestService(t, &stubPromotionRepo{}, nil, nil)
	valid := Order{StoreID: testStoreID, Items: []CartItem{item("10", 1)}, DeliveryType: enums.DeliveryTypeDelivery}

	tests := map[string]func(o *Order){
		"missing store":     func(o *Order) { o.StoreID = uuid.Nil },
		"bad delivery type": func(o *Order) { o.DeliveryType = "drone" },
		"negative fee":      func(o *Order) { o.DeliveryFee = dec("-1") },
		"no items":          func(o *Order) { o.Items = nil },
		"zero quantity":     func(o *Order) { o.Items = []CartItem{item("10", 0)} },
	}
	for name, mutate := range tests {
		order := valid
		mutate(&order)
		_, err := svc.BestForOrder(context.Background(), order)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestServiceBestForOrderDependencyError(t *testing.T) {
	svc := newTestService(t, &stubPromotionRepo{listErr: errors.New("db down")}, nil, nil)
	order := Order{StoreID: testStoreID, Items: []CartItem{item("10", 1)}, DeliveryType: enums.DeliveryTypeDelivery}
	_, err := svc.BestForOrder(context.Background(), order)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServicePriceProduct(t *testing.T) {
	pct := baseRow(enums.PromotionTypePercentage)
	pct.DiscountPercentage = nullDec("25")
	svc := newTestService(t, &stubPromotionRepo{rows: []models.Promotion{pct}}, nil, nil)

	p := product("20", "18")
	got, err := svc.PriceProduct(context.Background(), testStoreID, nil, p, enums.DeliveryTypeDelivery)
	if err != nil {
		t.Fatalf("price product: %v", err)
	}
	if got.Source != enums.DiscountSourcePromotion || !got.FinalPrice.Equal(dec("15")) {
		t.Fatalf("expected promotion price 15, got %+v", got)
	}

	bad := product("-1", "")
	if _, err := svc.PriceProduct(context.Background(), testStoreID, nil, bad, enums.DeliveryTypeDelivery); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
	if _, err := svc.PriceProduct(context.Background(), testStoreID, nil, p, "drone"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for delivery type, got %v", err)
	}
}
