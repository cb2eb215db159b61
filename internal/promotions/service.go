package promotions

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

type promotionRepository interface {
	ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.Promotion, error)
	CountPriorOrders(ctx context.Context, storeID, customerID uuid.UUID) (int64, error)
}

type usageReader interface {
	Snapshot(ctx context.Context, promos []Promotion, customerID *uuid.UUID) (UsageCounts, error)
}

// OrderEvaluation is the outcome of evaluating a store's promotions for an order.
type OrderEvaluation struct {
	Order     Order      `json:"order"`
	Best      *Candidate `json:"best"`
	Decisions []Decision `json:"decisions"`
}

// Service exposes promotion pricing for carts and catalog items.
type Service interface {
	BestForOrder(ctx context.Context, order Order) (*OrderEvaluation, error)
	PriceProduct(ctx context.Context, storeID uuid.UUID, customerID *uuid.UUID, product ProductSnapshot, deliveryType enums.DeliveryType) (*PriceResolution, error)
}

// ServiceParams configure the promotion service.
type ServiceParams struct {
	Repo     promotionRepository
	Usage    usageReader
	Clock    func() time.Time
	Location *time.Location
	Logger   *logger.Logger
	Metrics  *metrics.PromotionMetrics
}

type service struct {
	repo     promotionRepository
	usage    usageReader
	clock    func() time.Time
	location *time.Location
	logg     *logger.Logger
	metrics  *metrics.PromotionMetrics
}

// NewService builds a promotion service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     params.Repo,
		usage:    params.Usage,
		clock:    clock,
		location: loc,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// BestForOrder evaluates every active promotion of the order's store and
// returns the winner with the per-promotion decisions.
func (s *service) BestForOrder(ctx context.Context, order Order) (*OrderEvaluation, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration(time.Since(start)) }()

	if err := validateOrder(order); err != nil {
		return nil, err
	}
	order.Subtotal = ItemsSubtotal(order.Items).Round(2)
	order.DeliveryFee = order.DeliveryFee.Round(2)
	ctx = s.logg.WithStoreID(ctx, order.StoreID.String())

	promos, err := s.load(ctx, order.StoreID)
	if err != nil {
		return nil, err
	}
	ec := s.evaluationContext(ctx, order.StoreID, order.CustomerID, promos)

	decisions := Evaluate(order, promos, ec)
	applicable := make([]Promotion, 0, len(decisions))
	for _, d := range decisions {
		if d.Applicable {
			applicable = append(applicable, *d.Promotion)
			continue
		}
		s.metrics.IncSkipped(string(d.Reason))
	}

	best := SelectBest(order, applicable)
	if best != nil {
		s.metrics.IncSelection(best.Promotion.Type().String())
	} else {
		s.metrics.IncSelection("none")
	}
	return &OrderEvaluation{Order: order, Best: best, Decisions: decisions}, nil
}

// PriceProduct resolves the unit price of a catalog product.
func (s *service) PriceProduct(ctx context.Context, storeID uuid.UUID, customerID *uuid.UUID, product ProductSnapshot, deliveryType enums.DeliveryType) (*PriceResolution, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if product.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if product.ListPrice.IsNegative() || (product.OfferPrice != nil && product.OfferPrice.IsNegative()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}
	if !deliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	ctx = s.logg.WithStoreID(ctx, storeID.String())

	promos, err := s.load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	ec := s.evaluationContext(ctx, storeID, customerID, promos)
	order := Order{StoreID: storeID, CustomerID: customerID, DeliveryType: deliveryType, Subtotal: product.ListPrice}

	resolution := BestProductPrice(product, promos, order, ec)
	return &resolution, nil
}

func (s *service) load(ctx context.Context, storeID uuid.UUID) ([]Promotion, error) {
	rows, err := s.repo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotions")
	}
	promos, rejects := FromModels(rows)
	for _, reject := range rejects {
		s.metrics.IncReject(reject.Reason)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"promotion_id": reject.Record.ID.String(),
			"reason":       reject.Reason,
		}), "promotion excluded from evaluation")
	}
	return promos, nil
}

// evaluationContext gathers usage counters and first-order evidence. Failures
// degrade to the conservative answer instead of failing the request.
func (s *service) evaluationContext(ctx context.Context, storeID uuid.UUID, customerID *uuid.UUID, promos []Promotion) EvaluationContext {
	ec := EvaluationContext{Now: s.clock(), Location: s.location}

	needsUsage := false
	needsHistory := false
	for _, p := range promos {
		needsUsage = needsUsage || p.hasUsageCaps()
		needsHistory = needsHistory || p.RequiresFirstOrder()
	}

	if needsUsage {
		if s.usage == nil {
			ec.Usage = UsageCounts{Unavailable: true}
		} else {
			usage, err := s.usage.Snapshot(ctx, promos, customerID)
			if err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "promotion usage counters unavailable")
				usage = UsageCounts{Unavailable: true}
			}
			ec.Usage = usage
		}
	}

	if needsHistory && customerID != nil {
		count, err := s.repo.CountPriorOrders(ctx, storeID, *customerID)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order history unavailable")
		case count == 0:
			ec.FirstOrder = FirstOrderConfirmed
		default:
			ec.FirstOrder = FirstOrderDenied
		}
	}
	return ec
}

func validateOrder(order Order) error {
	if order.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if !order.DeliveryType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery type")
	}
	if order.DeliveryFee.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must not be negative")
	}
	if len(order.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	for i, item := range order.Items {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid cart item").
				WithDetails(map[string]any{"index": i, "id": item.ID.String()})
		}
	}
	return nil
}
