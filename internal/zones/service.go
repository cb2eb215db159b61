package zones

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type zoneRepository interface {
	ListActiveByStore(ctx context.Context, storeID uuid.UUID) ([]models.DeliveryZone, error)
	FindSettings(ctx context.Context, storeID uuid.UUID) (*models.StoreDeliverySettings, error)
}

type zoneCache interface {
	Get(ctx context.Context, storeID uuid.UUID) ([]Zone, bool, error)
	Set(ctx context.Context, storeID uuid.UUID, zones []Zone) error
}

// Service answers delivery location questions for a store.
type Service interface {
	Quote(ctx context.Context, storeID uuid.UUID, point geo.Point) (*ValidationResult, error)
	Zones(ctx context.Context, storeID uuid.UUID) ([]Zone, error)
}

// ServiceParams configure the zone service.
type ServiceParams struct {
	Repo       zoneRepository
	Cache      zoneCache
	Resolver   Resolver
	DefaultFee decimal.Decimal
	Logger     *logger.Logger
	Metrics    *metrics.ZoneMetrics
}

type service struct {
	repo       zoneRepository
	cache      zoneCache
	resolver   Resolver
	defaultFee decimal.Decimal
	logg       *logger.Logger
	metrics    *metrics.ZoneMetrics
}

// NewService builds a zone service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("zone repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DefaultFee.IsNegative() {
		return nil, fmt.Errorf("default delivery fee must not be negative")
	}
	return &service{
		repo:       params.Repo,
		cache:      params.Cache,
		resolver:   params.Resolver,
		defaultFee: params.DefaultFee,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Quote validates point against the store's zones and settings.
func (s *service) Quote(ctx context.Context, storeID uuid.UUID, point geo.Point) (*ValidationResult, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	if !point.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	ctx = s.logg.WithStoreID(ctx, storeID.String())

	defaultFee, acceptOutside, err := s.settings(ctx, storeID)
	if err != nil {
		return nil, err
	}
	zones, err := s.Zones(ctx, storeID)
	if err != nil {
		return nil, err
	}

	result := s.resolver.ValidateDeliveryLocation(point.Lat, point.Lng, zones, acceptOutside, defaultFee)
	switch {
	case result.IsInZone:
		s.metrics.IncCheck(metrics.ZoneOutcomeInZone)
	case result.CanCheckout:
		s.metrics.IncCheck(metrics.ZoneOutcomeAccepted)
	default:
		s.metrics.IncCheck(metrics.ZoneOutcomeBlocked)
	}
	return &result, nil
}

// Zones returns the store's matchable zones, from cache when possible.
func (s *service) Zones(ctx context.Context, storeID uuid.UUID) ([]Zone, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, storeID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "zone cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	rows, err := s.repo.ListActiveByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery zones")
	}
	zones, rejects := FromModels(rows)
	for _, reject := range rejects {
		s.metrics.IncReject(reject.Reason)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"zone_id": reject.Record.ID.String(),
			"reason":  reject.Reason,
		}), "delivery zone excluded from matching")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, storeID, zones); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "zone cache write failed")
		}
	}
	return zones, nil
}

func (s *service) settings(ctx context.Context, storeID uuid.UUID) (decimal.Decimal, bool, error) {
	settings, err := s.repo.FindSettings(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultFee, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery settings")
	}
	fee := settings.DefaultDeliveryFee
	if fee.IsNegative() {
		fee = s.defaultFee
	}
	return fee, settings.AcceptOutsideZone, nil
}
