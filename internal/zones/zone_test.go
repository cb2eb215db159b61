package zones

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestFromModelsSplitsRejects(t *testing.T) {
	t.Parallel()
	radius := 1200.0
	zero := 0.0
	center := saoPaulo
	ring := geo.Ring{
		{Lat: -23.54, Lng: -46.64},
		{Lat: -23.54, Lng: -46.62},
		{Lat: -23.56, Lng: -46.62},
	}

	rows := []models.DeliveryZone{
		{ID: uuid.New(), Name: "ok-radius", Type: enums.ZoneTypeRadius, Center: &center, RadiusMeters: &radius, DeliveryFee: decimal.NewFromInt(5), IsActive: true},
		{ID: uuid.New(), Name: "ok-polygon", Type: enums.ZoneTypePolygon, Coordinates: ring, DeliveryFee: decimal.NewFromInt(4), IsActive: true},
		{ID: uuid.New(), Name: "no-center", Type: enums.ZoneTypeRadius, RadiusMeters: &radius, DeliveryFee: decimal.NewFromInt(5)},
		{ID: uuid.New(), Name: "zero-radius", Type: enums.ZoneTypeRadius, Center: &center, RadiusMeters: &zero, DeliveryFee: decimal.NewFromInt(5)},
		{ID: uuid.New(), Name: "two-points", Type: enums.ZoneTypePolygon, Coordinates: ring[:2], DeliveryFee: decimal.NewFromInt(5)},
		{ID: uuid.New(), Name: "bad-vertex", Type: enums.ZoneTypePolygon, Coordinates: geo.Ring{ring[0], ring[1], {Lat: 95, Lng: 0}}, DeliveryFee: decimal.NewFromInt(5)},
		{ID: uuid.New(), Name: "negative-fee", Type: enums.ZoneTypeRadius, Center: &center, RadiusMeters: &radius, DeliveryFee: decimal.NewFromInt(-1)},
		{ID: uuid.New(), Name: "mystery", Type: "hexagon", DeliveryFee: decimal.NewFromInt(1)},
	}

	zones, rejects := FromModels(rows)
	if len(zones) != 2 || zones[0].Name != "ok-radius" || zones[1].Name != "ok-polygon" {
		t.Fatalf("unexpected zones %+v", zones)
	}

	wantReasons := map[string]string{
		"no-center":    RejectMissingCenter,
		"zero-radius":  RejectInvalidRadius,
		"two-points":   RejectTooFewCoordinates,
		"bad-vertex":   RejectInvalidCoordinate,
		"negative-fee": RejectNegativeFee,
		"mystery":      RejectUnknownType,
	}
	if len(rejects) != len(wantReasons) {
		t.Fatalf("expected %d rejects, got %d", len(wantReasons), len(rejects))
	}
	for _, reject := range rejects {
		if want := wantReasons[reject.Record.Name]; reject.Reason != want {
			t.Fatalf("zone %s rejected for %q, want %q", reject.Record.Name, reject.Reason, want)
		}
	}
}

func TestFromModelCopiesGeometry(t *testing.T) {
	t.Parallel()
	radius := 500.0
	center := saoPaulo
	row := models.DeliveryZone{ID: uuid.New(), Type: enums.ZoneTypeRadius, Center: &center, RadiusMeters: &radius}

	z := FromModel(row)
	center.Lat = 0
	radius = 1
	if z.Center.Lat != saoPaulo.Lat || *z.RadiusMeters != 500 {
		t.Fatalf("zone should not alias the stored row")
	}
}
