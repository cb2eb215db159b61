package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/zones"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type deliveryLocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

func (req deliveryLocationRequest) point() geo.Point {
	return geo.Point{Lat: *req.Lat, Lng: *req.Lng}
}

// DeliveryQuote reports the zone, fee and checkout eligibility for a location.
func DeliveryQuote(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := validators.UUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliveryLocationRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), storeID, req.point())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeliveryValidate gates checkout: locations that cannot check out are
// rejected with OUTSIDE_DELIVERY_AREA and the quote as details.
func DeliveryValidate(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := validators.UUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req deliveryLocationRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Quote(r.Context(), storeID, req.point())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !result.CanCheckout {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeOutOfZone, result.Message).WithDetails(result))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeliveryZones lists the store's loadable zones.
func DeliveryZones(svc zones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := validators.UUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.Zones(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"zones": list})
	}
}
