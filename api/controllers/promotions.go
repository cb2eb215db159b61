package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cartItemRequest struct {
	ID         uuid.UUID       `json:"id" validate:"required"`
	Name       string          `json:"name" validate:"required,max=200"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity" validate:"min=1"`
	CategoryID *uuid.UUID      `json:"category_id"`
}

type bestPromotionRequest struct {
	DeliveryType string            `json:"delivery_type" validate:"required,oneof=delivery pickup"`
	DeliveryFee  decimal.Decimal   `json:"delivery_fee"`
	Items        []cartItemRequest `json:"items" validate:"required,min=1,dive"`
}

type promotionSummary struct {
	ID   uuid.UUID           `json:"promotion_id"`
	Name string              `json:"name"`
	Type enums.PromotionType `json:"type"`
}

type bestPromotionDTO struct {
	promotionSummary
	Discount decimal.Decimal `json:"discount"`
}

type decisionDTO struct {
	promotionSummary
	Applicable bool   `json:"applicable"`
	Reason     string `json:"reason,omitempty"`
}

type bestPromotionResponse struct {
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"delivery_fee"`
	Best        *bestPromotionDTO `json:"best"`
	Decisions   []decisionDTO     `json:"decisions"`
}

func summarize(p *promotions.Promotion) promotionSummary {
	if p == nil {
		return promotionSummary{}
	}
	return promotionSummary{ID: p.ID, Name: p.Name, Type: p.Type()}
}

// BestPromotion picks the largest discount for the posted cart. The
// customer is taken from the access token, never from the body.
func BestPromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := validators.UUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req bestPromotionRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order := promotions.Order{
			StoreID:      storeID,
			CustomerID:   middleware.CustomerIDFromContext(r.Context()),
			DeliveryType: enums.DeliveryType(req.DeliveryType),
			DeliveryFee:  req.DeliveryFee,
			Items:        make([]promotions.CartItem, 0, len(req.Items)),
		}
		for _, item := range req.Items {
			order.Items = append(order.Items, promotions.CartItem{
				ID:         item.ID,
				Name:       item.Name,
				UnitPrice:  item.UnitPrice,
				Quantity:   item.Quantity,
				CategoryID: item.CategoryID,
			})
		}

		eval, err := svc.BestForOrder(r.Context(), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := bestPromotionResponse{
			Subtotal:    eval.Order.Subtotal,
			DeliveryFee: eval.Order.DeliveryFee,
			Decisions:   make([]decisionDTO, 0, len(eval.Decisions)),
		}
		if eval.Best != nil {
			resp.Best = &bestPromotionDTO{promotionSummary: summarize(eval.Best.Promotion), Discount: eval.Best.Discount}
		}
		for _, d := range eval.Decisions {
			resp.Decisions = append(resp.Decisions, decisionDTO{
				promotionSummary: summarize(d.Promotion),
				Applicable:       d.Applicable,
				Reason:           string(d.Reason),
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

type productPriceRequest struct {
	ProductID    uuid.UUID        `json:"product_id" validate:"required"`
	CategoryID   *uuid.UUID       `json:"category_id"`
	ListPrice    decimal.Decimal  `json:"list_price"`
	OfferPrice   *decimal.Decimal `json:"offer_price"`
	DeliveryType string           `json:"delivery_type" validate:"omitempty,oneof=delivery pickup"`
}

type productPriceResponse struct {
	*promotions.PriceResolution
	PromotionID *uuid.UUID `json:"promotion_id,omitempty"`
}

// ProductPrice resolves the catalog price of a single product.
func ProductPrice(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := validators.UUIDParam(r, "storeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req productPriceRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryType := enums.DeliveryTypeDelivery
		if req.DeliveryType != "" {
			deliveryType = enums.DeliveryType(req.DeliveryType)
		}

		product := promotions.ProductSnapshot{
			ID:         req.ProductID,
			CategoryID: req.CategoryID,
			ListPrice:  req.ListPrice,
			OfferPrice: req.OfferPrice,
		}
		res, err := svc.PriceProduct(r.Context(), storeID, middleware.CustomerIDFromContext(r.Context()), product, deliveryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := productPriceResponse{PriceResolution: res}
		if res.Promotion != nil {
			id := res.Promotion.ID
			resp.PromotionID = &id
		}
		responses.WriteSuccess(w, resp)
	}
}
