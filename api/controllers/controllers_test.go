package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/presence"
	"github.com/angelmondragon/storefront-backend/internal/promotions"
	"github.com/angelmondragon/storefront-backend/internal/zones"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/geo"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body.String())
	}
	return env
}

func serve(method, pattern, target, body string, h http.HandlerFunc, ctx context.Context) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := serve(http.MethodGet, "/ready", "/ready", "", HealthReady(cfg, testLogger(), map[string]Pinger{"db": stubPinger{}, "redis": nil}), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "test" {
		t.Fatalf("missing env header")
	}

	resp = serve(http.MethodGet, "/ready", "/ready", "", HealthReady(cfg, testLogger(), map[string]Pinger{"db": stubPinger{err: errors.New("refused")}}), nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp.Body)
	if env.Error == nil || env.Error.Details["db"] != "refused" {
		t.Fatalf("expected failing dependency in details, got %+v", env.Error)
	}
}

type stubZoneService struct {
	result *zones.ValidationResult
	zones  []zones.Zone
	err    error
	point  geo.Point
	store  uuid.UUID
}

func (s *stubZoneService) Quote(ctx context.Context, storeID uuid.UUID, point geo.Point) (*zones.ValidationResult, error) {
	s.store, s.point = storeID, point
	return s.result, s.err
}

func (s *stubZoneService) Zones(ctx context.Context, storeID uuid.UUID) ([]zones.Zone, error) {
	s.store = storeID
	return s.zones, s.err
}

func TestDeliveryQuote(t *testing.T) {
	storeID := uuid.New()
	svc := &stubZoneService{result: &zones.ValidationResult{
		IsInZone:    false,
		DeliveryFee: decimal.RequireFromString("5"),
		Message:     "outside every delivery zone",
	}}

	resp := serve(http.MethodPost, "/stores/{storeId}/delivery/quote", "/stores/"+storeID.String()+"/delivery/quote",
		`{"lat":19.43,"lng":-99.13}`, DeliveryQuote(svc, testLogger()), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.store != storeID || svc.point != (geo.Point{Lat: 19.43, Lng: -99.13}) {
		t.Fatalf("service called with %s %+v", svc.store, svc.point)
	}
	var got zones.ValidationResult
	if err := json.Unmarshal(decodeEnvelope(t, resp.Body).Data, &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.CanCheckout || !got.DeliveryFee.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDeliveryQuoteValidation(t *testing.T) {
	svc := &stubZoneService{}
	tests := map[string]struct {
		target string
		body   string
	}{
		"bad store id":     {target: "/stores/nope/delivery/quote", body: `{"lat":1,"lng":1}`},
		"missing lat":      {target: "/stores/" + uuid.NewString() + "/delivery/quote", body: `{"lng":1}`},
		"lat out of range": {target: "/stores/" + uuid.NewString() + "/delivery/quote", body: `{"lat":91,"lng":1}`},
		"unknown field":    {target: "/stores/" + uuid.NewString() + "/delivery/quote", body: `{"lat":1,"lng":1,"zip":"x"}`},
	}
	for name, tt := range tests {
		resp := serve(http.MethodPost, "/stores/{storeId}/delivery/quote", tt.target, tt.body, DeliveryQuote(svc, testLogger()), nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestDeliveryValidateRejectsOutOfZone(t *testing.T) {
	svc := &stubZoneService{result: &zones.ValidationResult{Message: "outside every delivery zone", DeliveryFee: decimal.Zero}}
	target := "/stores/" + uuid.NewString() + "/delivery/validate"

	resp := serve(http.MethodPost, "/stores/{storeId}/delivery/validate", target, `{"lat":0,"lng":0}`, DeliveryValidate(svc, testLogger()), nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp.Body)
	if env.Error.Code != string(pkgerrors.CodeOutOfZone) || env.Error.Message != "outside every delivery zone" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if env.Error.Details["can_checkout"] != false {
		t.Fatalf("expected quote in details, got %+v", env.Error.Details)
	}

	svc.result = &zones.ValidationResult{IsInZone: true, CanCheckout: true, DeliveryFee: decimal.RequireFromString("3.5")}
	resp = serve(http.MethodPost, "/stores/{storeId}/delivery/validate", target, `{"lat":0,"lng":0}`, DeliveryValidate(svc, testLogger()), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestDeliveryZonesDependencyFailure(t *testing.T) {
	svc := &stubZoneService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "load delivery zones")}
	resp := serve(http.MethodGet, "/stores/{storeId}/delivery/zones", "/stores/"+uuid.NewString()+"/delivery/zones", "", DeliveryZones(svc, testLogger()), nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "db down") {
		t.Fatalf("dependency cause leaked: %s", resp.Body.String())
	}
}

type stubPromotionService struct {
	order      promotions.Order
	eval       *promotions.OrderEvaluation
	resolution *promotions.PriceResolution
	customer   *uuid.UUID
	delivery   enums.DeliveryType
	err        error
}

func (s *stubPromotionService) BestForOrder(ctx context.Context, order promotions.Order) (*promotions.OrderEvaluation, error) {
	s.order = order
	if s.err != nil {
		return nil, s.err
	}
	s.eval.Order = order
	return s.eval, nil
}

func (s *stubPromotionService) PriceProduct(ctx context.Context, storeID uuid.UUID, customerID *uuid.UUID, product promotions.ProductSnapshot, deliveryType enums.DeliveryType) (*promotions.PriceResolution, error) {
	s.customer, s.delivery = customerID, deliveryType
	return s.resolution, s.err
}

func TestBestPromotion(t *testing.T) {
	winner := &promotions.Promotion{ID: uuid.New(), Name: "Ocho pesos", Terms: promotions.FixedAmountTerms{Amount: decimal.NewFromInt(8)}}
	loser := &promotions.Promotion{ID: uuid.New(), Name: "Pickup only", Terms: promotions.FreeDeliveryTerms{}}
	svc := &stubPromotionService{eval: &promotions.OrderEvaluation{
		Best: &promotions.Candidate{Promotion: winner, Discount: decimal.NewFromInt(8)},
		Decisions: []promotions.Decision{
			{Promotion: winner, Applicable: true},
			{Promotion: loser, Reason: promotions.ReasonDeliveryType},
		},
	}}
	customerID := uuid.New()
	ctx := middleware.WithIdentity(context.Background(), customerID.String(), enums.ActorRoleCustomer)
	body := `{"delivery_type":"delivery","delivery_fee":"4","items":[{"id":"` + uuid.NewString() + `","name":"Taco","unit_price":"20","quantity":3}]}`

	resp := serve(http.MethodPost, "/stores/{storeId}/promotions/best", "/stores/"+uuid.NewString()+"/promotions/best", body, BestPromotion(svc, testLogger()), ctx)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.order.CustomerID == nil || *svc.order.CustomerID != customerID {
		t.Fatalf("customer id not taken from identity: %v", svc.order.CustomerID)
	}
	if len(svc.order.Items) != 1 || svc.order.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", svc.order.Items)
	}

	var got struct {
		Best struct {
			PromotionID uuid.UUID       `json:"promotion_id"`
			Type        string          `json:"type"`
			Discount    decimal.Decimal `json:"discount"`
		} `json:"best"`
		Decisions []struct {
			PromotionID uuid.UUID `json:"promotion_id"`
			Applicable  bool      `json:"applicable"`
			Reason      string    `json:"reason"`
		} `json:"decisions"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp.Body).Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Best.PromotionID != winner.ID || got.Best.Type != string(enums.PromotionTypeFixedAmount) || !got.Best.Discount.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("unexpected best %+v", got.Best)
	}
	if len(got.Decisions) != 2 || got.Decisions[1].PromotionID != loser.ID || got.Decisions[1].Reason != string(promotions.ReasonDeliveryType) {
		t.Fatalf("unexpected decisions %+v", got.Decisions)
	}
}

func TestBestPromotionAnonymousAndValidation(t *testing.T) {
	svc := &stubPromotionService{eval: &promotions.OrderEvaluation{}}
	target := "/stores/" + uuid.NewString() + "/promotions/best"
	driverCtx := middleware.WithIdentity(context.Background(), uuid.NewString(), enums.ActorRoleDriver)
	body := `{"delivery_type":"pickup","delivery_fee":"0","items":[{"id":"` + uuid.NewString() + `","name":"Taco","unit_price":"20","quantity":1}]}`

	resp := serve(http.MethodPost, "/stores/{storeId}/promotions/best", target, body, BestPromotion(svc, testLogger()), driverCtx)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.order.CustomerID != nil {
		t.Fatalf("non-customer roles evaluate anonymously")
	}
	if !strings.Contains(resp.Body.String(), `"best":null`) {
		t.Fatalf("expected null best, got %s", resp.Body.String())
	}

	for name, bad := range map[string]string{
		"no items":      `{"delivery_type":"pickup","items":[]}`,
		"bad type":      `{"delivery_type":"drone","items":[{"id":"` + uuid.NewString() + `","name":"x","unit_price":"1","quantity":1}]}`,
		"zero quantity": `{"delivery_type":"pickup","items":[{"id":"` + uuid.NewString() + `","name":"x","unit_price":"1","quantity":0}]}`,
	} {
		resp := serve(http.MethodPost, "/stores/{storeId}/promotions/best", target, bad, BestPromotion(svc, testLogger()), nil)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
	}
}

func TestProductPrice(t *testing.T) {
	promo := &promotions.Promotion{ID: uuid.New(), Name: "Quarter off"}
	svc := &stubPromotionService{resolution: &promotions.PriceResolution{
		FinalPrice:     decimal.NewFromInt(15),
		DiscountAmount: decimal.NewFromInt(5),
		Source:         enums.DiscountSourcePromotion,
		Promotion:      promo,
	}}
	body := `{"product_id":"` + uuid.NewString() + `","list_price":"20","offer_price":"18"}`

	resp := serve(http.MethodPost, "/stores/{storeId}/products/price", "/stores/"+uuid.NewString()+"/products/price", body, ProductPrice(svc, testLogger()), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.delivery != enums.DeliveryTypeDelivery || svc.customer != nil {
		t.Fatalf("unexpected defaults %s %v", svc.delivery, svc.customer)
	}
	var got struct {
		FinalPrice  decimal.Decimal `json:"final_price"`
		Source      string          `json:"source"`
		PromotionID *uuid.UUID      `json:"promotion_id"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, resp.Body).Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.FinalPrice.Equal(decimal.NewFromInt(15)) || got.PromotionID == nil || *got.PromotionID != promo.ID {
		t.Fatalf("unexpected resolution %+v", got)
	}
}

type stubChannel struct {
	mu     sync.Mutex
	closed bool
}

func (c *stubChannel) PresenceState() ([]string, error) { return nil, nil }

func (c *stubChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestTracker(t *testing.T) (*presence.Tracker, *stubChannel, chan realtime.Handlers) {
	t.Helper()
	ch := &stubChannel{}
	opened := make(chan realtime.Handlers, 4)
	tracker, err := presence.NewTracker(presence.Options{
		Factory: presence.ChannelFactoryFunc(func(ctx context.Context, h realtime.Handlers) (presence.Channel, error) {
			opened <- h
			return ch, nil
		}),
		ReconcileInterval: time.Hour,
		Logger:            testLogger(),
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(func() { _ = tracker.Shutdown(context.Background()) })
	return tracker, ch, opened
}

func TestDriverPresence(t *testing.T) {
	tracker, _, opened := newTestTracker(t)
	release, err := tracker.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()
	(<-opened).OnSync([]string{"driver-2", "driver-1"})

	resp := serve(http.MethodGet, "/drivers/{driverId}/presence", "/drivers/driver-1/presence", "", DriverPresence(tracker, testLogger()), nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"online":true`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
	resp = serve(http.MethodGet, "/drivers/{driverId}/presence", "/drivers/driver-9/presence", "", DriverPresence(tracker, testLogger()), nil)
	if !strings.Contains(resp.Body.String(), `"online":false`) {
		t.Fatalf("unknown driver should be offline: %s", resp.Body.String())
	}

	resp = serve(http.MethodGet, "/drivers/online", "/drivers/online", "", OnlineDrivers(tracker, testLogger()), nil)
	if !strings.Contains(resp.Body.String(), `"drivers":["driver-1","driver-2"]`) {
		t.Fatalf("unexpected online list %s", resp.Body.String())
	}
}

func TestDriverPresenceStream(t *testing.T) {
	tracker, ch, opened := newTestTracker(t)

	r := chi.NewRouter()
	r.Get("/drivers/{driverId}/presence/stream", DriverPresenceStream(tracker, testLogger()))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/drivers/driver-7/presence/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var frame driverPresenceResponse
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if frame.DriverID != "driver-7" || frame.Online {
		t.Fatalf("unexpected initial frame %+v", frame)
	}

	var handlers realtime.Handlers
	select {
	case handlers = <-opened:
	case <-time.After(5 * time.Second):
		t.Fatalf("channel never opened")
	}
	handlers.OnJoin("driver-7")
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read join frame: %v", err)
	}
	if !frame.Online {
		t.Fatalf("expected online frame, got %+v", frame)
	}

	_ = conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for !ch.isClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("channel not released after client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
