package warehouse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/api/middleware"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	internalorders "github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/internal/shipments"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
)

type stubOrderService struct {
	order      *models.ProductOrder
	intent     *internalorders.IntentResult
	err        error
	lastCreate internalorders.CreateWarehouseOrderInput
	lastAssign []inventory.Line
	assigned   bool
	lastStatus enums.OrderStatus
}

func (s *stubOrderService) CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, input internalorders.WarehouseIntentInput) (*internalorders.IntentResult, error) {
	return s.intent, s.err
}

func (s *stubOrderService) Create(ctx context.Context, buyerID uuid.UUID, input internalorders.CreateWarehouseOrderInput) (*models.ProductOrder, error) {
	s.lastCreate = input
	return s.order, s.err
}

func (s *stubOrderService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.ProductOrder, error) {
	return s.order, s.err
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ProductOrder, error) {
	if s.order == nil {
		return nil, s.err
	}
	return []models.ProductOrder{*s.order}, s.err
}

func (s *stubOrderService) Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*internalorders.WarehouseCancelResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.WarehouseCancelResult{Order: s.order, Refund: internalorders.RefundSucceeded}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.ProductOrder, error) {
	s.lastStatus = to
	return s.order, s.err
}

func (s *stubOrderService) AssignStock(ctx context.Context, actorID, orderID uuid.UUID, items []inventory.Line) (*models.ProductOrder, error) {
	s.assigned = true
	s.lastAssign = items
	return s.order, s.err
}

func (s *stubOrderService) AdvanceTx(ctx context.Context, tx *gorm.DB, order *models.ProductOrder, action internalorders.Action, actorID uuid.UUID) error {
	return s.err
}

type stubShipmentService struct {
	shipment   *models.Shipment
	methods    []models.ShippingMethod
	err        error
	lastCreate shipments.CreateInput
	lastStatus enums.TrackingStatus
}

func (s *stubShipmentService) CreateShipment(ctx context.Context, actorID, orderID uuid.UUID, input shipments.CreateInput) (*models.Shipment, error) {
	s.lastCreate = input
	return s.shipment, s.err
}

func (s *stubShipmentService) UpdateTracking(ctx context.Context, actorID, orderID uuid.UUID, status enums.TrackingStatus) (*models.Shipment, error) {
	s.lastStatus = status
	return s.shipment, s.err
}

func (s *stubShipmentService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Shipment, error) {
	return s.shipment, s.err
}

func (s *stubShipmentService) ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	return s.methods, s.err
}

type stubInventoryService struct {
	record     *models.Inventory
	rows       []models.Inventory
	movements  []models.StockMovement
	err        error
	lastInput  inventory.StockInput
	lastChange enums.StockChangeType
	lastActor  uuid.UUID
}

func (s *stubInventoryService) DeductTx(ctx context.Context, tx *gorm.DB, orderID *uuid.UUID, lines []inventory.Line) error {
	return s.err
}

func (s *stubInventoryService) ReserveAndDeduct(ctx context.Context, lines []inventory.Line) error {
	return s.err
}

func (s *stubInventoryService) StockIn(ctx context.Context, actorID uuid.UUID, input inventory.StockInput) (*models.Inventory, error) {
	s.lastInput = input
	s.lastChange = enums.StockChangeIncoming
	return s.record, s.err
}

func (s *stubInventoryService) StockOut(ctx context.Context, actorID uuid.UUID, input inventory.StockInput) (*models.Inventory, error) {
	s.lastInput = input
	s.lastChange = enums.StockChangeOutgoing
	return s.record, s.err
}

func (s *stubInventoryService) MovementsByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.StockMovement, error) {
	s.lastActor = actorID
	return s.movements, s.err
}

func (s *stubInventoryService) InventoryByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.Inventory, error) {
	s.lastActor = actorID
	return s.rows, s.err
}

func (s *stubInventoryService) InventoryByWarehouse(ctx context.Context, actorID, warehouseID uuid.UUID) ([]models.Inventory, error) {
	return s.rows, s.err
}

func request(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func sampleOrder() *models.ProductOrder {
	id := uuid.New()
	return &models.ProductOrder{
		ID:              id,
		StoreID:         uuid.New(),
		BuyerID:         uuid.New(),
		TotalPrice:      decimal.NewFromInt(120),
		Status:          enums.OrderStatusPending,
		PaymentIntentID: "pi_w",
		ShippingAddress: "1 Main St",
		Items: []models.ProductOrderItem{
			{ID: uuid.New(), OrderID: id, ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 3},
		},
	}
}

func TestCreateOrderPassesItems(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	item := order.Items[0]
	body := `{"storeId":"` + order.StoreID.String() + `","shippingAddress":" 1 Main St ","totalPrice":120,"paymentIntentId":"pi_w",` +
		`"items":[{"productId":"` + item.ProductID.String() + `","warehouseId":"` + item.WarehouseID.String() + `","quantity":3}]}`

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/api/v1/warehouse/orders", body, order.BuyerID, nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, "1 Main St", svc.lastCreate.ShippingAddress)
	require.True(t, svc.lastCreate.TotalPrice.Equal(decimal.NewFromInt(120)))
	require.Equal(t, []inventory.Line{{WarehouseID: item.WarehouseID, ProductID: item.ProductID, Quantity: 3}}, svc.lastCreate.Items)

	var envelope struct {
		Data Order `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, order.ID, envelope.Data.ID)
	require.Len(t, envelope.Data.Items, 1)
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	body := `{"storeId":"` + uuid.NewString() + `","shippingAddress":"x","totalPrice":10,"items":[]}`
	resp := httptest.NewRecorder()
	CreateOrder(&stubOrderService{}, nil).ServeHTTP(resp, request(http.MethodPost, "/api/v1/warehouse/orders", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateOrderRejectsNonPositiveTotal(t *testing.T) {
	body := `{"storeId":"` + uuid.NewString() + `","shippingAddress":"x","totalPrice":0,` +
		`"items":[{"productId":"` + uuid.NewString() + `","warehouseId":"` + uuid.NewString() + `","quantity":1}]}`
	resp := httptest.NewRecorder()
	CreateOrder(&stubOrderService{}, nil).ServeHTTP(resp, request(http.MethodPost, "/api/v1/warehouse/orders", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateOrderWithoutPaymentReturnsIntent(t *testing.T) {
	intent := &internalorders.IntentResult{PaymentIntentID: "pi_new", ClientSecret: "cs_new", Amount: decimal.NewFromInt(10)}
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not completed").WithDetails(intent)}
	body := `{"storeId":"` + uuid.NewString() + `","shippingAddress":"x","totalPrice":10,` +
		`"items":[{"productId":"` + uuid.NewString() + `","warehouseId":"` + uuid.NewString() + `","quantity":1}]}`

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/api/v1/warehouse/orders", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "PAYMENT_NOT_COMPLETED")
	require.Contains(t, resp.Body.String(), "cs_new")
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	body := `{"storeId":"` + uuid.NewString() + `","shippingAddress":"x","totalPrice":10,"paymentIntentId":"pi",` +
		`"items":[{"productId":"` + uuid.NewString() + `","warehouseId":"` + uuid.NewString() + `","quantity":9}]}`

	resp := httptest.NewRecorder()
	CreateOrder(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/api/v1/warehouse/orders", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "INSUFFICIENT_STOCK")
}

func TestUpdateOrderStatus(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusAccepted
	svc := &stubOrderService{order: order}
	req := request(http.MethodPut, "/", `{"status":"ACCEPTED"}`, uuid.New(), map[string]string{"orderId": order.ID.String()})

	resp := httptest.NewRecorder()
	UpdateOrderStatus(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.OrderStatusAccepted, svc.lastStatus)
}

func TestAssignStockWithoutBodyUsesOrderItems(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	req := request(http.MethodPost, "/", "", uuid.New(), map[string]string{"orderId": order.ID.String()})

	resp := httptest.NewRecorder()
	AssignStock(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.True(t, svc.assigned)
	require.Nil(t, svc.lastAssign)
}

func TestAssignStockWithExplicitItems(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrderService{order: order}
	productID, warehouseID := uuid.New(), uuid.New()
	body := `{"items":[{"productId":"` + productID.String() + `","warehouseId":"` + warehouseID.String() + `","quantity":2}]}`
	req := request(http.MethodPost, "/", body, uuid.New(), map[string]string{"orderId": order.ID.String()})

	resp := httptest.NewRecorder()
	AssignStock(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, []inventory.Line{{WarehouseID: warehouseID, ProductID: productID, Quantity: 2}}, svc.lastAssign)
}

func TestCancelOrderReportsRefund(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusCancelled
	req := request(http.MethodPut, "/", "", order.BuyerID, map[string]string{"orderId": order.ID.String()})

	resp := httptest.NewRecorder()
	CancelOrder(&stubOrderService{order: order}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data CancelResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, "succeeded", envelope.Data.Refund)
}

func TestShipCreatesShipment(t *testing.T) {
	orderID := uuid.New()
	shipment := &models.Shipment{
		ID:             uuid.New(),
		ProductOrderID: orderID,
		TrackingNumber: "AB12CD34",
		TrackingStatus: enums.TrackingStatusPending,
		ShippedAt:      time.Now().UTC(),
	}
	svc := &stubShipmentService{shipment: shipment}
	warehouseID, methodID := uuid.New(), uuid.New()
	body := `{"warehouseId":"` + warehouseID.String() + `","shippingMethodId":"` + methodID.String() + `"}`

	resp := httptest.NewRecorder()
	Ship(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), map[string]string{"orderId": orderID.String()}))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, warehouseID, svc.lastCreate.WarehouseID)
	require.Equal(t, methodID, svc.lastCreate.ShippingMethodID)

	var envelope struct {
		Data Shipment `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, "AB12CD34", envelope.Data.TrackingNumber)
	require.Equal(t, orderID, envelope.Data.OrderID)
}

func TestShipDuplicateIsConflict(t *testing.T) {
	svc := &stubShipmentService{err: pkgerrors.New(pkgerrors.CodeConflict, "shipment already exists")}
	body := `{"warehouseId":"` + uuid.NewString() + `","shippingMethodId":"` + uuid.NewString() + `"}`

	resp := httptest.NewRecorder()
	Ship(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), map[string]string{"orderId": uuid.NewString()}))

	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestTrackRejectsUnknownStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	Track(&stubShipmentService{}, nil).ServeHTTP(resp, request(http.MethodPut, "/", `{"status":"LOST"}`, uuid.New(), map[string]string{"orderId": uuid.NewString()}))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTrackDelivered(t *testing.T) {
	delivered := time.Now().UTC()
	svc := &stubShipmentService{shipment: &models.Shipment{ID: uuid.New(), TrackingStatus: enums.TrackingStatusDelivered, DeliveredAt: &delivered}}

	resp := httptest.NewRecorder()
	Track(svc, nil).ServeHTTP(resp, request(http.MethodPut, "/", `{"status":"DELIVERED"}`, uuid.New(), map[string]string{"orderId": uuid.NewString()}))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.TrackingStatusDelivered, svc.lastStatus)
}

func TestShippingMethods(t *testing.T) {
	svc := &stubShipmentService{methods: []models.ShippingMethod{{ID: uuid.New(), Name: "Ground", EstimatedDays: 5}}}

	resp := httptest.NewRecorder()
	ShippingMethods(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Ground")
}

func TestStockInRoutesToLedger(t *testing.T) {
	record := &models.Inventory{ID: uuid.New(), WarehouseID: uuid.New(), ProductID: uuid.New(), Quantity: 15}
	svc := &stubInventoryService{record: record}
	body := `{"warehouseId":"` + record.WarehouseID.String() + `","productId":"` + record.ProductID.String() + `","quantity":5,"location":" A-1 "}`

	resp := httptest.NewRecorder()
	StockIn(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.Equal(t, enums.StockChangeIncoming, svc.lastChange)
	require.Equal(t, 5, svc.lastInput.Quantity)
	require.Equal(t, "A-1", *svc.lastInput.Location)
}

func TestStockOutShortage(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock")}
	body := `{"warehouseId":"` + uuid.NewString() + `","productId":"` + uuid.NewString() + `","quantity":50}`

	resp := httptest.NewRecorder()
	StockOut(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, enums.StockChangeOutgoing, svc.lastChange)
}

func TestStockInCapacityExceeded(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeCapacityExceeded, "warehouse capacity exceeded")}
	body := `{"warehouseId":"` + uuid.NewString() + `","productId":"` + uuid.NewString() + `","quantity":50}`

	resp := httptest.NewRecorder()
	StockIn(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "CAPACITY_EXCEEDED")
}

func TestMovementsByProduct(t *testing.T) {
	productID, actor := uuid.New(), uuid.New()
	svc := &stubInventoryService{movements: []models.StockMovement{
		{ID: uuid.New(), ProductID: productID, ChangeType: enums.StockChangeOutgoing, Quantity: 2},
	}}

	resp := httptest.NewRecorder()
	Movements(svc, nil).ServeHTTP(resp, request(http.MethodGet, "/", "", actor, map[string]string{"productId": productID.String()}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, actor, svc.lastActor)
	var envelope struct {
		Data []StockMovement `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	require.Equal(t, enums.StockChangeOutgoing, envelope.Data[0].ChangeType)
}

func TestInventoryByProductRequiresActor(t *testing.T) {
	svc := &stubInventoryService{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", uuid.NewString())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	InventoryByProduct(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Equal(t, uuid.Nil, svc.lastActor)
}

func TestInventoryByWarehouseForbidden(t *testing.T) {
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeForbidden, "warehouse not owned")}

	resp := httptest.NewRecorder()
	InventoryByWarehouse(svc, nil).ServeHTTP(resp, request(http.MethodGet, "/", "", uuid.New(), map[string]string{"warehouseId": uuid.NewString()}))

	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestNilInventoryServiceDoesNotPanic(t *testing.T) {
	body := `{"warehouseId":"` + uuid.NewString() + `","productId":"` + uuid.NewString() + `","quantity":1}`
	resp := httptest.NewRecorder()
	StockIn(nil, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, uuid.New(), nil))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
}
