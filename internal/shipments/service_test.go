package shipments

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/internal/payments"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/dbtest"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

type noopGate struct{}

func (noopGate) CreateIntent(context.Context, decimal.Decimal, string, *payments.CustomerInfo, map[string]string) (*payments.Intent, error) {
	return &payments.Intent{}, nil
}

func (noopGate) VerifySucceeded(context.Context, string) (*payments.Intent, error) {
	return &payments.Intent{Status: payments.StatusSucceeded}, nil
}

func (noopGate) Refund(context.Context, string) error { return nil }

type fixture struct {
	conn      *gorm.DB
	svc       Service
	owner     uuid.UUID
	buyer     uuid.UUID
	store     models.Store
	warehouse models.Warehouse
	method    models.ShippingMethod
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	runner := db.Wrap(conn)
	stock, err := inventory.NewService(inventory.NewRepository(conn), runner, emitter, nil)
	require.NoError(t, err)
	warehouseOrders, err := orders.NewWarehouseService(orders.NewRepository(conn), runner, emitter, noopGate{}, stock, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), runner, warehouseOrders, emitter, nil)
	require.NoError(t, err)

	f := fixture{conn: conn, svc: svc, owner: uuid.New(), buyer: uuid.New()}
	f.store = models.Store{OwnerID: f.owner, Name: "dockside"}
	require.NoError(t, conn.Create(&f.store).Error)
	f.warehouse = models.Warehouse{StoreID: f.store.ID, Name: "bay 2"}
	require.NoError(t, conn.Create(&f.warehouse).Error)
	f.method = models.ShippingMethod{Name: "road freight", EstimatedDays: 4}
	require.NoError(t, conn.Create(&f.method).Error)
	return f
}

func (f fixture) order(t *testing.T, status enums.OrderStatus) models.ProductOrder {
	t.Helper()
	order := models.ProductOrder{
		StoreID:         f.store.ID,
		BuyerID:         f.buyer,
		TotalPrice:      decimal.NewFromInt(90),
		Status:          status,
		PaymentIntentID: "pi_" + uuid.NewString(),
		ShippingAddress: "4 Pier Lane",
	}
	require.NoError(t, f.conn.Create(&order).Error)
	return order
}

func (f fixture) orderStatus(t *testing.T, id uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.ProductOrder
	require.NoError(t, f.conn.First(&order, "id = ?", id).Error)
	return order.Status
}

func (f fixture) input() CreateInput {
	return CreateInput{WarehouseID: f.warehouse.ID, ShippingMethodID: f.method.ID}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

var trackingPattern = regexp.MustCompile(`^[0-9A-Z]{8}$`)

func TestCreateShipmentCompletesOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)

	shipment, err := f.svc.CreateShipment(context.Background(), f.owner, order.ID, f.input())
	require.NoError(t, err)
	assert.Regexp(t, trackingPattern, shipment.TrackingNumber)
	assert.Equal(t, enums.TrackingStatusPending, shipment.TrackingStatus)
	assert.False(t, shipment.ShippedAt.IsZero())
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
}

func TestSecondShipmentIsRejected(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()

	_, err := f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)
	_, err = f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Contains(t, err.Error(), "shipment already exists")

	var n int64
	require.NoError(t, f.conn.Model(&models.Shipment{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCreateShipmentGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	accepted := f.order(t, enums.OrderStatusAccepted)
	_, err := f.svc.CreateShipment(ctx, f.owner, accepted.ID, f.input())
	requireCode(t, err, pkgerrors.CodeStateConflict)

	ready := f.order(t, enums.OrderStatusInProgress)
	_, err = f.svc.CreateShipment(ctx, f.buyer, ready.ID, f.input())
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.CreateShipment(ctx, f.owner, ready.ID, CreateInput{WarehouseID: uuid.New(), ShippingMethodID: f.method.ID})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.CreateShipment(ctx, f.owner, ready.ID, CreateInput{WarehouseID: f.warehouse.ID, ShippingMethodID: uuid.New()})
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.CreateShipment(ctx, f.owner, uuid.New(), f.input())
	requireCode(t, err, pkgerrors.CodeNotFound)

	assert.Equal(t, enums.OrderStatusInProgress, f.orderStatus(t, ready.ID))
}

func TestDeliveredTrackingDeliversOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()
	_, err := f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)

	transit, err := f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusInTransit)
	require.NoError(t, err)
	assert.Nil(t, transit.DeliveredAt)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))

	delivered, err := f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.Equal(t, enums.OrderStatusDelivered, f.orderStatus(t, order.ID))

	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusInTransit)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestReturnedIsTerminal(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()
	_, err := f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)

	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusReturned)
	require.NoError(t, err)
	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusDelivered)
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
}

func TestUpdateTrackingValidation(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()

	_, err := f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatus("LOST"))
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusInTransit)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)
	_, err = f.svc.UpdateTracking(ctx, f.buyer, order.ID, enums.TrackingStatusInTransit)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestShipmentVisibility(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()
	_, err := f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)

	for _, actor := range []uuid.UUID{f.buyer, f.owner} {
		shipment, err := f.svc.Get(ctx, actor, order.ID)
		require.NoError(t, err)
		require.NotNil(t, shipment.ShippingMethod)
		assert.Equal(t, "road freight", shipment.ShippingMethod.Name)
	}
	_, err = f.svc.Get(ctx, uuid.New(), order.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestListShippingMethods(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.conn.Create(&models.ShippingMethod{Name: "air", EstimatedDays: 1}).Error)

	methods, err := f.svc.ListShippingMethods(context.Background())
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "air", methods[0].Name)
}

func TestNewTrackingNumber(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewTrackingNumber()
		assert.Regexp(t, trackingPattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 45)
}

// sequence hands out codes in order, repeating the last one.
func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		code := codes[min(i, len(codes)-1)]
		i++
		return code
	}
}

func (f fixture) shipmentCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.Shipment{}).Count(&n).Error)
	return n
}

func TestTrackingNumberCollisionIsRegenerated(t *testing.T) {
	f := newFixture(t)
	f.svc.(*service).trackingNumber = sequence("AAAA0000", "AAAA0000", "BBBB1111")
	ctx := context.Background()

	first := f.order(t, enums.OrderStatusInProgress)
	shipped, err := f.svc.CreateShipment(ctx, f.owner, first.ID, f.input())
	require.NoError(t, err)
	assert.Equal(t, "AAAA0000", shipped.TrackingNumber)

	second := f.order(t, enums.OrderStatusInProgress)
	shipped, err = f.svc.CreateShipment(ctx, f.owner, second.ID, f.input())
	require.NoError(t, err)
	assert.Equal(t, "BBBB1111", shipped.TrackingNumber)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, second.ID))
	assert.EqualValues(t, 2, f.shipmentCount(t))
}

func TestExhaustedTrackingNumbersAreNotReportedAsDuplicateShipment(t *testing.T) {
	f := newFixture(t)
	f.svc.(*service).trackingNumber = sequence("CCCC2222")
	ctx := context.Background()

	first := f.order(t, enums.OrderStatusInProgress)
	_, err := f.svc.CreateShipment(ctx, f.owner, first.ID, f.input())
	require.NoError(t, err)

	second := f.order(t, enums.OrderStatusInProgress)
	_, err = f.svc.CreateShipment(ctx, f.owner, second.ID, f.input())
	requireCode(t, err, pkgerrors.CodeDependency)
	assert.NotContains(t, err.Error(), "shipment already exists")
	assert.Equal(t, enums.OrderStatusInProgress, f.orderStatus(t, second.ID))
	assert.EqualValues(t, 1, f.shipmentCount(t))
}

func TestResettingTrackingStatusIsANoop(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, enums.OrderStatusInProgress)
	ctx := context.Background()
	_, err := f.svc.CreateShipment(ctx, f.owner, order.ID, f.input())
	require.NoError(t, err)

	trackingEvents := func() int64 {
		var n int64
		require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
			Where("event_type = ?", enums.EventShipmentTrackingUpdated).Count(&n).Error)
		return n
	}

	same, err := f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusPending)
	require.NoError(t, err)
	assert.Equal(t, enums.TrackingStatusPending, same.TrackingStatus)
	assert.Zero(t, trackingEvents())

	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusInTransit)
	require.NoError(t, err)
	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusInTransit)
	require.NoError(t, err)
	_, err = f.svc.UpdateTracking(ctx, f.owner, order.ID, enums.TrackingStatusPending)
	require.NoError(t, err)
	assert.EqualValues(t, 2, trackingEvents())
}
