package shipments

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/authz"
	"github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

const (
	trackingNumberLength   = 8
	trackingNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingNumberAttempts = 5
)

// OrderAdvancer moves a warehouse order along its lifecycle inside tx.
type OrderAdvancer interface {
	AdvanceTx(ctx context.Context, tx *gorm.DB, order *models.ProductOrder, action orders.Action, actorID uuid.UUID) error
}

type CreateInput struct {
	WarehouseID      uuid.UUID
	ShippingMethodID uuid.UUID
}

type CreatedEvent struct {
	ShipmentID     uuid.UUID `json:"shipmentId"`
	OrderID        uuid.UUID `json:"orderId"`
	WarehouseID    uuid.UUID `json:"warehouseId"`
	TrackingNumber string    `json:"trackingNumber"`
}

type TrackingUpdatedEvent struct {
	ShipmentID uuid.UUID            `json:"shipmentId"`
	OrderID    uuid.UUID            `json:"orderId"`
	From       enums.TrackingStatus `json:"from"`
	To         enums.TrackingStatus `json:"to"`
}

type Service interface {
	CreateShipment(ctx context.Context, actorID, orderID uuid.UUID, input CreateInput) (*models.Shipment, error)
	UpdateTracking(ctx context.Context, actorID, orderID uuid.UUID, status enums.TrackingStatus) (*models.Shipment, error)
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Shipment, error)
	ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	orders OrderAdvancer
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time

	trackingNumber func() string
}

func NewService(repo Repository, tx db.TxRunner, advancer OrderAdvancer, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if advancer == nil {
		return nil, fmt.Errorf("order advancer required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		orders: advancer,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },

		trackingNumber: NewTrackingNumber,
	}, nil
}

// CreateShipment ships an in-progress order and completes it. An order has at
// most one shipment.
func (s *service) CreateShipment(ctx context.Context, actorID, orderID uuid.UUID, input CreateInput) (*models.Shipment, error) {
	if input.WarehouseID == uuid.Nil || input.ShippingMethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouseId and shippingMethodId are required")
	}
	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, store, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationStoreOwner); err != nil {
			return err
		}
		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
		}
		if order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready to ship").
				WithDetails(map[string]string{"status": string(order.Status)})
		}

		warehouse, err := repo.FindWarehouse(ctx, input.WarehouseID)
		if err != nil || warehouse.StoreID != store.ID {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "warehouse does not belong to this store")
		}
		method, err := repo.FindShippingMethod(ctx, input.ShippingMethodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping method")
		}

		shipment = &models.Shipment{
			ProductOrderID:   order.ID,
			WarehouseID:      warehouse.ID,
			ShippingMethodID: method.ID,
			TrackingStatus:   enums.TrackingStatusPending,
			ShippedAt:        s.now(),
		}
		if err := s.insertWithTrackingNumber(ctx, tx, shipment); err != nil {
			return err
		}
		shipment.ShippingMethod = method

		if err := s.orders.AdvanceTx(ctx, tx, order, orders.ActionShip, actorID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentCreated,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         outbox.Actor(actorID, "store_owner"),
			Data: CreatedEvent{
				ShipmentID:     shipment.ID,
				OrderID:        order.ID,
				WarehouseID:    warehouse.ID,
				TrackingNumber: shipment.TrackingNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "shipment created")
	return shipment, nil
}

// UpdateTracking moves the shipment's tracking status. DELIVERED and RETURNED
// are final; DELIVERED also delivers the order.
func (s *service) UpdateTracking(ctx context.Context, actorID, orderID uuid.UUID, status enums.TrackingStatus) (*models.Shipment, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tracking status").
			WithDetails(map[string]any{"allowed": []enums.TrackingStatus{
				enums.TrackingStatusPending,
				enums.TrackingStatusInTransit,
				enums.TrackingStatusDelivered,
				enums.TrackingStatusReturned,
			}})
	}
	var shipment *models.Shipment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, store, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationStoreOwner); err != nil {
			return err
		}
		shipment, err = s.loadShipment(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if shipment.TrackingStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment tracking is final").
				WithDetails(map[string]string{"trackingStatus": string(shipment.TrackingStatus)})
		}

		from := shipment.TrackingStatus
		if from == status {
			return nil
		}
		var deliveredAt *time.Time
		if status == enums.TrackingStatusDelivered {
			now := s.now()
			deliveredAt = &now
		}
		swapped, err := repo.SetTracking(ctx, shipment.ID, from, status, deliveredAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tracking")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment changed by another request")
		}
		shipment.TrackingStatus = status
		shipment.DeliveredAt = deliveredAt

		if status == enums.TrackingStatusDelivered {
			if err := s.orders.AdvanceTx(ctx, tx, order, orders.ActionDeliver, actorID); err != nil {
				return err
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventShipmentTrackingUpdated,
			AggregateType: enums.AggregateShipment,
			AggregateID:   shipment.ID,
			Actor:         outbox.Actor(actorID, "store_owner"),
			Data: TrackingUpdatedEvent{
				ShipmentID: shipment.ID,
				OrderID:    order.ID,
				From:       from,
				To:         status,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return shipment, nil
}

// insertWithTrackingNumber draws a fresh tracking number until the insert
// clears the tracking number constraint. Each attempt runs in a savepoint so
// a collision does not abort the surrounding transaction.
func (s *service) insertWithTrackingNumber(ctx context.Context, tx *gorm.DB, shipment *models.Shipment) error {
	var err error
	for attempt := 1; attempt <= trackingNumberAttempts; attempt++ {
		shipment.TrackingNumber = s.trackingNumber()
		err = tx.Transaction(func(sp *gorm.DB) error {
			return s.repo.WithTx(sp).Create(ctx, shipment)
		})
		switch {
		case err == nil:
			return nil
		case isTrackingCollision(err):
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"attempt":         attempt,
				"tracking_number": shipment.TrackingNumber,
			}), "tracking number collision, regenerating")
			shipment.ID = uuid.Nil
			continue
		case db.IsUniqueViolation(err, uniqueShipmentPerOrder) || db.IsUniqueViolation(err, "shipments.product_order_id"):
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "shipment already exists")
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate tracking number")
}

const (
	uniqueShipmentPerOrder    = "ux_shipments_product_order"
	uniqueShipmentTrackingNum = "ux_shipments_tracking_number"
)

// isTrackingCollision matches the constraint by name on Postgres and by
// column on drivers that only report the column.
func isTrackingCollision(err error) bool {
	return db.IsUniqueViolation(err, uniqueShipmentTrackingNum) || db.IsUniqueViolation(err, "shipments.tracking_number")
}

func (s *service) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.Shipment, error) {
	order, store, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationBuyer, authz.RelationStoreOwner); err != nil {
		return nil, err
	}
	return s.loadShipment(ctx, s.repo, order.ID)
}

func (s *service) ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	rows, err := s.repo.ListShippingMethods(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping methods")
	}
	return rows, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.ProductOrder, *models.Store, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse order not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse order")
	}
	store, err := repo.FindStore(ctx, order.StoreID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	return order, store, nil
}

func (s *service) loadShipment(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Shipment, error) {
	shipment, err := repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

// NewTrackingNumber returns an 8 character code over A-Z and 0-9.
func NewTrackingNumber() string {
	const limit = 256 - 256%len(trackingNumberAlphabet)
	out := make([]byte, 0, trackingNumberLength)
	buf := make([]byte, trackingNumberLength*2)
	for len(out) < trackingNumberLength {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("read random tracking number: %v", err))
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, trackingNumberAlphabet[int(b)%len(trackingNumberAlphabet)])
			if len(out) == trackingNumberLength {
				break
			}
		}
	}
	return string(out)
}
