package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/authz"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

// WarehouseService runs store orders fulfilled from warehouse stock.
type WarehouseService interface {
	CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, input WarehouseIntentInput) (*IntentResult, error)
	Create(ctx context.Context, buyerID uuid.UUID, input CreateWarehouseOrderInput) (*models.ProductOrder, error)
	Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.ProductOrder, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ProductOrder, error)
	Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*WarehouseCancelResult, error)
	UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.ProductOrder, error)
	AssignStock(ctx context.Context, actorID, orderID uuid.UUID, items []inventory.Line) (*models.ProductOrder, error)
	// AdvanceTx applies action to an order already loaded and authorized by
	// the caller inside tx. The shipment tracker drives ship and deliver with it.
	AdvanceTx(ctx context.Context, tx *gorm.DB, order *models.ProductOrder, action Action, actorID uuid.UUID) error
}

type warehouseService struct {
	lifecycle
	stock StockDeducter
}

func NewWarehouseService(repo Repository, tx db.TxRunner, emitter outbox.Emitter, gate PaymentGate, stock StockDeducter, logg *logger.Logger, m *metrics.CommerceMetrics) (WarehouseService, error) {
	l, err := newLifecycle(repo, tx, emitter, gate, logg, m)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("stock deducter required")
	}
	return &warehouseService{lifecycle: l, stock: stock}, nil
}

func (s *warehouseService) CreatePaymentIntent(ctx context.Context, buyerID uuid.UUID, input WarehouseIntentInput) (*IntentResult, error) {
	if err := requireActor(buyerID); err != nil {
		return nil, err
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storeId is required")
	}
	if !input.TotalPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "totalPrice must be greater than zero")
	}
	store, err := s.buyableStore(ctx, s.repo, buyerID, input.StoreID)
	if err != nil {
		return nil, err
	}
	return s.openIntent(ctx, buyerID, store, input.TotalPrice)
}

// Create writes the order only after its payment verified. Without a payment
// intent id it opens one sized to the total and asks the client to confirm it.
func (s *warehouseService) Create(ctx context.Context, buyerID uuid.UUID, input CreateWarehouseOrderInput) (*models.ProductOrder, error) {
	if err := requireActor(buyerID); err != nil {
		return nil, err
	}
	if err := validateWarehouseOrderInput(input); err != nil {
		return nil, err
	}
	store, err := s.buyableStore(ctx, s.repo, buyerID, input.StoreID)
	if err != nil {
		return nil, err
	}
	if err := s.checkWarehouses(ctx, s.repo, store, input.Items); err != nil {
		return nil, err
	}

	intentID := strings.TrimSpace(input.PaymentIntentID)
	if intentID == "" {
		intent, err := s.openIntent(ctx, buyerID, store, input.TotalPrice)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "confirm the payment before placing the order").
			WithDetails(intent)
	}
	intent, err := s.payments.VerifySucceeded(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if err := checkIntent(intent, input.TotalPrice, warehouseIntentMetadata(store.ID, buyerID)); err != nil {
		return nil, err
	}

	order := &models.ProductOrder{
		StoreID:         store.ID,
		BuyerID:         buyerID,
		TotalPrice:      input.TotalPrice.Round(2),
		Status:          enums.OrderStatusPending,
		PaymentIntentID: intentID,
		ShippingAddress: strings.TrimSpace(input.ShippingAddress),
		Items:           make([]models.ProductOrderItem, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, models.ProductOrderItem{
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProductOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "an order already exists for this payment")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create warehouse order")
		}
		storeID := store.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateProductOrder,
			AggregateID:   order.ID,
			Actor:         outbox.Actor(buyerID, "buyer"),
			Data: OrderCreatedEvent{
				OrderID:         order.ID,
				Kind:            enums.OrderKindWarehouse,
				BuyerID:         buyerID,
				StoreID:         &storeID,
				TotalPrice:      order.TotalPrice,
				PaymentIntentID: order.PaymentIntentID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrderCreated(string(enums.OrderKindWarehouse))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "warehouse order created")
	return order, nil
}

func (s *warehouseService) Get(ctx context.Context, actorID, orderID uuid.UUID) (*models.ProductOrder, error) {
	order, store, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationBuyer, authz.RelationStoreOwner); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *warehouseService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ProductOrder, error) {
	if err := requireActor(userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProductOrdersForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list warehouse orders")
	}
	return rows, nil
}

func (s *warehouseService) Cancel(ctx context.Context, actorID, orderID uuid.UUID) (*WarehouseCancelResult, error) {
	var order *models.ProductOrder
	var change statusChange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var (
			store *models.Store
			err   error
		)
		order, store, err = s.load(ctx, s.repo.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationBuyer); err != nil {
			return err
		}
		change, err = s.apply(ctx, tx, enums.OrderKindWarehouse, order.ID, order.Status, ActionCancel, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorded(change)
	order.Status = change.to
	now := s.now()
	order.CancelledAt = &now

	refund := s.refundAfterCancel(ctx, enums.OrderKindWarehouse, order.ID, order.PaymentIntentID)
	return &WarehouseCancelResult{Order: order, Refund: refund}, nil
}

// UpdateStatus covers seller acceptance only. Later steps belong to
// AssignStock and the shipment tracker.
func (s *warehouseService) UpdateStatus(ctx context.Context, actorID, orderID uuid.UUID, to enums.OrderStatus) (*models.ProductOrder, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	var order *models.ProductOrder
	var change statusChange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var (
			store *models.Store
			err   error
		)
		order, store, err = s.load(ctx, s.repo.WithTx(tx), orderID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationStoreOwner); err != nil {
			return err
		}
		action, err := ManualAction(enums.OrderKindWarehouse, order.Status, to)
		if err != nil {
			return err
		}
		change, err = s.apply(ctx, tx, enums.OrderKindWarehouse, order.ID, order.Status, action, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorded(change)
	order.Status = change.to
	return order, nil
}

// AssignStock deducts stock for an accepted order and moves it to
// IN_PROGRESS in one transaction. With no items given the order's own lines
// are used. The status write is conditional on ACCEPTED, so a cancel that
// lands first rolls the deduction back.
func (s *warehouseService) AssignStock(ctx context.Context, actorID, orderID uuid.UUID, items []inventory.Line) (*models.ProductOrder, error) {
	var order *models.ProductOrder
	var change statusChange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var (
			store *models.Store
			err   error
		)
		order, store, err = s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authz.Require(actorID, authz.ProductOrder(order, store), authz.RelationStoreOwner); err != nil {
			return err
		}
		if _, err := Next(enums.OrderKindWarehouse, order.Status, ActionAssignStock); err != nil {
			return err
		}

		lines := items
		if len(lines) == 0 {
			lines = orderLines(order)
		} else if err := s.checkWarehouses(ctx, repo, store, lines); err != nil {
			return err
		}
		if err := s.stock.DeductTx(ctx, tx, &order.ID, lines); err != nil {
			return err
		}
		change, err = s.apply(ctx, tx, enums.OrderKindWarehouse, order.ID, order.Status, ActionAssignStock, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recorded(change)
	order.Status = change.to
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "stock assigned")
	return order, nil
}

func (s *warehouseService) AdvanceTx(ctx context.Context, tx *gorm.DB, order *models.ProductOrder, action Action, actorID uuid.UUID) error {
	if tx == nil || order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction and order required")
	}
	change, err := s.apply(ctx, tx, enums.OrderKindWarehouse, order.ID, order.Status, action, actorID)
	if err != nil {
		return err
	}
	s.recorded(change)
	order.Status = change.to
	return nil
}

func (s *warehouseService) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.ProductOrder, *models.Store, error) {
	order, err := repo.FindProductOrder(ctx, orderID)
	if err != nil {
		return nil, nil, notFound(err, "warehouse order")
	}
	store, err := repo.FindStore(ctx, order.StoreID)
	if err != nil {
		return nil, nil, notFound(err, "store")
	}
	return order, store, nil
}

func (s *warehouseService) buyableStore(ctx context.Context, repo Repository, buyerID, storeID uuid.UUID) (*models.Store, error) {
	store, err := repo.FindStore(ctx, storeID)
	if err != nil {
		return nil, notFound(err, "store")
	}
	if authz.Holds(buyerID, authz.Store(store), authz.RelationOwner) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store owners cannot order from their own store")
	}
	return store, nil
}

// checkWarehouses rejects lines that point at warehouses outside the store.
func (s *warehouseService) checkWarehouses(ctx context.Context, repo Repository, store *models.Store, lines []inventory.Line) error {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := map[uuid.UUID]struct{}{}
	for _, line := range lines {
		if _, ok := seen[line.WarehouseID]; ok {
			continue
		}
		seen[line.WarehouseID] = struct{}{}
		ids = append(ids, line.WarehouseID)
	}
	warehouses, err := repo.FindWarehouses(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouses")
	}
	owned := make(map[uuid.UUID]bool, len(warehouses))
	for _, w := range warehouses {
		owned[w.ID] = w.StoreID == store.ID
	}
	for _, id := range ids {
		if !owned[id] {
			return pkgerrors.New(pkgerrors.CodeValidation, "warehouse does not belong to this store").
				WithDetails(map[string]string{"warehouseId": id.String()})
		}
	}
	return nil
}

func (s *warehouseService) openIntent(ctx context.Context, buyerID uuid.UUID, store *models.Store, total decimal.Decimal) (*IntentResult, error) {
	intent, err := s.payments.CreateIntent(ctx, total, "Warehouse order: "+store.Name, nil, warehouseIntentMetadata(store.ID, buyerID))
	if err != nil {
		return nil, err
	}
	return &IntentResult{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret, Amount: total}, nil
}

func orderLines(order *models.ProductOrder) []inventory.Line {
	lines := make([]inventory.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, inventory.Line{
			WarehouseID: item.WarehouseID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
		})
	}
	return lines
}

func validateWarehouseOrderInput(input CreateWarehouseOrderInput) error {
	if input.StoreID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "storeId is required")
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shippingAddress is required")
	}
	if !input.TotalPrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "totalPrice must be greater than zero")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil || item.WarehouseID == uuid.Nil || item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid order item").
				WithDetails(map[string]int{"index": i})
		}
	}
	return nil
}

func warehouseIntentMetadata(storeID, buyerID uuid.UUID) map[string]string {
	return map[string]string{"storeId": storeID.String(), "buyerId": buyerID.String()}
}
