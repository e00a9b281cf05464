package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/internal/authz"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
	pkgerrors "github.com/tradehub/tradehub-backend/pkg/errors"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
)

// Service is the inventory ledger.
type Service interface {
	// DeductTx removes every line from stock using the caller's transaction.
	// Any short line fails the whole call; the caller must roll back.
	DeductTx(ctx context.Context, tx *gorm.DB, orderID *uuid.UUID, lines []Line) error
	ReserveAndDeduct(ctx context.Context, lines []Line) error
	StockIn(ctx context.Context, actorID uuid.UUID, input StockInput) (*models.Inventory, error)
	StockOut(ctx context.Context, actorID uuid.UUID, input StockInput) (*models.Inventory, error)
	MovementsByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.StockMovement, error)
	InventoryByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.Inventory, error)
	InventoryByWarehouse(ctx context.Context, actorID, warehouseID uuid.UUID) ([]models.Inventory, error)
}

type service struct {
	repo    Repository
	tx      db.TxRunner
	outbox  outbox.Emitter
	metrics *metrics.CommerceMetrics
}

// NewService wires the ledger. metrics may be nil.
func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter, m *metrics.CommerceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, metrics: m}, nil
}

func (s *service) ReserveAndDeduct(ctx context.Context, lines []Line) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.DeductTx(ctx, tx, nil, lines)
	})
}

func (s *service) DeductTx(ctx context.Context, tx *gorm.DB, orderID *uuid.UUID, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if err := validateLines(lines); err != nil {
		return err
	}
	repo := s.repo.WithTx(tx)

	// Warehouse rows are locked before inventory rows, each in ascending id
	// order, matching StockIn and StockOut. A shortage rolls the release back
	// with the rest of the transaction.
	ordered := sortedLines(lines)
	for _, release := range capacityByWarehouse(ordered) {
		if err := repo.ReleaseCapacity(ctx, release.warehouseID, release.quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release warehouse capacity")
		}
	}

	movements := make([]models.StockMovement, 0, len(ordered))
	for _, line := range ordered {
		ok, err := repo.Decrement(ctx, line.WarehouseID, line.ProductID, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
		}
		if !ok {
			s.metrics.StockDeduction(false)
			return s.shortage(ctx, repo, line)
		}
		movements = append(movements, models.StockMovement{
			WarehouseID: line.WarehouseID,
			ProductID:   line.ProductID,
			ChangeType:  enums.StockChangeOutgoing,
			Quantity:    line.Quantity,
			OrderID:     orderID,
		})
	}

	if err := repo.AppendMovements(ctx, movements); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movements")
	}

	aggregate := uuid.Nil
	if orderID != nil {
		aggregate = *orderID
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockDeducted,
		AggregateType: enums.AggregateInventory,
		AggregateID:   aggregate,
		Data:          StockDeductedEvent{OrderID: orderID, Lines: lines},
	}); err != nil {
		return err
	}
	s.metrics.StockDeduction(true)
	return nil
}

func (s *service) shortage(ctx context.Context, repo Repository, line Line) error {
	available := 0
	row, err := repo.Find(ctx, line.WarehouseID, line.ProductID)
	switch {
	case err == nil:
		available = row.Quantity
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for product "+line.ProductID.String()).
		WithDetails(Shortage{
			WarehouseID: line.WarehouseID,
			ProductID:   line.ProductID,
			Requested:   line.Quantity,
			Available:   available,
		})
}

func (s *service) StockIn(ctx context.Context, actorID uuid.UUID, input StockInput) (*models.Inventory, error) {
	if err := validateStockInput(input); err != nil {
		return nil, err
	}
	var result *models.Inventory
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		warehouse, err := s.authorizeWarehouse(ctx, repo, actorID, input.WarehouseID)
		if err != nil {
			return err
		}
		ok, err := repo.ReserveCapacity(ctx, warehouse.ID, input.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve warehouse capacity")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "not enough space in the warehouse").
				WithDetails(map[string]int{
					"capacity":     warehouse.Capacity,
					"usedCapacity": warehouse.UsedCapacity,
					"requested":    input.Quantity,
				})
		}
		if err := repo.Increment(ctx, input.WarehouseID, input.ProductID, input.Quantity, input.Location); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment stock")
		}
		result, err = s.recordAdjustment(ctx, tx, repo, actorID, input, enums.StockChangeIncoming, enums.EventStockIn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) StockOut(ctx context.Context, actorID uuid.UUID, input StockInput) (*models.Inventory, error) {
	if err := validateStockInput(input); err != nil {
		return nil, err
	}
	var result *models.Inventory
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := s.authorizeWarehouse(ctx, repo, actorID, input.WarehouseID); err != nil {
			return err
		}
		line := Line{WarehouseID: input.WarehouseID, ProductID: input.ProductID, Quantity: input.Quantity}
		if err := repo.ReleaseCapacity(ctx, input.WarehouseID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release warehouse capacity")
		}
		ok, err := repo.Decrement(ctx, line.WarehouseID, line.ProductID, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct stock")
		}
		if !ok {
			return s.shortage(ctx, repo, line)
		}
		result, err = s.recordAdjustment(ctx, tx, repo, actorID, input, enums.StockChangeOutgoing, enums.EventStockOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) recordAdjustment(ctx context.Context, tx *gorm.DB, repo Repository, actorID uuid.UUID, input StockInput, change enums.StockChangeType, event enums.OutboxEventType) (*models.Inventory, error) {
	if err := repo.AppendMovements(ctx, []models.StockMovement{{
		WarehouseID: input.WarehouseID,
		ProductID:   input.ProductID,
		ChangeType:  change,
		Quantity:    input.Quantity,
	}}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	row, err := repo.Find(ctx, input.WarehouseID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     event,
		AggregateType: enums.AggregateInventory,
		AggregateID:   row.ID,
		Actor:         outbox.Actor(actorID, string(authz.RelationStoreOwner)),
		Data: StockAdjustedEvent{
			WarehouseID: input.WarehouseID,
			ProductID:   input.ProductID,
			Quantity:    input.Quantity,
			Balance:     row.Quantity,
		},
	}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) authorizeWarehouse(ctx context.Context, repo Repository, actorID, warehouseID uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := repo.FindWarehouse(ctx, warehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "warehouse not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load warehouse")
	}
	store, err := repo.FindStore(ctx, warehouse.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if err := authz.Require(actorID, authz.Store(store), authz.RelationStoreOwner); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// MovementsByProduct lists the product's movements across the warehouses of
// stores the actor owns.
func (s *service) MovementsByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.StockMovement, error) {
	if err := requireOwnerQuery(actorID, productID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMovementsByProduct(ctx, actorID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return rows, nil
}

func (s *service) InventoryByProduct(ctx context.Context, actorID, productID uuid.UUID) ([]models.Inventory, error) {
	if err := requireOwnerQuery(actorID, productID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProduct(ctx, actorID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return rows, nil
}

func (s *service) InventoryByWarehouse(ctx context.Context, actorID, warehouseID uuid.UUID) ([]models.Inventory, error) {
	if warehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "warehouse id required")
	}
	if _, err := s.authorizeWarehouse(ctx, s.repo, actorID, warehouseID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return rows, nil
}

func requireOwnerQuery(actorID, productID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return nil
}

type capacityRelease struct {
	warehouseID uuid.UUID
	quantity    int
}

// sortedLines returns a copy of lines ordered by warehouse then product.
func sortedLines(lines []Line) []Line {
	ordered := slices.Clone(lines)
	slices.SortStableFunc(ordered, func(a, b Line) int {
		if c := bytes.Compare(a.WarehouseID[:], b.WarehouseID[:]); c != 0 {
			return c
		}
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return ordered
}

// capacityByWarehouse sums sorted lines per warehouse, keeping their order.
func capacityByWarehouse(ordered []Line) []capacityRelease {
	var out []capacityRelease
	for _, line := range ordered {
		if n := len(out); n > 0 && out[n-1].warehouseID == line.WarehouseID {
			out[n-1].quantity += line.Quantity
			continue
		}
		out = append(out, capacityRelease{warehouseID: line.WarehouseID, quantity: line.Quantity})
	}
	return out
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, line := range lines {
		if line.WarehouseID == uuid.Nil || line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: warehouseId and productId are required", i))
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
	}
	return nil
}

func validateStockInput(input StockInput) error {
	if input.WarehouseID == uuid.Nil || input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "warehouseId and productId are required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
