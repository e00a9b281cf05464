package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/db/models"
)

// Repository persists inventory counters, movements and warehouse capacity.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Decrement(ctx context.Context, warehouseID, productID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, warehouseID, productID uuid.UUID, qty int, location *string) error
	Find(ctx context.Context, warehouseID, productID uuid.UUID) (*models.Inventory, error)
	ReserveCapacity(ctx context.Context, warehouseID uuid.UUID, qty int) (bool, error)
	ReleaseCapacity(ctx context.Context, warehouseID uuid.UUID, qty int) error
	AppendMovements(ctx context.Context, movements []models.StockMovement) error
	FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
	ListMovementsByProduct(ctx context.Context, ownerID, productID uuid.UUID) ([]models.StockMovement, error)
	ListByProduct(ctx context.Context, ownerID, productID uuid.UUID) ([]models.Inventory, error)
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.Inventory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Decrement subtracts qty only when enough stock exists. The comparison and
// the write are one statement, so the row lock taken by the update covers both.
func (r *repository) Decrement(ctx context.Context, warehouseID, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Inventory{}).
		Where("warehouse_id = ? AND product_id = ? AND quantity >= ?", warehouseID, productID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		// The quantity CHECK is the last line against going negative;
		// report it as a shortage rather than a storage failure.
		if db.IsCheckViolation(res.Error, "") {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, warehouseID, productID uuid.UUID, qty int, location *string) error {
	row := models.Inventory{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Quantity:    qty,
		Location:    location,
	}
	updates := map[string]any{
		"quantity":   gorm.Expr("inventory.quantity + ?", qty),
		"updated_at": gorm.Expr("excluded.updated_at"),
	}
	if location != nil {
		updates["location"] = *location
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&row).Error
}

func (r *repository) Find(ctx context.Context, warehouseID, productID uuid.UUID) (*models.Inventory, error) {
	var row models.Inventory
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ReserveCapacity grows used capacity when the warehouse has room. A capacity
// of zero means the warehouse is unbounded.
func (r *repository) ReserveCapacity(ctx context.Context, warehouseID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ? AND (capacity = 0 OR used_capacity + ? <= capacity)", warehouseID, qty).
		Update("used_capacity", gorm.Expr("used_capacity + ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ReleaseCapacity(ctx context.Context, warehouseID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Where("id = ?", warehouseID).
		Update("used_capacity", gorm.Expr("CASE WHEN used_capacity >= ? THEN used_capacity - ? ELSE 0 END", qty, qty)).
		Error
}

func (r *repository) AppendMovements(ctx context.Context, movements []models.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&movements).Error
}

func (r *repository) FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var w models.Warehouse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repository) FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var s models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ownedWarehouses selects the ids of warehouses in stores owned by ownerID.
func (r *repository) ownedWarehouses(ctx context.Context, ownerID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Warehouse{}).
		Select("warehouses.id").
		Joins("JOIN stores ON stores.id = warehouses.store_id").
		Where("stores.owner_id = ?", ownerID)
}

func (r *repository) ListMovementsByProduct(ctx context.Context, ownerID, productID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id IN (?)", productID, r.ownedWarehouses(ctx, ownerID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByProduct(ctx context.Context, ownerID, productID uuid.UUID) ([]models.Inventory, error) {
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id IN (?)", productID, r.ownedWarehouses(ctx, ownerID)).
		Order("warehouse_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]models.Inventory, error) {
	var rows []models.Inventory
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("product_id ASC").
		Find(&rows).Error
	return rows, err
}
