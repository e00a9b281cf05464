package shipments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error)
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error)
	FindShippingMethod(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	Create(ctx context.Context, shipment *models.Shipment) error
	SetTracking(ctx context.Context, id uuid.UUID, from, to enums.TrackingStatus, deliveredAt *time.Time) (bool, error)
	ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error) {
	var order models.ProductOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindWarehouse(ctx context.Context, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := r.db.WithContext(ctx).First(&warehouse, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func (r *repository) FindShippingMethod(ctx context.Context, id uuid.UUID) (*models.ShippingMethod, error) {
	var method models.ShippingMethod
	if err := r.db.WithContext(ctx).First(&method, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Preload("ShippingMethod").
		First(&shipment, "product_order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) Create(ctx context.Context, shipment *models.Shipment) error {
	return r.db.WithContext(ctx).Omit("ShippingMethod").Create(shipment).Error
}

func (r *repository) SetTracking(ctx context.Context, id uuid.UUID, from, to enums.TrackingStatus, deliveredAt *time.Time) (bool, error) {
	updates := map[string]any{"tracking_status": to, "updated_at": time.Now().UTC()}
	if deliveredAt != nil {
		updates["delivered_at"] = *deliveredAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ? AND tracking_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var rows []models.ShippingMethod
	err := r.db.WithContext(ctx).Order("estimated_days ASC, name ASC").Find(&rows).Error
	return rows, err
}
