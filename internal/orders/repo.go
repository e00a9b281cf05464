package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/db/models"
	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// Repository persists gig orders, warehouse orders and the rows they read.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindGig(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	FindInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error)
	FindWarehouses(ctx context.Context, ids []uuid.UUID) ([]models.Warehouse, error)

	CreateGigOrder(ctx context.Context, order *models.GigOrder) error
	FindGigOrder(ctx context.Context, id uuid.UUID) (*models.GigOrder, error)
	ListGigOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.GigOrder, error)
	SetGigOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
	CreateGigOrderUpdate(ctx context.Context, update *models.GigOrderUpdate) error
	ListGigOrderUpdates(ctx context.Context, orderID uuid.UUID) ([]models.GigOrderUpdate, error)

	CreateProductOrder(ctx context.Context, order *models.ProductOrder) error
	FindProductOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error)
	ListProductOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.ProductOrder, error)
	SetProductOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindGig(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	if err := r.db.WithContext(ctx).First(&gig, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &gig, nil
}

func (r *repository) FindInquiry(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	if err := r.db.WithContext(ctx).First(&inquiry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *repository) FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindWarehouses(ctx context.Context, ids []uuid.UUID) ([]models.Warehouse, error) {
	var rows []models.Warehouse
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) CreateGigOrder(ctx context.Context, order *models.GigOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindGigOrder(ctx context.Context, id uuid.UUID) (*models.GigOrder, error) {
	var order models.GigOrder
	err := r.db.WithContext(ctx).
		Preload("Updates", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListGigOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.GigOrder, error) {
	var rows []models.GigOrder
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// SetGigOrderStatus moves the order only if it is still in from. A false
// return means another request changed the status first.
func (r *repository) SetGigOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	return r.casStatus(ctx, &models.GigOrder{}, id, from, to, at)
}

func (r *repository) CreateGigOrderUpdate(ctx context.Context, update *models.GigOrderUpdate) error {
	return r.db.WithContext(ctx).Create(update).Error
}

func (r *repository) ListGigOrderUpdates(ctx context.Context, orderID uuid.UUID) ([]models.GigOrderUpdate, error) {
	var rows []models.GigOrderUpdate
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateProductOrder(ctx context.Context, order *models.ProductOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindProductOrder(ctx context.Context, id uuid.UUID) (*models.ProductOrder, error) {
	var order models.ProductOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Shipment").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListProductOrdersForUser(ctx context.Context, userID uuid.UUID) ([]models.ProductOrder, error) {
	var rows []models.ProductOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ? OR store_id IN (?)", userID,
			r.db.Model(&models.Store{}).Select("id").Where("owner_id = ?", userID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SetProductOrderStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	return r.casStatus(ctx, &models.ProductOrder{}, id, from, to, at)
}

func (r *repository) casStatus(ctx context.Context, model any, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == enums.OrderStatusCancelled {
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
