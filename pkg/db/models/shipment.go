package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// Shipment tracks delivery of a warehouse order; at most one per order.
type Shipment struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductOrderID   uuid.UUID            `gorm:"column:product_order_id;type:uuid;not null;uniqueIndex:ux_shipments_product_order"`
	WarehouseID      uuid.UUID            `gorm:"column:warehouse_id;type:uuid;not null"`
	ShippingMethodID uuid.UUID            `gorm:"column:shipping_method_id;type:uuid;not null"`
	TrackingNumber   string               `gorm:"column:tracking_number;not null;uniqueIndex:ux_shipments_tracking_number"`
	TrackingStatus   enums.TrackingStatus `gorm:"column:tracking_status;type:text;not null;default:'PENDING'"`
	ShippedAt        time.Time            `gorm:"column:shipped_at;not null"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	ShippingMethod   *ShippingMethod      `gorm:"foreignKey:ShippingMethodID"`
}

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// ShippingMethod is a carrier option offered by the platform.
type ShippingMethod struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	EstimatedDays int       `gorm:"column:estimated_days;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (m *ShippingMethod) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
