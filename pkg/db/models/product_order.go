package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// ProductOrder is a warehouse-fulfilled purchase from a store catalog.
type ProductOrder struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	BuyerID         uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;index"`
	TotalPrice      decimal.Decimal    `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status          enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentIntentID string             `gorm:"column:payment_intent_id;not null;uniqueIndex"`
	ShippingAddress string             `gorm:"column:shipping_address;not null"`
	CancelledAt     *time.Time         `gorm:"column:cancelled_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	Items           []ProductOrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipment        *Shipment          `gorm:"foreignKey:ProductOrderID"`
}

func (o *ProductOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// ProductOrderItem snapshots one line of a warehouse order.
type ProductOrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductOrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
