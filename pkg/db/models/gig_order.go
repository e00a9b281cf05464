package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// GigOrder is an order placed against a gig from an accepted inquiry.
type GigOrder struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	GigID           uuid.UUID         `gorm:"column:gig_id;type:uuid;not null;index"`
	InquiryID       uuid.UUID         `gorm:"column:inquiry_id;type:uuid;not null;uniqueIndex"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID        uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	Requirement     string            `gorm:"column:requirement;not null"`
	Quantity        int               `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice      decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	PaymentIntentID string            `gorm:"column:payment_intent_id;not null;uniqueIndex"`
	ShippingAddress *string           `gorm:"column:shipping_address"`
	DeliveryMethod  *string           `gorm:"column:delivery_method"`
	CancelledAt     *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	Updates         []GigOrderUpdate  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *GigOrder) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// GigOrderUpdate is a progress note the seller posts on a gig order.
type GigOrderUpdate struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID             uuid.UUID  `gorm:"column:seller_id;type:uuid;not null"`
	Title                string     `gorm:"column:title;not null"`
	Content              string     `gorm:"column:content;not null"`
	ExpectedDeliveryDate *time.Time `gorm:"column:expected_delivery_date"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (u *GigOrderUpdate) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
