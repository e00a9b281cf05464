package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// Inquiry is a quantity/price negotiation between a buyer and a supplier.
type Inquiry struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	GigID             uuid.UUID           `gorm:"column:gig_id;type:uuid;not null;index"`
	BuyerID           uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SupplierID        uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;index"`
	RequestedQuantity int                 `gorm:"column:requested_quantity;not null"`
	RequestedPrice    *decimal.Decimal    `gorm:"column:requested_price;type:numeric(12,2)"`
	ProposedQuantity  *int                `gorm:"column:proposed_quantity"`
	ProposedPrice     *decimal.Decimal    `gorm:"column:proposed_price;type:numeric(12,2)"`
	FinalQuantity     *int                `gorm:"column:final_quantity"`
	FinalPrice        *decimal.Decimal    `gorm:"column:final_price;type:numeric(12,2)"`
	Message           *string             `gorm:"column:message"`
	Status            enums.InquiryStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Round             int                 `gorm:"column:round;not null;default:1"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Inquiry) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
