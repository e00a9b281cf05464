package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Gig is a seller's bulk-supply listing. The catalog owns it; orders and
// inquiries only read it.
type Gig struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	Title     string          `gorm:"column:title;not null"`
	BulkPrice decimal.Decimal `gorm:"column:bulk_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *Gig) BeforeCreate(*gorm.DB) error {
	assignID(&g.ID)
	return nil
}
