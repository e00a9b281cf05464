package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

// StockMovement is an append-only audit row for an inventory change.
type StockMovement struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	WarehouseID uuid.UUID             `gorm:"column:warehouse_id;type:uuid;not null;index"`
	ProductID   uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	ChangeType  enums.StockChangeType `gorm:"column:change_type;type:text;not null"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
