package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory is the stock counter for one product in one warehouse.
type Inventory struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	WarehouseID uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null;uniqueIndex:ux_inventory_warehouse_product"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_inventory_warehouse_product;index"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	Location    *string   `gorm:"column:location"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Inventory) TableName() string { return "inventory" }

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
