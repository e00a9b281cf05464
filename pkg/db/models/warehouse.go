package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Warehouse holds inventory for a store. Capacity of zero means unbounded.
type Warehouse struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	Capacity     int       `gorm:"column:capacity;not null;default:0"`
	UsedCapacity int       `gorm:"column:used_capacity;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Warehouse) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
