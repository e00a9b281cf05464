package warehouse

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradehub/tradehub-backend/pkg/enums"
)

type lineRequest struct {
	ProductID   uuid.UUID `json:"productId" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouseId" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
}

type createPaymentIntentRequest struct {
	StoreID    uuid.UUID       `json:"storeId" validate:"required"`
	TotalPrice decimal.Decimal `json:"totalPrice" validate:"gt=0"`
}

type createOrderRequest struct {
	StoreID         uuid.UUID       `json:"storeId" validate:"required"`
	ShippingAddress string          `json:"shippingAddress" validate:"required,max=500"`
	TotalPrice      decimal.Decimal `json:"totalPrice" validate:"gt=0"`
	Items           []lineRequest   `json:"items" validate:"required,min=1,dive"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty" validate:"omitempty,max=255"`
}

type statusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

// assignStockRequest may omit items to deduct the order's own lines.
type assignStockRequest struct {
	Items []lineRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

type shipRequest struct {
	WarehouseID      uuid.UUID `json:"warehouseId" validate:"required"`
	ShippingMethodID uuid.UUID `json:"shippingMethodId" validate:"required"`
}

type trackRequest struct {
	Status enums.TrackingStatus `json:"status" validate:"required"`
}

type stockRequest struct {
	WarehouseID uuid.UUID `json:"warehouseId" validate:"required"`
	ProductID   uuid.UUID `json:"productId" validate:"required"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
	Location    *string   `json:"location,omitempty" validate:"omitempty,max=200"`
}

type OrderItem struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"productId"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	Quantity    int       `json:"quantity"`
}

type Order struct {
	ID              uuid.UUID         `json:"id"`
	StoreID         uuid.UUID         `json:"storeId"`
	BuyerID         uuid.UUID         `json:"buyerId"`
	TotalPrice      decimal.Decimal   `json:"totalPrice"`
	Status          enums.OrderStatus `json:"status"`
	PaymentIntentID string            `json:"paymentIntentId"`
	ShippingAddress string            `json:"shippingAddress"`
	CancelledAt     *time.Time        `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Items           []OrderItem       `json:"items"`
	Shipment        *Shipment         `json:"shipment,omitempty"`
}

type CancelResult struct {
	Order  Order  `json:"order"`
	Refund string `json:"refund"`
}

type ShippingMethod struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	EstimatedDays int       `json:"estimatedDays"`
}

type Shipment struct {
	ID               uuid.UUID            `json:"id"`
	OrderID          uuid.UUID            `json:"orderId"`
	WarehouseID      uuid.UUID            `json:"warehouseId"`
	ShippingMethodID uuid.UUID            `json:"shippingMethodId"`
	TrackingNumber   string               `json:"trackingNumber"`
	TrackingStatus   enums.TrackingStatus `json:"trackingStatus"`
	ShippedAt        time.Time            `json:"shippedAt"`
	DeliveredAt      *time.Time           `json:"deliveredAt,omitempty"`
	ShippingMethod   *ShippingMethod      `json:"shippingMethod,omitempty"`
}

type InventoryRecord struct {
	ID          uuid.UUID `json:"id"`
	WarehouseID uuid.UUID `json:"warehouseId"`
	ProductID   uuid.UUID `json:"productId"`
	Quantity    int       `json:"quantity"`
	Location    *string   `json:"location,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type StockMovement struct {
	ID          uuid.UUID             `json:"id"`
	WarehouseID uuid.UUID             `json:"warehouseId"`
	ProductID   uuid.UUID             `json:"productId"`
	ChangeType  enums.StockChangeType `json:"changeType"`
	Quantity    int                   `json:"quantity"`
	OrderID     *uuid.UUID            `json:"orderId,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}
