package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusRefunded  = "Refunded"
)

// Payment's primary key is the gateway-assigned pidx, not a locally
// generated id. TransactionID is non-nil iff Status is Completed.
type Payment struct {
	ID             string    `gorm:"size:25;primary_key" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	Status         string    `gorm:"size:9;not null;default:'Pending'" json:"status"`
	TransactionID  *string   `gorm:"size:25" json:"transaction_id"`
	Amount         *float64  `json:"amount"`
	CouponID       *uint     `json:"coupon_id"`
	DiscountAmount float64   `gorm:"default:0" json:"discount_amount"`

	Coupon       DiscountCoupon   `gorm:"foreignkey:CouponID" json:"-"`
	LineItems    []PaymentProduct `gorm:"foreignkey:PaymentID" json:"line_items,omitempty"`

	CreatedAt time.Time `json:"date_time"`
}

type PaymentProduct struct {
	ID        uint    `gorm:"primary_key" json:"id"`
	PaymentID string  `gorm:"size:25;not null;index" json:"payment_id"`
	ProductID uint    `gorm:"not null" json:"product_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Amount    float64 `gorm:"not null" json:"amount"`

	Product Product `gorm:"foreignkey:ProductID" json:"product"`
}
