package models

import (
	"time"

	"github.com/google/uuid"
)

type DiscountCoupon struct {
	ID            uint      `gorm:"primary_key" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CouponCode    string    `gorm:"size:6;not null;unique" json:"coupon_code"`
	MaxAmount     float64   `gorm:"not null" json:"max_amount"`
	MaxPercentage int       `gorm:"not null" json:"max_percentage"`
	Used          bool      `gorm:"default:false" json:"used"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
