package models

import (
	"time"

	"github.com/google/uuid"
)

type CartItem struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ProductID uint      `gorm:"not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`

	Product Product `gorm:"foreignkey:ProductID" json:"product"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
