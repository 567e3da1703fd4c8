package models

import "time"

type Category struct {
	ID   uint   `gorm:"primary_key" json:"id"`
	Name string `gorm:"size:50;not null;unique" json:"name"`
}

type Product struct {
	ID          uint    `gorm:"primary_key" json:"id"`
	Name        string  `gorm:"size:200;not null" json:"name"`
	Price       float64 `gorm:"not null" json:"price"`
	Stock       int     `gorm:"not null" json:"stock"`
	Threshold   int     `gorm:"not null" json:"threshold"`
	Rating      float64 `gorm:"default:0" json:"rating"`
	Description *string `gorm:"size:200" json:"description"`
	CategoryID  *uint   `json:"category_id"`

	Category Category `gorm:"foreignkey:CategoryID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
