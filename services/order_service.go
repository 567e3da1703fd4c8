package services

import (
	"github.com/goshopnow/backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderLine struct {
	Product  models.Product
	Quantity int
	Subtotal float64
}

type OrderDraft struct {
	Lines          []OrderLine
	TotalQuantity  int
	Subtotal       float64
	DiscountAmount float64
	TotalAmount    float64
	Coupon         *models.DiscountCoupon
}

// AssembleOrder turns the user's current cart into a priced draft. Prices
// are resolved at assembly time, so a price change between add-to-cart and
// checkout is reflected here. Nothing is persisted except the coupon burn
// inside RedeemCoupon. An empty cart yields a valid zero-amount draft.
func AssembleOrder(db *gorm.DB, userID uuid.UUID, couponCode string) (*OrderDraft, error) {
	var cartItems []models.CartItem
	if err := db.Preload("Product").Where("user_id = ?", userID).Find(&cartItems).Error; err != nil {
		return nil, err
	}

	draft := &OrderDraft{}
	for _, item := range cartItems {
		subtotal := item.Product.Price * float64(item.Quantity)
		draft.Lines = append(draft.Lines, OrderLine{
			Product:  item.Product,
			Quantity: item.Quantity,
			Subtotal: subtotal,
		})
		draft.TotalQuantity += item.Quantity
		draft.Subtotal += subtotal
	}

	effect, err := RedeemCoupon(db, userID, couponCode, draft.Subtotal)
	if err != nil {
		return nil, err
	}
	if effect != nil {
		draft.DiscountAmount = effect.DiscountAmount
		draft.Coupon = effect.Coupon
	}

	draft.TotalAmount = draft.Subtotal - draft.DiscountAmount

	return draft, nil
}
