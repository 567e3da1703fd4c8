package services

import (
	"errors"
	"log"

	"github.com/goshopnow/backend/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CouponEffect struct {
	Coupon         *models.DiscountCoupon
	DiscountAmount float64
}

// RedeemCoupon looks up an unused coupon owned by the user and burns it
// immediately. The coupon is spent on attempt, not on settlement success:
// if the gateway call that follows fails, the coupon stays used. An
// unknown or already-used code yields a nil effect, never an error.
func RedeemCoupon(db *gorm.DB, userID uuid.UUID, code string, subtotal float64) (*CouponEffect, error) {
	if code == "" {
		return nil, nil
	}

	var coupon models.DiscountCoupon
	err := db.Where("user_id = ? AND coupon_code = ? AND used = ?", userID, code, false).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	coupon.Used = true
	if err := db.Save(&coupon).Error; err != nil {
		return nil, err
	}

	discount := ComputeDiscount(&coupon, subtotal)
	log.Printf("Coupon %s redeemed by user %s for a discount of %.2f", coupon.CouponCode, userID, discount)

	return &CouponEffect{Coupon: &coupon, DiscountAmount: discount}, nil
}

// ComputeDiscount applies the capped-percentage formula:
// min(subtotal * max_percentage / 100, max_amount).
func ComputeDiscount(coupon *models.DiscountCoupon, subtotal float64) float64 {
	discount := subtotal * float64(coupon.MaxPercentage) / 100
	if discount > coupon.MaxAmount {
		discount = coupon.MaxAmount
	}
	return discount
}
