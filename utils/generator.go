package utils

import (
	"math/rand"
	"time"

	"github.com/goshopnow/backend/models"
	"gorm.io/gorm"
)

const couponCodeLength = 6
const letterBytes = "abcdefghijklmnopqrstuvwxyz0123456789"

func GenerateUniqueCouponCode(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, couponCodeLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		code := string(b)

		var coupon models.DiscountCoupon
		err := tx.Where("coupon_code = ?", code).First(&coupon).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return code, nil
			}
			return "", err
		}
	}
}
