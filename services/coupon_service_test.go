package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/goshopnow/backend/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.DiscountCoupon{},
		&models.Payment{},
		&models.PaymentProduct{},
	))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{
		FullName: "Test Customer",
		Email:    fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Password: "irrelevant",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestComputeDiscountCappedByMaxAmount(t *testing.T) {
	coupon := &models.DiscountCoupon{MaxAmount: 100, MaxPercentage: 2}

	// 2% of 10000 is 200, capped at 100.
	assert.Equal(t, float64(100), ComputeDiscount(coupon, 10000))
}

func TestComputeDiscountBelowCap(t *testing.T) {
	coupon := &models.DiscountCoupon{MaxAmount: 10000000, MaxPercentage: 2}

	assert.Equal(t, float64(30200), ComputeDiscount(coupon, 1510000))
}

func TestRedeemCouponBurnsOnAttempt(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	coupon := models.DiscountCoupon{
		UserID:        user.ID,
		CouponCode:    "abc123",
		MaxAmount:     100,
		MaxPercentage: 2,
	}
	require.NoError(t, db.Create(&coupon).Error)

	effect, err := RedeemCoupon(db, user.ID, "abc123", 10000)
	require.NoError(t, err)
	require.NotNil(t, effect)
	assert.Equal(t, float64(100), effect.DiscountAmount)

	var stored models.DiscountCoupon
	require.NoError(t, db.First(&stored, coupon.ID).Error)
	assert.True(t, stored.Used)

	// The coupon is spent; a second attempt finds nothing.
	effect, err = RedeemCoupon(db, user.ID, "abc123", 10000)
	require.NoError(t, err)
	assert.Nil(t, effect)
}

func TestRedeemUnknownCodeSilentlyIgnored(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	effect, err := RedeemCoupon(db, user.ID, "nosuch", 10000)
	require.NoError(t, err)
	assert.Nil(t, effect)
}

func TestRedeemOtherUsersCouponIgnored(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db)
	other := createTestUser(t, db)

	coupon := models.DiscountCoupon{
		UserID:        owner.ID,
		CouponCode:    "abc123",
		MaxAmount:     100,
		MaxPercentage: 2,
	}
	require.NoError(t, db.Create(&coupon).Error)

	effect, err := RedeemCoupon(db, other.ID, "abc123", 10000)
	require.NoError(t, err)
	assert.Nil(t, effect)

	var stored models.DiscountCoupon
	require.NoError(t, db.First(&stored, coupon.ID).Error)
	assert.False(t, stored.Used)
}

func TestRedeemEmptyCode(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db)

	effect, err := RedeemCoupon(db, user.ID, "", 10000)
	require.NoError(t, err)
	assert.Nil(t, effect)
}
