package handlers

import (
	"log"

	"github.com/goshopnow/backend/database"
	"github.com/goshopnow/backend/models"
	"github.com/goshopnow/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ListCoupons returns the requesting user's unused coupons.
func ListCoupons(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var coupons []models.DiscountCoupon
	err := database.DB.Where("user_id = ? AND used = ?", userID, false).Find(&coupons).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch coupons"})
	}

	return c.JSON(fiber.Map{"results": coupons})
}

type GrantCouponRequest struct {
	UserID        string  `json:"user_id" validate:"required,uuid"`
	MaxAmount     float64 `json:"max_amount" validate:"required,gt=0"`
	MaxPercentage int     `json:"max_percentage" validate:"required,gt=0,lte=100"`
}

// GrantCoupon creates a single-use coupon for a user with a generated
// unique code. Admin only.
func GrantCoupon(c *fiber.Ctx) error {
	var req GrantCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userID, _ := uuid.Parse(req.UserID)
	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	code, err := utils.GenerateUniqueCouponCode(database.DB)
	if err != nil {
		log.Printf("🔥 Failed to generate coupon code: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate coupon code"})
	}

	coupon := models.DiscountCoupon{
		UserID:        userID,
		CouponCode:    code,
		MaxAmount:     req.MaxAmount,
		MaxPercentage: req.MaxPercentage,
	}
	if err := database.DB.Create(&coupon).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create coupon"})
	}

	return c.Status(fiber.StatusCreated).JSON(coupon)
}
