package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goshopnow/backend/handlers"
	"github.com/goshopnow/backend/middleware"
)

func CouponRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	coupons := api.Group("/coupons", middleware.Protected())
	coupons.Get("", handlers.ListCoupons)
	coupons.Post("", middleware.AdminRequired(), handlers.GrantCoupon)
}
