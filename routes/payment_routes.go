package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/goshopnow/backend/handlers"
	"github.com/goshopnow/backend/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Khalti redirects the customer back here; no auth on purpose.
	api.Get("/payments/validate", handlers.ValidatePayment)

	paymentsGroup := api.Group("/payments", middleware.Protected())
	paymentsGroup.Post("", handlers.CreatePayment)
	paymentsGroup.Get("", handlers.ListPayments)
	paymentsGroup.Get("/download", handlers.DownloadInvoice)
	paymentsGroup.Get("/:id", handlers.GetPayment)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/payments", websocket.New(handlers.ServeSettlementFeed))
}
