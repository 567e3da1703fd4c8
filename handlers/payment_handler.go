package handlers

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	config "github.com/goshopnow/backend/configs"
	"github.com/goshopnow/backend/database"
	"github.com/goshopnow/backend/models"
	"github.com/goshopnow/backend/notifications"
	"github.com/goshopnow/backend/payments"
	"github.com/goshopnow/backend/services"
	"github.com/goshopnow/backend/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePaymentRequest struct {
	CouponCode string `json:"coupon_code"`
}

// CreatePayment assembles the user's cart into an order draft, registers a
// payment intent with Khalti and persists a Pending payment keyed by the
// gateway's pidx. Nothing is persisted when the gateway call fails, except
// the coupon burn that already happened during assembly.
func CreatePayment(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var req CreatePaymentRequest
	// An empty body is a valid request without a coupon.
	_ = c.BodyParser(&req)

	draft, err := services.AssembleOrder(database.DB, userID, req.CouponCode)
	if err != nil {
		log.Printf("🔥 Failed to assemble order for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assemble order"})
	}

	purchaseOrderID := uuid.New().String()
	siteURL := config.Config("SITE_BASE_URL")

	productDetails := make([]payments.ProductDetail, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		productDetails = append(productDetails, payments.ProductDetail{
			Name:       line.Product.Name,
			UnitPrice:  line.Product.Price,
			Quantity:   line.Quantity,
			TotalPrice: line.Subtotal,
			Identity:   fmt.Sprintf("%d", line.Product.ID),
			ID:         line.Product.ID,
		})
	}

	client := payments.NewKhaltiClient()
	intent, err := client.Initiate(payments.InitiateRequest{
		PurchaseOrderID:   purchaseOrderID,
		PurchaseOrderName: purchaseOrderID,
		Amount:            int64(math.Round(draft.TotalAmount * 100)),
		ReturnURL:         siteURL + "/api/v1/payments/validate",
		WebsiteURL:        siteURL + "/",
		ProductDetails:    productDetails,
	})
	if err != nil {
		var rejection *payments.RejectionError
		if errors.As(err, &rejection) {
			return c.Status(fiber.StatusBadRequest).JSON(rejection.Fields)
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"detail": "Service Unavailable."})
	}

	amount := draft.TotalAmount
	payment := models.Payment{
		ID:             intent.Pidx,
		UserID:         userID,
		Quantity:       draft.TotalQuantity,
		Status:         models.PaymentStatusPending,
		Amount:         &amount,
		DiscountAmount: draft.DiscountAmount,
	}
	if draft.Coupon != nil {
		payment.CouponID = &draft.Coupon.ID
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		for _, line := range draft.Lines {
			lineItem := models.PaymentProduct{
				PaymentID: payment.ID,
				ProductID: line.Product.ID,
				Quantity:  line.Quantity,
				Amount:    line.Subtotal,
			}
			if err := tx.Create(&lineItem).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("🔥 Failed to persist payment %s: %v", intent.Pidx, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record payment"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"pidx":        intent.Pidx,
		"payment_url": intent.PaymentURL,
		"expires_at":  intent.ExpiresAt,
		"expires_in":  intent.ExpiresIn,
		"message":     "Success",
	})
}

// ValidatePayment confirms a Pending payment against Khalti and applies the
// settlement effects exactly once. It is safe to call repeatedly: a payment
// whose transaction_id is already set short-circuits, and the completion
// itself is a conditional update on transaction_id IS NULL so concurrent
// duplicate webhooks cannot double-apply stock or reward points.
func ValidatePayment(c *fiber.Ctx) error {
	pidx := c.Query("pidx")
	transactionID := c.Query("transaction_id")
	amountParam := c.Query("amount")

	if pidx == "" || transactionID == "" || amountParam == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Request"})
	}

	var payment models.Payment
	if err := database.DB.Where("id = ?", pidx).First(&payment).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payment not found"})
	}

	if payment.TransactionID != nil || payment.Amount == nil {
		// Already settled; duplicate webhook delivery or a double-clicked
		// return link lands here.
		return c.JSON(payment)
	}

	amountValue, err := strconv.ParseFloat(amountParam, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Request"})
	}

	client := payments.NewKhaltiClient()
	lookup, err := client.Lookup(pidx)
	if err != nil {
		var rejection *payments.RejectionError
		if errors.As(err, &rejection) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Bad Request"})
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"detail": "Service Unavailable."})
	}

	if lookup.Status != models.PaymentStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Payment Not Completed"})
	}

	// The caller-supplied amount is in paisa; the stored amount is rupees.
	validatedAmount := amountValue / 100
	rewardPoints := int(validatedAmount / 100)

	won := false
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND transaction_id IS NULL", pidx).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusCompleted,
				"transaction_id": lookup.TransactionID,
				"amount":         validatedAmount,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// A concurrent validate already completed this payment.
			return nil
		}
		won = true

		var lineItems []models.PaymentProduct
		if err := tx.Preload("Product").Where("payment_id = ?", pidx).Find(&lineItems).Error; err != nil {
			return err
		}

		for _, item := range lineItems {
			err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity)).Error
			if err != nil {
				// Accepted lossy behavior: earlier decrements stand even if
				// a later line item's update fails.
				log.Printf("🔥 Failed to decrement stock for product %d on payment %s: %v", item.ProductID, pidx, err)
			}
		}

		return tx.Model(&models.User{}).
			Where("id = ?", payment.UserID).
			UpdateColumn("reward_points", gorm.Expr("reward_points + ?", rewardPoints)).Error
	})
	if err != nil {
		log.Printf("🔥 Failed to settle payment %s: %v", pidx, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to settle payment"})
	}

	if won {
		finalizeSettlement(pidx, payment.UserID, payment.DiscountAmount, lookup.TransactionID)
	}

	if err := database.DB.Where("id = ?", pidx).First(&payment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load payment"})
	}

	return c.JSON(payment)
}

// finalizeSettlement applies the best-effort side effects of a completed
// payment: invoice, low-stock alerts, cart clearing, receipt email and the
// websocket push. None of them may fail the validate() response.
func finalizeSettlement(pidx string, userID uuid.UUID, discountAmount float64, transactionID string) {
	var lineItems []models.PaymentProduct
	if err := database.DB.Preload("Product").Where("payment_id = ?", pidx).Find(&lineItems).Error; err != nil {
		log.Printf("🔥 Failed to load line items for invoice on payment %s: %v", pidx, err)
		lineItems = nil
	}

	invoiceLines := make([]services.InvoiceLine, 0, len(lineItems))
	for _, item := range lineItems {
		unitPrice := item.Amount
		if item.Quantity > 0 {
			unitPrice = item.Amount / float64(item.Quantity)
		}
		invoiceLines = append(invoiceLines, services.InvoiceLine{
			Name:      item.Product.Name,
			UnitPrice: unitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Amount,
		})

		// Products were reloaded after the stock decrement committed, so
		// Stock already reflects this settlement.
		if item.Product.Stock < item.Product.Threshold {
			product := item.Product
			go notifyLowStock(product, product.Stock)
		}
	}

	if err := services.GenerateInvoice(pidx, invoiceLines, discountAmount, transactionID); err != nil {
		log.Printf("🔥 Failed to generate invoice for payment %s: %v", pidx, err)
	}

	if err := database.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		// Cart-clear failure must not undo a successful settlement.
		log.Printf("🔥 Failed to clear cart for user %s after payment %s: %v", userID, pidx, err)
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		log.Printf("🔥 Failed to load user %s for receipt email: %v", userID, err)
		return
	}

	go notifications.SendEmailWithAttachment(
		user.FullName,
		user.Email,
		"Your GoShopNow Payment Receipt",
		fmt.Sprintf("<h1>Payment Received</h1><p>Your payment <b>%s</b> has been completed. Your invoice is attached.</p>", pidx),
		services.InvoicePath(pidx),
	)

	websocket.Notify(&models.Payment{ID: pidx, UserID: userID, Status: models.PaymentStatusCompleted})
}

func notifyLowStock(product models.Product, remaining int) {
	subject := fmt.Sprintf("Low stock alert: %s", product.Name)
	body := fmt.Sprintf(
		"<h1>Low Stock</h1><p>Product <b>%s</b> (id %d) is down to %d units, below its threshold of %d.</p>",
		product.Name, product.ID, remaining, product.Threshold,
	)
	notifications.SendEmail("Admin", config.Config("ADMIN_EMAIL"), subject, body)
}

// ListPayments returns the requesting user's payments, newest first.
func ListPayments(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var userPayments []models.Payment
	err := database.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&userPayments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch payments"})
	}

	return c.JSON(fiber.Map{"results": userPayments})
}

// GetPayment returns one of the requesting user's payments with its line items.
func GetPayment(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	var payment models.Payment
	err := database.DB.Preload("LineItems.Product").
		Where("id = ? AND user_id = ?", c.Params("id"), userID).
		First(&payment).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
	}

	return c.JSON(payment)
}

// DownloadInvoice streams the stored invoice PDF. A payment that does not
// exist, is not Completed, or belongs to another user is a 404; a read
// failure on an existing payment's artifact is a 500.
func DownloadInvoice(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))

	paymentID := c.Query("id")
	if paymentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid Request"})
	}

	var payment models.Payment
	err := database.DB.
		Where("id = ? AND user_id = ? AND status = ?", paymentID, userID, models.PaymentStatusCompleted).
		First(&payment).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "Not found."})
	}

	fileBytes, err := os.ReadFile(services.InvoicePath(paymentID))
	if err != nil {
		log.Printf("🔥 Failed to read invoice for payment %s: %v", paymentID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read invoice"})
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", paymentID))
	return c.Send(fileBytes)
}
