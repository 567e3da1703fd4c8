package jobs

import (
	"fmt"
	"log"
	"strings"

	config "github.com/goshopnow/backend/configs"
	"github.com/goshopnow/backend/database"
	"github.com/goshopnow/backend/models"
	"github.com/goshopnow/backend/notifications"
)

// SendLowStockDigest mails admins a daily summary of every product whose
// stock has fallen below its threshold. Per-settlement alerts can be
// missed when email delivery fails; this digest is the catch-up.
func SendLowStockDigest() {
	log.Println("Running job: SendLowStockDigest...")

	var products []models.Product
	err := database.DB.Where("stock < threshold").Order("stock asc").Find(&products).Error
	if err != nil {
		log.Printf("Error checking for low-stock products: %v", err)
		return
	}

	if len(products) == 0 {
		return
	}

	var rows strings.Builder
	for _, product := range products {
		rows.WriteString(fmt.Sprintf(
			"<tr><td>%d</td><td>%s</td><td>%d</td><td>%d</td></tr>",
			product.ID, product.Name, product.Stock, product.Threshold,
		))
	}

	emailBody := fmt.Sprintf(
		"<h1>Low Stock Digest</h1><p>%d product(s) are below their restock threshold:</p>"+
			"<table border='1'><tr><th>ID</th><th>Product</th><th>Stock</th><th>Threshold</th></tr>%s</table>",
		len(products), rows.String(),
	)

	go notifications.SendEmail("Admin", config.Config("ADMIN_EMAIL"), "Daily Low Stock Digest", emailBody)
}
