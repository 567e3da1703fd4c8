package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	config "github.com/goshopnow/backend/configs"
)

const defaultInvoiceDir = "static/invoices"

type InvoiceLine struct {
	Name      string
	UnitPrice float64
	Quantity  int
	Subtotal  float64
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 40px; }
  h1 { color: #1a56db; text-align: center; }
  h2 { text-align: center; font-weight: normal; }
  .date { text-align: right; color: #555; }
  table { width: 100%; border-collapse: collapse; margin-top: 20px; }
  th { background: #666; color: #fbfbfb; padding: 8px; }
  td { background: #f5f0dc; border: 1px solid #000; padding: 8px; text-align: center; }
  .total td { font-weight: bold; }
</style>
</head>
<body>
  <h1>GoShopNow</h1>
  <p class="date">Date: {{.Date}}</p>
  <h2>Payment Invoice</h2>
  <p>Payment Ref: {{.PaymentID}} &mdash; Transaction: {{.TransactionID}}</p>
  <table>
    <tr><th>Product Name</th><th>Unit Price</th><th>Units</th><th>Subtotal</th></tr>
    {{range .Lines}}
    <tr><td>{{.Name}}</td><td>{{printf "%.2f" .UnitPrice}}</td><td>{{.Quantity}}</td><td>{{printf "%.2f" .Subtotal}}</td></tr>
    {{end}}
    {{if .HasDiscount}}
    <tr><td>Discount</td><td></td><td></td><td>-{{printf "%.2f" .DiscountAmount}}</td></tr>
    {{end}}
    <tr class="total"><td></td><td></td><td>Total</td><td>{{printf "%.2f" .Total}}</td></tr>
  </table>
</body>
</html>`

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

func InvoiceDir() string {
	dir := config.Config("INVOICE_DIR")
	if dir == "" {
		dir = defaultInvoiceDir
	}
	return dir
}

// InvoicePath is the deterministic artifact location for a payment. Khalti
// pidx values are URL-safe strings, so a direct path join is safe here.
func InvoicePath(paymentID string) string {
	return filepath.Join(InvoiceDir(), paymentID+".pdf")
}

// RenderInvoiceHTML builds the printable invoice document: one row per
// line item, a negative discount row when a coupon applied, and a total
// equal to the sum of subtotals minus the discount.
func RenderInvoiceHTML(paymentID string, lines []InvoiceLine, discountAmount float64, transactionID string) (string, error) {
	total := -discountAmount
	for _, line := range lines {
		total += line.Subtotal
	}

	data := struct {
		PaymentID      string
		TransactionID  string
		Date           string
		Lines          []InvoiceLine
		HasDiscount    bool
		DiscountAmount float64
		Total          float64
	}{
		PaymentID:      paymentID,
		TransactionID:  transactionID,
		Date:           time.Now().Format("2006-01-02 15:04:05"),
		Lines:          lines,
		HasDiscount:    discountAmount > 0,
		DiscountAmount: discountAmount,
		Total:          total,
	}

	var rendered bytes.Buffer
	if err := invoiceTmpl.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

// GenerateInvoice writes the PDF invoice for a completed payment under the
// invoices directory, keyed by the payment id.
func GenerateInvoice(paymentID string, lines []InvoiceLine, discountAmount float64, transactionID string) error {
	html, err := RenderInvoiceHTML(paymentID, lines, discountAmount, transactionID)
	if err != nil {
		return fmt.Errorf("failed to render invoice HTML: %v", err)
	}

	pdfBytes, err := generatePDFFromHTML(html)
	if err != nil {
		return fmt.Errorf("failed to generate invoice PDF: %v", err)
	}

	if err := os.MkdirAll(InvoiceDir(), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(InvoicePath(paymentID), pdfBytes, 0o644); err != nil {
		return err
	}

	go archiveInvoice(paymentID, pdfBytes)

	log.Printf("✅ Invoice generated for payment %s", paymentID)
	return nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

// archiveInvoice keeps an off-site copy of the invoice when Cloudinary is
// configured. Local disk stays the source of truth for downloads; failures
// here are logged and ignored.
func archiveInvoice(paymentID string, fileBytes []byte) {
	cloudinaryURL := config.Config("CLOUDINARY_URL")
	if cloudinaryURL == "" {
		return
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		log.Printf("🔥 Failed to initialise Cloudinary for invoice %s: %v", paymentID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("invoices/%s", paymentID),
		Folder:       "goshopnow_invoices",
		ResourceType: "raw",
	}

	if _, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams); err != nil {
		log.Printf("🔥 Failed to archive invoice %s to Cloudinary: %v", paymentID, err)
		return
	}

	log.Printf("✅ Invoice %s archived to Cloudinary", paymentID)
}
