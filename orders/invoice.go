package orders

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

func invoiceSecret() []byte {
	if s := os.Getenv("INVOICE_HMAC_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("change_me_in_production")
}

// invoiceQRPayload returns "orderID|userID|signature" so the warehouse
// scanner can verify the receipt came from us.
func invoiceQRPayload(orderID, userID string) string {
	data := fmt.Sprintf("%s|%s", orderID, userID)
	mac := hmac.New(sha256.New, invoiceSecret())
	mac.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// GET /api/orders/:orderid/invoice
func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Svc.GetOrder(r.Context(), ps.ByName("orderid"), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	qrPNG, err := qrcode.Encode(invoiceQRPayload(order.OrderID, order.UserID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Order Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Order ID: %s", order.OrderID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Placed: %s", order.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", order.Status))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deliver to: %s, %s, %s %s",
		order.Address.FullName, order.Address.Line1, order.Address.City, order.Address.Postcode))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(90, 7, "Item")
	pdf.Cell(25, 7, "Qty")
	pdf.Cell(30, 7, "Unit Price")
	pdf.Cell(30, 7, "Line Total")
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 11)
	for _, item := range order.Items {
		pdf.Cell(90, 7, item.Name)
		pdf.Cell(25, 7, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(30, 7, fmt.Sprintf("%.2f", item.UnitPrice))
		pdf.Cell(30, 7, fmt.Sprintf("%.2f", item.UnitPrice*float64(item.Quantity)))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.Cell(0, 7, fmt.Sprintf("Subtotal: %.2f", order.Subtotal))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Shipping: %.2f", order.Shipping))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Tax: %.2f", order.Tax))
	pdf.Ln(6)
	if order.Discount > 0 {
		pdf.Cell(0, 7, fmt.Sprintf("Discount: -%.2f", order.Discount))
		pdf.Ln(6)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %.2f", order.TotalAmount))

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 155, 25, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+order.OrderID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
