package helpers

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// TicketDocument is what gets printed on a downloadable ticket.
type TicketDocument struct {
	Code       string
	OrderID    string
	EventTitle string
	Date       string
	Time       string
	Venue      string
	HolderName string
	TierName   string
	Quantity   int
	AmountPaid string
	QRPayload  string
}

func RenderTicketQR(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, 256)
}

func RenderTicketPDF(doc TicketDocument) ([]byte, error) {
	qrPNG, err := RenderTicketQR(doc.QRPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFillColor(109, 40, 217)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(10, 9)
	pdf.Cell(0, 10, "Sahm Ticket Hub")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(10, 40)
	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(130, 8, doc.EventTitle, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	lines := []string{
		fmt.Sprintf("Name: %s", doc.HolderName),
		fmt.Sprintf("Date: %s", doc.Date),
		fmt.Sprintf("Time: %s", doc.Time),
		fmt.Sprintf("Venue: %s", doc.Venue),
		fmt.Sprintf("Ticket: %s x %d", doc.TierName, doc.Quantity),
		fmt.Sprintf("Amount paid: %s", doc.AmountPaid),
		fmt.Sprintf("Order: %s", doc.OrderID),
	}
	for _, line := range lines {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 20)
	pdf.Cell(0, 12, doc.Code)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 50, 50, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
