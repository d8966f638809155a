package service

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// TrackingQRGenerator renders a QR code pointing at the public tracking
// page for an order.
type TrackingQRGenerator struct {
	BaseURL string
}

func NewTrackingQRGenerator(baseURL string) *TrackingQRGenerator {
	return &TrackingQRGenerator{BaseURL: baseURL}
}

func (g *TrackingQRGenerator) Generate(orderID string) ([]byte, error) {
	link := fmt.Sprintf("%s/orders/%s", g.BaseURL, orderID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("generating QR code for order %s: %w", orderID, err)
	}
	return png, nil
}

var _ QRGenerator = (*TrackingQRGenerator)(nil)
