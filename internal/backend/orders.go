package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"balama-storefront/internal/domain"
)

var ErrMissingOrderFields = errors.New("order is missing required fields")

type orderWire struct {
	OrderID        flexString      `json:"orderId"`
	UserID         flexString      `json:"userId"`
	ConsigneeName  string          `json:"consigneeName"`
	DeliverAddress string          `json:"deliverAddress"`
	PhoneNumber    string          `json:"phoneNumber"`
	DeliveryID     flexString      `json:"deliveryId"`
	OrderStatus    string          `json:"orderStatus"`
	Status         string          `json:"status"`
	OrderDate      string          `json:"orderDate"`
	OrderDetails   json.RawMessage `json:"orderDetails"`
	TotalPrice     flexFloat       `json:"totalPrice"`
	TotalAmount    flexFloat       `json:"totalAmount"`
}

// orderLineWire accepts both spellings of the quantity field; different
// backend iterations have used productQuantity and quantity.
type orderLineWire struct {
	OrderDetailID   flexString `json:"orderDetailId"`
	OrderID         flexString `json:"orderId"`
	ProductID       flexString `json:"productId"`
	ProductName     string     `json:"productName"`
	Price           flexFloat  `json:"price"`
	Quantity        flexInt    `json:"quantity"`
	ProductQuantity flexInt    `json:"productQuantity"`
}

func (w orderWire) order() domain.Order {
	status := w.OrderStatus
	if status == "" {
		status = w.Status
	}
	if status == "" {
		status = "Pending"
	}
	total := float64(w.TotalPrice)
	if total == 0 {
		total = float64(w.TotalAmount)
	}

	lines := []domain.OrderLine{}
	for _, item := range DecodeList(w.OrderDetails) {
		var line orderLineWire
		if err := json.Unmarshal(item, &line); err != nil {
			continue
		}
		quantity := int(line.Quantity)
		if quantity == 0 {
			quantity = int(line.ProductQuantity)
		}
		lines = append(lines, domain.OrderLine{
			OrderDetailID: string(line.OrderDetailID),
			OrderID:       string(line.OrderID),
			ProductID:     string(line.ProductID),
			ProductName:   line.ProductName,
			Price:         float64(line.Price),
			Quantity:      quantity,
		})
	}

	return domain.Order{
		OrderID:        string(w.OrderID),
		UserID:         string(w.UserID),
		ConsigneeName:  w.ConsigneeName,
		DeliverAddress: w.DeliverAddress,
		PhoneNumber:    w.PhoneNumber,
		DeliveryID:     string(w.DeliveryID),
		Status:         status,
		OrderDate:      w.OrderDate,
		Lines:          lines,
		TotalPrice:     total,
	}
}

func decodeOrders(raw []byte) []domain.Order {
	items := DecodeList(raw)
	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		var wire orderWire
		if err := json.Unmarshal(item, &wire); err != nil {
			continue
		}
		if wire.OrderID == "" {
			continue
		}
		orders = append(orders, wire.order())
	}
	return orders
}

// OrderRequest is the order header payload for checkout.
type OrderRequest struct {
	UserID         string  `json:"userId"`
	ConsigneeName  string  `json:"consigneeName"`
	DeliverAddress string  `json:"deliverAddress"`
	PhoneNumber    string  `json:"phoneNumber"`
	DeliveryID     string  `json:"deliveryId"`
	TotalPrice     float64 `json:"totalPrice"`
}

// CreateOrder creates the order header and returns the new orderId. Line
// items are a separate call; the two are not atomic.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if req.UserID == "" || req.ConsigneeName == "" || req.DeliverAddress == "" ||
		req.PhoneNumber == "" || req.DeliveryID == "" {
		return "", ErrMissingOrderFields
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/api/Order", req)
	if err != nil {
		return "", err
	}
	if !ok(status) || failed(raw) {
		return "", apiError(status, raw)
	}

	var wire orderWire
	if obj, found := DecodeObject(raw); found {
		_ = json.Unmarshal(obj, &wire)
	}
	if wire.OrderID == "" {
		_ = json.Unmarshal(raw, &wire)
	}
	if wire.OrderID == "" {
		return "", &APIError{Status: status, Message: "order created but no orderId returned"}
	}
	return string(wire.OrderID), nil
}

// CreateOrderDetails posts the line items referencing an existing order
// header, in the $values request shape the endpoint expects.
func (c *Client) CreateOrderDetails(ctx context.Context, orderID string, lines []domain.OrderLine) error {
	type detailWire struct {
		OrderID         string `json:"orderId"`
		ProductID       string `json:"productId"`
		ProductQuantity int    `json:"productQuantity"`
	}
	details := make([]detailWire, 0, len(lines))
	for _, line := range lines {
		details = append(details, detailWire{
			OrderID:         orderID,
			ProductID:       line.ProductID,
			ProductQuantity: line.Quantity,
		})
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/api/OrderDetails", map[string]any{
		"orderId": orderID,
		"orderDetails": map[string]any{
			"$values": details,
		},
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) UserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Order?userId="+userID, nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) || failed(raw) {
		return nil, apiError(status, raw)
	}
	return decodeOrders(raw), nil
}

// AllOrders is the admin listing endpoint; availability has varied across
// backend deployments, callers keep a fallback.
func (c *Client) AllOrders(ctx context.Context) ([]domain.Order, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/orders", nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, apiError(status, raw)
	}
	return decodeOrders(raw), nil
}

// Order fetches a single order and, when it references a delivery, attaches
// the delivery record; a delivery lookup failure never fails the order.
func (c *Client) Order(ctx context.Context, orderID string) (*domain.Order, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Order/"+orderID, nil)
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
	var wire orderWire
	if err := json.Unmarshal(obj, &wire); err != nil || wire.OrderID == "" {
		return nil, apiError(status, raw)
	}
	order := wire.order()

	if order.DeliveryID != "" {
		if delivery, err := c.Delivery(ctx, order.DeliveryID); err != nil {
			log.Printf("ERROR: fetching delivery %s for order %s: %v", order.DeliveryID, order.OrderID, err)
		} else {
			order.Delivery = delivery
		}
	}
	return &order, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	raw, code, err := c.do(ctx, http.MethodPut, "/api/Order", map[string]string{
		"orderId": orderID,
		"status":  status,
	})
	if err != nil {
		return err
	}
	if !ok(code) || failed(raw) {
		return apiError(code, raw)
	}
	return nil
}

func (c *Client) UpdateOrderTotal(ctx context.Context, orderID string, totalPrice float64) error {
	raw, status, err := c.do(ctx, http.MethodPut, "/api/Order/"+orderID+"/total", map[string]float64{
		"totalPrice": totalPrice,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	raw, status, err := c.do(ctx, http.MethodDelete, "/api/Order/"+orderID, nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		return apiError(status, raw)
	}
	return nil
}
