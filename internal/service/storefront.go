package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"

	"balama-storefront/internal/backend"
	"balama-storefront/internal/domain"
)

// adminFallbackUserID keys the per-user orders endpoint when the dedicated
// all-orders endpoint is unavailable. It is the administrator account's id
// on the production backend.
const adminFallbackUserID = "2e2b29dd-6c2d-4dc6-b1cf-8f900c124d0d"

var (
	ErrValidation = errors.New("validation failed")
	ErrEmptyCart  = errors.New("cart is empty")
)

// Storefront orchestrates the multi-step screen flows on top of the gateway
// client: cart mutations with strict refetch-after-mutation, the two-step
// checkout saga, and order listings with client-side total derivation.
type Storefront struct {
	sessions  Sessions
	api       Backend
	publisher EventPublisher
	qr        QRGenerator
	validate  *validator.Validate

	// DetailDelay is the pause between creating the order header and
	// posting its line items, giving the header time to commit server-side.
	DetailDelay time.Duration
}

func NewStorefront(sessions Sessions, api Backend, publisher EventPublisher, qr QRGenerator) *Storefront {
	return &Storefront{
		sessions:    sessions,
		api:         api,
		publisher:   publisher,
		qr:          qr,
		validate:    validator.New(),
		DetailDelay: 500 * time.Millisecond,
	}
}

func (s *Storefront) Categories(ctx context.Context) []domain.Category {
	return s.api.Categories(ctx)
}

func (s *Storefront) Products(ctx context.Context) []domain.Product {
	return s.api.Products(ctx)
}

func (s *Storefront) ProductsByCategory(ctx context.Context, categoryID string) []domain.Product {
	return s.api.ProductsByCategory(ctx, categoryID)
}

func (s *Storefront) Product(ctx context.Context, id string) (*domain.Product, error) {
	return s.api.Product(ctx, id)
}

func (s *Storefront) Cart(ctx context.Context) (*domain.Cart, error) {
	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.Cart(ctx, userID)
}

// AddToCart mutates and refetches; the local cart copy is never patched
// optimistically.
func (s *Storefront) AddToCart(ctx context.Context, productID string, quantity int) error {
	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return err
	}
	return s.api.AddToCart(ctx, userID, productID, quantity)
}

func (s *Storefront) SetQuantity(ctx context.Context, productID string, quantity int) error {
	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return err
	}
	return s.api.UpdateQuantity(ctx, userID, productID, quantity)
}

func (s *Storefront) RemoveFromCart(ctx context.Context, productID string) error {
	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return err
	}
	return s.api.RemoveFromCart(ctx, userID, productID)
}

func (s *Storefront) Deliveries(ctx context.Context) []domain.Delivery {
	return s.api.Deliveries(ctx)
}

// CheckoutForm carries the delivery details for an order. Either an
// existing carrier is picked (DeliveryID) or a new one is registered from
// the supplier fields.
type CheckoutForm struct {
	ConsigneeName  string `json:"consigneeName" validate:"required"`
	DeliverAddress string `json:"deliverAddress" validate:"required"`
	PhoneNumber    string `json:"phoneNumber" validate:"required,min=9,max=15"`
	DeliveryID     string `json:"deliveryId" validate:"omitempty,uuid"`
	DeliveryDate   string `json:"deliveryDate"`
	SupplierName   string `json:"supplierName" validate:"required_without=DeliveryID"`
	SupplierPhone  string `json:"supplierPhone" validate:"required_without=DeliveryID"`
}

type CheckoutResult struct {
	OrderID string  `json:"orderId"`
	Total   float64 `json:"total"`
	Items   int     `json:"items"`
}

// Checkout is the two-step order saga. The header is created first; the
// line items follow after DetailDelay and are fire-and-forget: a step-2
// failure is logged, never rolled back, and the flow still succeeds with
// the cart cleared. Changing that contract needs a product decision, not a
// code fix.
func (s *Storefront) Checkout(ctx context.Context, form CheckoutForm) (*CheckoutResult, error) {
	if err := s.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return nil, err
	}

	cart, err := s.api.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Products) == 0 {
		return nil, ErrEmptyCart
	}

	var total float64
	lines := make([]domain.OrderLine, 0, len(cart.Products))
	for _, item := range cart.Products {
		total += item.Price * float64(item.Quantity)
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	deliveryID := form.DeliveryID
	if deliveryID == "" {
		deliveryID, err = s.api.CreateDelivery(ctx, form.DeliveryDate, form.SupplierName, form.SupplierPhone)
		if err != nil {
			return nil, err
		}
	}

	orderID, err := s.api.CreateOrder(ctx, backend.OrderRequest{
		UserID:         userID,
		ConsigneeName:  form.ConsigneeName,
		DeliverAddress: form.DeliverAddress,
		PhoneNumber:    form.PhoneNumber,
		DeliveryID:     deliveryID,
		TotalPrice:     total,
	})
	if err != nil {
		return nil, err
	}

	if s.DetailDelay > 0 {
		select {
		case <-time.After(s.DetailDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.api.CreateOrderDetails(ctx, orderID, lines); err != nil {
		log.Printf("ERROR: creating line items for order %s: %v", orderID, err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishOrderPlaced(ctx, domain.OrderEvent{
			Type:      "order_placed",
			OrderID:   orderID,
			UserID:    userID,
			Total:     total,
			Items:     len(lines),
			Timestamp: time.Now(),
		})
	}

	// the backend clears the cart when the order lands; refetch so the
	// local view agrees
	if _, err := s.api.Cart(ctx, userID); err != nil {
		log.Printf("ERROR: refreshing cart after checkout: %v", err)
	}

	return &CheckoutResult{OrderID: orderID, Total: total, Items: len(lines)}, nil
}

// Orders lists the current user's orders and derives totals client-side
// when the server total is zero or missing; derived totals are written back
// best-effort.
func (s *Storefront) Orders(ctx context.Context) ([]domain.Order, error) {
	userID, err := s.sessions.UserID(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.api.UserOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.deriveTotals(ctx, orders, true)
	return orders, nil
}

func (s *Storefront) Order(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.api.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.TotalPrice == 0 {
		if total := lineTotal(order.Lines); total > 0 {
			order.TotalPrice = total
		}
	}
	return order, nil
}

func (s *Storefront) OrderQR(orderID string) ([]byte, error) {
	return s.qr.Generate(orderID)
}

// AllOrders is the admin listing, with the documented fallback to the
// administrator account's per-user orders when the dedicated endpoint is
// down.
func (s *Storefront) AllOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.api.AllOrders(ctx)
	if err != nil {
		log.Printf("[ORDERS] all-orders endpoint unavailable, falling back to admin account: %v", err)
		orders, err = s.api.UserOrders(ctx, adminFallbackUserID)
		if err != nil {
			return nil, err
		}
	}
	s.deriveTotals(ctx, orders, false)
	return orders, nil
}

func (s *Storefront) deriveTotals(ctx context.Context, orders []domain.Order, writeBack bool) {
	for i := range orders {
		if orders[i].TotalPrice != 0 {
			continue
		}
		total := lineTotal(orders[i].Lines)
		if total <= 0 {
			continue
		}
		orders[i].TotalPrice = total
		if !writeBack {
			continue
		}
		if err := s.api.UpdateOrderTotal(ctx, orders[i].OrderID, total); err != nil {
			log.Printf("ERROR: writing derived total for order %s: %v", orders[i].OrderID, err)
		}
	}
}

func lineTotal(lines []domain.OrderLine) float64 {
	var total float64
	for _, line := range lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

func (s *Storefront) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	return s.api.UpdateOrderStatus(ctx, orderID, status)
}

func (s *Storefront) DeleteOrder(ctx context.Context, orderID string) error {
	return s.api.DeleteOrder(ctx, orderID)
}

// ProductForm is the admin product editor payload.
type ProductForm struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	CategoryID  string  `json:"categoryId" validate:"required"`
	Status      *bool   `json:"status"`
}

func (f ProductForm) input() backend.ProductInput {
	status := true
	if f.Status != nil {
		status = *f.Status
	}
	return backend.ProductInput{
		Name:        f.Name,
		Price:       f.Price,
		Description: f.Description,
		ImageURL:    f.ImageURL,
		CategoryID:  f.CategoryID,
		Status:      status,
	}
}

func (s *Storefront) CreateProduct(ctx context.Context, form ProductForm) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.api.CreateProduct(ctx, form.input())
}

func (s *Storefront) UpdateProduct(ctx context.Context, id string, form ProductForm) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.api.UpdateProduct(ctx, id, form.input())
}

func (s *Storefront) DeleteProduct(ctx context.Context, id string) error {
	return s.api.DeleteProduct(ctx, id)
}

type CategoryForm struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (s *Storefront) CreateCategory(ctx context.Context, form CategoryForm) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.api.CreateCategory(ctx, form.Name, form.Description)
}

func (s *Storefront) UpdateCategory(ctx context.Context, id string, form CategoryForm) error {
	if err := s.validate.Struct(form); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.api.UpdateCategory(ctx, id, form.Name, form.Description)
}

func (s *Storefront) DeleteCategory(ctx context.Context, id string) error {
	return s.api.DeleteCategory(ctx, id)
}

func (s *Storefront) ConfirmEmail(ctx context.Context, token string) error {
	return s.api.ConfirmEmail(ctx, token)
}

func (s *Storefront) ResendConfirmation(ctx context.Context, email string) error {
	return s.api.ResendConfirmation(ctx, email)
}
