package service

import (
	"context"

	"balama-storefront/internal/backend"
	"balama-storefront/internal/domain"
)

// Sessions is the slice of the session manager the storefront needs.
type Sessions interface {
	UserID(ctx context.Context) (string, error)
	IsAdmin() bool
}

// Backend is the gateway client surface the storefront orchestrates.
type Backend interface {
	ConfirmEmail(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, email string) error

	Categories(ctx context.Context) []domain.Category
	CreateCategory(ctx context.Context, name, description string) error
	UpdateCategory(ctx context.Context, id, name, description string) error
	DeleteCategory(ctx context.Context, id string) error

	Products(ctx context.Context) []domain.Product
	ProductsByCategory(ctx context.Context, categoryID string) []domain.Product
	Product(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, input backend.ProductInput) error
	UpdateProduct(ctx context.Context, id string, input backend.ProductInput) error
	DeleteProduct(ctx context.Context, id string) error

	Cart(ctx context.Context, userID string) (*domain.Cart, error)
	AddToCart(ctx context.Context, userID, productID string, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, userID, productID string) error

	Deliveries(ctx context.Context) []domain.Delivery
	CreateDelivery(ctx context.Context, deliveryDate, supplierName, supplierPhone string) (string, error)

	CreateOrder(ctx context.Context, req backend.OrderRequest) (string, error)
	CreateOrderDetails(ctx context.Context, orderID string, lines []domain.OrderLine) error
	UserOrders(ctx context.Context, userID string) ([]domain.Order, error)
	AllOrders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	UpdateOrderTotal(ctx context.Context, orderID string, totalPrice float64) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// EventPublisher emits storefront analytics events; a nil publisher
// disables them.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event domain.OrderEvent) error
}

// QRGenerator renders the tracking QR for an order.
type QRGenerator interface {
	Generate(orderID string) ([]byte, error)
}

// StorefrontInterface is what the view layer consumes.
type StorefrontInterface interface {
	Categories(ctx context.Context) []domain.Category
	Products(ctx context.Context) []domain.Product
	ProductsByCategory(ctx context.Context, categoryID string) []domain.Product
	Product(ctx context.Context, id string) (*domain.Product, error)

	Cart(ctx context.Context) (*domain.Cart, error)
	AddToCart(ctx context.Context, productID string, quantity int) error
	SetQuantity(ctx context.Context, productID string, quantity int) error
	RemoveFromCart(ctx context.Context, productID string) error

	Deliveries(ctx context.Context) []domain.Delivery
	Checkout(ctx context.Context, form CheckoutForm) (*CheckoutResult, error)

	Orders(ctx context.Context) ([]domain.Order, error)
	Order(ctx context.Context, orderID string) (*domain.Order, error)
	OrderQR(orderID string) ([]byte, error)

	AllOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	DeleteOrder(ctx context.Context, orderID string) error

	CreateProduct(ctx context.Context, form ProductForm) error
	UpdateProduct(ctx context.Context, id string, form ProductForm) error
	DeleteProduct(ctx context.Context, id string) error
	CreateCategory(ctx context.Context, form CategoryForm) error
	UpdateCategory(ctx context.Context, id string, form CategoryForm) error
	DeleteCategory(ctx context.Context, id string) error

	ConfirmEmail(ctx context.Context, token string) error
	ResendConfirmation(ctx context.Context, email string) error
}

var _ Backend = (*backend.Client)(nil)
var _ StorefrontInterface = (*Storefront)(nil)
