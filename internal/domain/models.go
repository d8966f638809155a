package domain

import "time"

type User struct {
	ID       string `json:"id"`
	UserID   string `json:"userId,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Category    string  `json:"category"`
	CategoryID  string  `json:"categoryId"`
}

type CartItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Cart is the client's transient copy of the server-side cart. CartID is the
// server-assigned identifier the backend requires for mutating calls.
type Cart struct {
	CartID   string     `json:"cartId"`
	UserID   string     `json:"userId"`
	Products []CartItem `json:"products"`
}

type OrderLine struct {
	OrderDetailID string  `json:"orderDetailId,omitempty"`
	OrderID       string  `json:"orderId,omitempty"`
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName,omitempty"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
}

type Order struct {
	OrderID        string      `json:"orderId"`
	UserID         string      `json:"userId"`
	ConsigneeName  string      `json:"consigneeName"`
	DeliverAddress string      `json:"deliverAddress"`
	PhoneNumber    string      `json:"phoneNumber"`
	DeliveryID     string      `json:"deliveryId,omitempty"`
	Status         string      `json:"status"`
	OrderDate      string      `json:"orderDate"`
	Lines          []OrderLine `json:"orderDetails"`
	TotalPrice     float64     `json:"totalPrice"`
	Delivery       *Delivery   `json:"deliveryInfo,omitempty"`
}

type Delivery struct {
	DeliveryID    string `json:"deliveryId"`
	DeliveryDate  string `json:"deliveryDate"`
	SupplierName  string `json:"supplierName"`
	SupplierPhone string `json:"supplierPhone"`
}

// AuthResult is the normalized outcome of a successful login call.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// RegisterOutcome covers both backend registration flows: the variant that
// returns a token and auto-establishes a session, and the variant that only
// acknowledges the registration and gates the account behind an email
// confirmation link.
type RegisterOutcome struct {
	SessionEstablished bool   `json:"sessionEstablished"`
	Message            string `json:"message,omitempty"`
	Token              string `json:"-"`
	User               *User  `json:"-"`
}

type RegisterForm struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// OrderEvent is the analytics message emitted after a checkout.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Total     float64   `json:"total"`
	Items     int       `json:"items"`
	Timestamp time.Time `json:"timestamp"`
}
