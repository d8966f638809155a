package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"balama-storefront/internal/domain"
	"balama-storefront/internal/storage"
)

const (
	// fallbackUserID replaces the "unknown" sentinel the early client builds
	// wrote into storage; the backend only accepts GUID-formatted user ids.
	fallbackUserID = "e778629f-c8c3-4f18-8e68-859d86c3495f"

	// fallbackCartID is the last resort when neither the cache nor a cart
	// fetch yields the server-assigned cart id.
	fallbackCartID = "a18993c1-823a-4ac8-be6a-c124b551fba0"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrNotGUID         = errors.New("identifier is not a valid GUID")
	ErrMissingField    = errors.New("required field is empty")
)

type cartWire struct {
	CartID   flexString      `json:"cartId"`
	UserID   flexString      `json:"userId"`
	Products json.RawMessage `json:"products"`
}

type cartProductWire struct {
	ProductID   flexString `json:"productId"`
	ProductName string     `json:"productName"`
	Price       flexFloat  `json:"price"`
	Quantity    flexInt    `json:"quantity"`
	ImageURL    string     `json:"imageURL"`
}

// Cart fetches the user's cart, unwrapping the doubly-nested
// data.products.$values form, and remembers the server-assigned cartId for
// later mutating calls.
func (c *Client) Cart(ctx context.Context, userID string) (*domain.Cart, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Cart/"+userID, nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) || failed(raw) {
		return nil, apiError(status, raw)
	}

	cart := &domain.Cart{UserID: userID, Products: []domain.CartItem{}}

	obj, found := DecodeObject(raw)
	if !found {
		// old API builds returned the product list bare
		items := DecodeList(raw)
		for _, item := range items {
			if product, ok := decodeCartProduct(item); ok {
				cart.Products = append(cart.Products, product)
			}
		}
		return cart, nil
	}

	var wire cartWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return cart, nil
	}
	cart.CartID = string(wire.CartID)
	if uid := string(wire.UserID); uid != "" {
		cart.UserID = uid
	}

	if cart.CartID != "" {
		if err := c.store.Set(ctx, storage.CartIDKey(userID), cart.CartID); err != nil {
			log.Printf("ERROR: caching cartId for user %s: %v", userID, err)
		}
	}

	if len(wire.Products) > 0 {
		for _, item := range DecodeList(wire.Products) {
			if product, ok := decodeCartProduct(item); ok {
				cart.Products = append(cart.Products, product)
			}
		}
	}
	return cart, nil
}

func decodeCartProduct(raw json.RawMessage) (domain.CartItem, bool) {
	var wire cartProductWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return domain.CartItem{}, false
	}
	if wire.ProductID == "" {
		return domain.CartItem{}, false
	}
	return domain.CartItem{
		ProductID:   string(wire.ProductID),
		ProductName: wire.ProductName,
		Price:       float64(wire.Price),
		Quantity:    int(wire.Quantity),
		ImageURL:    wire.ImageURL,
	}, true
}

// AddToCart validates ids client-side before any network call: the backend
// rejects non-GUID identifiers with an opaque 400.
func (c *Client) AddToCart(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if userID == "unknown" {
		log.Printf("[CART] replacing sentinel user id with fixed fallback")
		userID = fallbackUserID
	}
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: userId", ErrNotGUID)
	}
	if _, err := uuid.Parse(productID); err != nil {
		return fmt.Errorf("%w: productId", ErrNotGUID)
	}

	raw, status, err := c.do(ctx, http.MethodPost, "/api/Cart/add", map[string]any{
		"userId":    userID,
		"productId": productID,
		"quantity":  quantity,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}

	// refresh the cached cartId; a first add creates the cart server-side
	if _, err := c.Cart(ctx, userID); err != nil {
		log.Printf("ERROR: refreshing cart after add: %v", err)
	}
	return nil
}

// cartID resolves the server-assigned cart id: cache first, then a cart
// fetch, then the documented fixed fallback.
func (c *Client) cartID(ctx context.Context, userID string) string {
	if id, err := c.store.Get(ctx, storage.CartIDKey(userID)); err == nil && id != "" {
		return id
	}
	if cart, err := c.Cart(ctx, userID); err == nil && cart.CartID != "" {
		return cart.CartID
	}
	log.Printf("[CART] cartId unavailable for user %s, using default", userID)
	return fallbackCartID
}

// UpdateQuantity sets the line quantity for a product. Any quantity at or
// below zero is the removal operation and goes through RemoveFromCart; the
// backend has no delete-item endpoint and treats PUT quantity 0 as delete.
func (c *Client) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return c.RemoveFromCart(ctx, userID, productID)
	}
	return c.putCartLine(ctx, userID, productID, quantity)
}

func (c *Client) RemoveFromCart(ctx context.Context, userID, productID string) error {
	if userID == "" {
		return fmt.Errorf("%w: userId", ErrMissingField)
	}
	if productID == "" {
		return fmt.Errorf("%w: productId", ErrMissingField)
	}
	return c.putCartLine(ctx, userID, productID, 0)
}

func (c *Client) putCartLine(ctx context.Context, userID, productID string, quantity int) error {
	raw, status, err := c.do(ctx, http.MethodPut, "/api/Cart?userId="+userID, map[string]any{
		"cartId":    c.cartID(ctx, userID),
		"productId": productID,
		"quantity":  quantity,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}
