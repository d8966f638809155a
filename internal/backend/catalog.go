package backend

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"balama-storefront/internal/domain"
)

type categoryWire struct {
	CategoryID   flexString `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
	Description  string     `json:"description"`
}

// productWire is the server's product shape. Note imageURL with capital URL;
// it is normalized to the local imageUrl field.
type productWire struct {
	ProductID    flexString `json:"productId"`
	ProductName  string     `json:"productName"`
	Description  string     `json:"description"`
	Price        flexFloat  `json:"price"`
	ImageURL     string     `json:"imageURL"`
	CategoryID   flexString `json:"categoryId"`
	CategoryName string     `json:"categoryName"`
}

func (w productWire) product() domain.Product {
	return domain.Product{
		ID:          string(w.ProductID),
		Name:        w.ProductName,
		Description: w.Description,
		Price:       float64(w.Price),
		ImageURL:    w.ImageURL,
		Category:    w.CategoryName,
		CategoryID:  string(w.CategoryID),
	}
}

// Categories lists all categories. Shape or transport failures normalize to
// an empty list so screens keep rendering.
func (c *Client) Categories(ctx context.Context) []domain.Category {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Category", nil)
	if err != nil || !ok(status) {
		log.Printf("ERROR: fetching categories (status %d): %v", status, err)
		return []domain.Category{}
	}

	items := DecodeList(raw)
	categories := make([]domain.Category, 0, len(items))
	for _, item := range items {
		var wire categoryWire
		if err := json.Unmarshal(item, &wire); err != nil {
			continue
		}
		categories = append(categories, domain.Category{
			ID:          string(wire.CategoryID),
			Name:        wire.CategoryName,
			Description: wire.Description,
		})
	}
	return categories
}

func (c *Client) CreateCategory(ctx context.Context, name, description string) error {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Category", map[string]string{
		"categoryName": name,
		"description":  description,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) UpdateCategory(ctx context.Context, id, name, description string) error {
	raw, status, err := c.do(ctx, http.MethodPut, "/api/Category/"+id, map[string]string{
		"categoryId":   id,
		"categoryName": name,
		"description":  description,
	})
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	raw, status, err := c.do(ctx, http.MethodDelete, "/api/Category/"+id, nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) decodeProducts(raw []byte) []domain.Product {
	items := DecodeList(raw)
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		var wire productWire
		if err := json.Unmarshal(item, &wire); err != nil {
			continue
		}
		products = append(products, wire.product())
	}
	return products
}

// Products lists every product; failures normalize to an empty list.
func (c *Client) Products(ctx context.Context) []domain.Product {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Product", nil)
	if err != nil || !ok(status) {
		log.Printf("ERROR: fetching products (status %d): %v", status, err)
		return []domain.Product{}
	}
	return c.decodeProducts(raw)
}

func (c *Client) ProductsByCategory(ctx context.Context, categoryID string) []domain.Product {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Product/category/"+categoryID, nil)
	if err != nil || !ok(status) {
		log.Printf("ERROR: fetching products for category %s (status %d): %v", categoryID, status, err)
		return []domain.Product{}
	}
	return c.decodeProducts(raw)
}

func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/api/Product/"+id, nil)
	if err != nil {
		return nil, err
	}
	if !ok(status) {
		return nil, apiError(status, raw)
	}
	obj, found := DecodeObject(raw)
	if !found {
		return nil, apiError(status, raw)
	}
	var wire productWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, apiError(status, raw)
	}
	product := wire.product()
	return &product, nil
}

// ProductInput is the outgoing product payload; the server expects the
// imageURL spelling on writes as well.
type ProductInput struct {
	Name        string  `json:"productName"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageURL"`
	CategoryID  string  `json:"categoryId"`
	Status      bool    `json:"status"`
}

func (c *Client) CreateProduct(ctx context.Context, input ProductInput) error {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/Product", input)
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, input ProductInput) error {
	raw, status, err := c.do(ctx, http.MethodPut, "/api/Product/"+id, input)
	if err != nil {
		return err
	}
	if !ok(status) || failed(raw) {
		return apiError(status, raw)
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	raw, status, err := c.do(ctx, http.MethodDelete, "/api/Product/"+id, nil)
	if err != nil {
		return err
	}
	if !ok(status) {
		return apiError(status, raw)
	}
	return nil
}
