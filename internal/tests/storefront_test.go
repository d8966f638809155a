package tests

import (
	"context"
	"errors"
	"testing"

	"balama-storefront/internal/backend"
	"balama-storefront/internal/domain"
	"balama-storefront/internal/mocks"
	"balama-storefront/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID = "7f1c2ab0-3c44-4b7e-9a11-52a9f0de8b01"

func newStorefront(t *testing.T) (*service.Storefront, *mocks.Sessions, *mocks.Backend, *mocks.EventPublisher, *mocks.QRGenerator) {
	t.Helper()
	sessions := mocks.NewSessions(t)
	api := mocks.NewBackend(t)
	publisher := mocks.NewEventPublisher(t)
	qr := mocks.NewQRGenerator(t)

	shop := service.NewStorefront(sessions, api, publisher, qr)
	shop.DetailDelay = 0
	return shop, sessions, api, publisher, qr
}

func validCheckoutForm() service.CheckoutForm {
	return service.CheckoutForm{
		ConsigneeName:  "Aliya",
		DeliverAddress: "Tashkent, Chilonzor 5",
		PhoneNumber:    "+998901112233",
		SupplierName:   "Express",
		SupplierPhone:  "+998907778899",
	}
}

func twoItemCart() *domain.Cart {
	return &domain.Cart{
		CartID: "c1",
		UserID: testUserID,
		Products: []domain.CartItem{
			{ProductID: "p1", ProductName: "Plov", Price: 50000, Quantity: 2},
			{ProductID: "p2", ProductName: "Lagman", Price: 30000, Quantity: 1},
		},
	}
}

func TestStorefront_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("full saga with client-derived total", func(t *testing.T) {
		shop, sessions, api, publisher, _ := newStorefront(t)

		sessions.On("UserID", mock.Anything).Return(testUserID, nil)
		api.On("Cart", mock.Anything, testUserID).Return(twoItemCart(), nil).Once()
		api.On("CreateDelivery", mock.Anything, "", "Express", "+998907778899").
			Return("d1", nil).Once()
		api.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req backend.OrderRequest) bool {
			return req.UserID == testUserID && req.DeliveryID == "d1" && req.TotalPrice == 130000
		})).Return("o1", nil).Once()
		api.On("CreateOrderDetails", mock.Anything, "o1", mock.MatchedBy(func(lines []domain.OrderLine) bool {
			return len(lines) == 2 && lines[0].ProductID == "p1" && lines[0].Quantity == 2
		})).Return(nil).Once()
		publisher.On("PublishOrderPlaced", mock.Anything, mock.MatchedBy(func(event domain.OrderEvent) bool {
			return event.OrderID == "o1" && event.Total == 130000 && event.Items == 2
		})).Return(nil).Once()
		api.On("Cart", mock.Anything, testUserID).
			Return(&domain.Cart{CartID: "c1", Products: []domain.CartItem{}}, nil).Once()

		result, err := shop.Checkout(ctx, validCheckoutForm())
		require.NoError(t, err)

		assert.Equal(t, "o1", result.OrderID)
		assert.Equal(t, 130000.0, result.Total)
		assert.Equal(t, 2, result.Items)
	})

	t.Run("line item failure still completes the order", func(t *testing.T) {
		shop, sessions, api, publisher, _ := newStorefront(t)

		sessions.On("UserID", mock.Anything).Return(testUserID, nil)
		api.On("Cart", mock.Anything, testUserID).Return(twoItemCart(), nil).Once()
		api.On("CreateDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("d1", nil).Once()
		api.On("CreateOrder", mock.Anything, mock.Anything).Return("o1", nil).Once()
		api.On("CreateOrderDetails", mock.Anything, "o1", mock.Anything).
			Return(errors.New("detail endpoint down")).Once()
		publisher.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Once()
		api.On("Cart", mock.Anything, testUserID).
			Return(&domain.Cart{Products: []domain.CartItem{}}, nil).Once()

		result, err := shop.Checkout(ctx, validCheckoutForm())
		require.NoError(t, err)
		assert.Equal(t, "o1", result.OrderID)
	})

	t.Run("existing delivery id skips carrier creation", func(t *testing.T) {
		shop, sessions, api, publisher, _ := newStorefront(t)

		form := validCheckoutForm()
		form.DeliveryID = "9d3f4c2e-0a1b-4c5d-8e7f-6a5b4c3d2e1f"

		sessions.On("UserID", mock.Anything).Return(testUserID, nil)
		api.On("Cart", mock.Anything, testUserID).Return(twoItemCart(), nil).Once()
		api.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req backend.OrderRequest) bool {
			return req.DeliveryID == form.DeliveryID
		})).Return("o1", nil).Once()
		api.On("CreateOrderDetails", mock.Anything, "o1", mock.Anything).Return(nil).Once()
		publisher.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Once()
		api.On("Cart", mock.Anything, testUserID).
			Return(&domain.Cart{Products: []domain.CartItem{}}, nil).Once()

		_, err := shop.Checkout(ctx, form)
		require.NoError(t, err)
	})

	t.Run("empty cart aborts before any order call", func(t *testing.T) {
		shop, sessions, api, _, _ := newStorefront(t)

		sessions.On("UserID", mock.Anything).Return(testUserID, nil)
		api.On("Cart", mock.Anything, testUserID).
			Return(&domain.Cart{Products: []domain.CartItem{}}, nil).Once()

		_, err := shop.Checkout(ctx, validCheckoutForm())
		assert.ErrorIs(t, err, service.ErrEmptyCart)
	})

	t.Run("missing consignee fails validation", func(t *testing.T) {
		shop, _, _, _, _ := newStorefront(t)

		form := validCheckoutForm()
		form.ConsigneeName = ""

		_, err := shop.Checkout(ctx, form)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("supplier fields required without delivery id", func(t *testing.T) {
		shop, _, _, _, _ := newStorefront(t)

		form := validCheckoutForm()
		form.SupplierName = ""

		_, err := shop.Checkout(ctx, form)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("order creation failure propagates", func(t *testing.T) {
		shop, sessions, api, _, _ := newStorefront(t)

		sessions.On("UserID", mock.Anything).Return(testUserID, nil)
		api.On("Cart", mock.Anything, testUserID).Return(twoItemCart(), nil).Once()
		api.On("CreateDelivery", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("d1", nil).Once()
		api.On("CreateOrder", mock.Anything, mock.Anything).
			Return("", errors.New("order rejected")).Once()

		_, err := shop.Checkout(ctx, validCheckoutForm())
		assert.EqualError(t, err, "order rejected")
	})
}

func TestStorefront_Orders_DerivesMissingTotals(t *testing.T) {
	ctx := context.Background()
	shop, sessions, api, _, _ := newStorefront(t)

	sessions.On("UserID", mock.Anything).Return(testUserID, nil)
	api.On("UserOrders", mock.Anything, testUserID).Return([]domain.Order{
		{
			OrderID:    "o1",
			TotalPrice: 0,
			Lines: []domain.OrderLine{
				{ProductID: "p1", Price: 50000, Quantity: 2},
				{ProductID: "p2", Price: 30000, Quantity: 1},
			},
		},
		{OrderID: "o2", TotalPrice: 99000},
	}, nil).Once()
	api.On("UpdateOrderTotal", mock.Anything, "o1", 130000.0).Return(nil).Once()

	orders, err := shop.Orders(ctx)
	require.NoError(t, err)

	assert.Equal(t, 130000.0, orders[0].TotalPrice)
	// a server-provided total is never recomputed or written back
	assert.Equal(t, 99000.0, orders[1].TotalPrice)
}

func TestStorefront_Orders_WriteBackFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	shop, sessions, api, _, _ := newStorefront(t)

	sessions.On("UserID", mock.Anything).Return(testUserID, nil)
	api.On("UserOrders", mock.Anything, testUserID).Return([]domain.Order{
		{OrderID: "o1", Lines: []domain.OrderLine{{Price: 10000, Quantity: 1}}},
	}, nil).Once()
	api.On("UpdateOrderTotal", mock.Anything, "o1", 10000.0).
		Return(errors.New("readonly")).Once()

	orders, err := shop.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, orders[0].TotalPrice)
}

func TestStorefront_AllOrders_FallsBackToAdminAccount(t *testing.T) {
	ctx := context.Background()
	shop, _, api, _, _ := newStorefront(t)

	api.On("AllOrders", mock.Anything).
		Return(nil, errors.New("endpoint gone")).Once()
	api.On("UserOrders", mock.Anything, "2e2b29dd-6c2d-4dc6-b1cf-8f900c124d0d").
		Return([]domain.Order{{OrderID: "o1", TotalPrice: 5000}}, nil).Once()

	orders, err := shop.AllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].OrderID)
}

func TestStorefront_CartOperationsResolveUser(t *testing.T) {
	ctx := context.Background()
	shop, sessions, api, _, _ := newStorefront(t)

	sessions.On("UserID", mock.Anything).Return(testUserID, nil)
	api.On("AddToCart", mock.Anything, testUserID, "p1", 2).Return(nil).Once()
	api.On("UpdateQuantity", mock.Anything, testUserID, "p1", 3).Return(nil).Once()
	api.On("RemoveFromCart", mock.Anything, testUserID, "p1").Return(nil).Once()

	require.NoError(t, shop.AddToCart(ctx, "p1", 2))
	require.NoError(t, shop.SetQuantity(ctx, "p1", 3))
	require.NoError(t, shop.RemoveFromCart(ctx, "p1"))
}

func TestStorefront_ProductForm(t *testing.T) {
	ctx := context.Background()

	t.Run("valid form reaches the backend", func(t *testing.T) {
		shop, _, api, _, _ := newStorefront(t)

		api.On("CreateProduct", mock.Anything, mock.MatchedBy(func(input backend.ProductInput) bool {
			return input.Name == "Plov" && input.Status
		})).Return(nil).Once()

		err := shop.CreateProduct(ctx, service.ProductForm{
			Name:       "Plov",
			Price:      45000,
			CategoryID: "cat1",
		})
		require.NoError(t, err)
	})

	t.Run("zero price fails validation", func(t *testing.T) {
		shop, _, _, _, _ := newStorefront(t)

		err := shop.CreateProduct(ctx, service.ProductForm{Name: "Plov", CategoryID: "cat1"})
		assert.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestStorefront_OrderQR(t *testing.T) {
	shop, _, _, _, qr := newStorefront(t)

	qr.On("Generate", "o1").Return([]byte{0x89, 'P', 'N', 'G'}, nil).Once()

	png, err := shop.OrderQR("o1")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestTrackingQRGenerator(t *testing.T) {
	generator := service.NewTrackingQRGenerator("http://localhost:8080")

	png, err := generator.Generate("o1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, png[:4], "output must be a PNG")
}
