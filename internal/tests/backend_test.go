package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"balama-storefront/internal/backend"
	"balama-storefront/internal/mocks"
	"balama-storefront/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

func newTestClient(t *testing.T, httpClient backend.HTTPClient) (*backend.Client, storage.KV) {
	t.Helper()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	return backend.NewClient("http://backend", httpClient, store), store
}

func requestTo(method, path string) interface{} {
	return mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == method && req.URL.Path == path
	})
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success derives user record", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", requestTo(http.MethodPost, "/api/Auth/login")).
			Return(jsonResponse(200, `{"token":"jwt-abc","userId":"u1","role":"Admin"}`), nil).Once()

		result, err := client.Login(ctx, "chef@balama.com", "secret")
		require.NoError(t, err)

		assert.Equal(t, "jwt-abc", result.Token)
		assert.Equal(t, "u1", result.User.ID)
		assert.Equal(t, "Admin", result.User.Role)
		// username falls back to the email local part
		assert.Equal(t, "chef", result.User.Username)
	})

	t.Run("unconfirmed email is its own error", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(401, `{"emailConfirmed":false,"message":"confirm first"}`), nil).Once()

		_, err := client.Login(ctx, "chef@balama.com", "secret")
		assert.ErrorIs(t, err, backend.ErrEmailNotConfirmed)
	})

	t.Run("numeric userId stays opaque", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(200, `{"token":"jwt","userId":12345}`), nil).Once()

		result, err := client.Login(ctx, "chef@balama.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "12345", result.User.ID)
	})

	t.Run("missing token is malformed", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(200, `{"userId":"u1"}`), nil).Once()

		_, err := client.Login(ctx, "chef@balama.com", "secret")
		assert.ErrorIs(t, err, backend.ErrMalformedAuth)
	})
}

func TestClient_AttachesBearerToken(t *testing.T) {
	ctx := context.Background()

	httpClient := mocks.NewHTTPClient(t)
	client, store := newTestClient(t, httpClient)
	require.NoError(t, store.Set(ctx, storage.KeyAuthToken, "jwt-abc"))

	httpClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Header.Get("Authorization") == "Bearer jwt-abc"
	})).Return(jsonResponse(200, `[]`), nil).Once()

	client.Categories(ctx)
}

func TestClient_AddToCart(t *testing.T) {
	ctx := context.Background()
	userID := "e778629f-c8c3-4f18-8e68-859d86c3495f"
	productID := "0b927641-1d06-4f0c-9e9e-2c3d8a5b7f10"

	t.Run("rejects non-positive quantity before any network call", func(t *testing.T) {
		client, _ := newTestClient(t, mocks.NewHTTPClient(t))

		err := client.AddToCart(ctx, userID, productID, 0)
		assert.ErrorIs(t, err, backend.ErrInvalidQuantity)
	})

	t.Run("rejects non-GUID product id before any network call", func(t *testing.T) {
		client, _ := newTestClient(t, mocks.NewHTTPClient(t))

		err := client.AddToCart(ctx, userID, "42", 1)
		assert.ErrorIs(t, err, backend.ErrNotGUID)
	})

	t.Run("rejects non-GUID user id before any network call", func(t *testing.T) {
		client, _ := newTestClient(t, mocks.NewHTTPClient(t))

		err := client.AddToCart(ctx, "not-a-guid", productID, 1)
		assert.ErrorIs(t, err, backend.ErrNotGUID)
	})

	t.Run("replaces the unknown sentinel with the fixed fallback id", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		var posted map[string]interface{}
		httpClient.On("Do", requestTo(http.MethodPost, "/api/Cart/add")).
			Run(func(args mock.Arguments) {
				req := args.Get(0).(*http.Request)
				body, _ := io.ReadAll(req.Body)
				json.Unmarshal(body, &posted)
			}).
			Return(jsonResponse(200, `{"isSuccess":true}`), nil).Once()
		httpClient.On("Do", requestTo(http.MethodGet, "/api/Cart/"+userID)).
			Return(jsonResponse(200, `{"cartId":"c1","products":{"$values":[]}}`), nil).Once()

		require.NoError(t, client.AddToCart(ctx, "unknown", productID, 2))
		assert.Equal(t, userID, posted["userId"])
		assert.Equal(t, float64(2), posted["quantity"])
	})

	t.Run("refetches the cart after a successful add", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, store := newTestClient(t, httpClient)

		httpClient.On("Do", requestTo(http.MethodPost, "/api/Cart/add")).
			Return(jsonResponse(200, `{"isSuccess":true}`), nil).Once()
		httpClient.On("Do", requestTo(http.MethodGet, "/api/Cart/"+userID)).
			Return(jsonResponse(200, `{"isSuccess":true,"data":{"cartId":"c1","products":{"$values":[]}}}`), nil).Once()

		require.NoError(t, client.AddToCart(ctx, userID, productID, 1))

		// the refetch cached the server-assigned cartId
		cached, err := store.Get(ctx, storage.CartIDKey(userID))
		require.NoError(t, err)
		assert.Equal(t, "c1", cached)
	})
}

func TestClient_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	userID := "e778629f-c8c3-4f18-8e68-859d86c3495f"
	productID := "0b927641-1d06-4f0c-9e9e-2c3d8a5b7f10"

	t.Run("zero quantity becomes the removal call", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, store := newTestClient(t, httpClient)
		require.NoError(t, store.Set(ctx, storage.CartIDKey(userID), "c1"))

		var put map[string]interface{}
		httpClient.On("Do", requestTo(http.MethodPut, "/api/Cart")).
			Run(func(args mock.Arguments) {
				req := args.Get(0).(*http.Request)
				body, _ := io.ReadAll(req.Body)
				json.Unmarshal(body, &put)
			}).
			Return(jsonResponse(200, `{"isSuccess":true}`), nil).Once()

		require.NoError(t, client.UpdateQuantity(ctx, userID, productID, 0))

		assert.Equal(t, "c1", put["cartId"])
		assert.Equal(t, productID, put["productId"])
		assert.Equal(t, float64(0), put["quantity"])
	})

	t.Run("negative quantity also becomes the removal call", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, store := newTestClient(t, httpClient)
		require.NoError(t, store.Set(ctx, storage.CartIDKey(userID), "c1"))

		var put map[string]interface{}
		httpClient.On("Do", requestTo(http.MethodPut, "/api/Cart")).
			Run(func(args mock.Arguments) {
				req := args.Get(0).(*http.Request)
				body, _ := io.ReadAll(req.Body)
				json.Unmarshal(body, &put)
			}).
			Return(jsonResponse(200, `{"isSuccess":true}`), nil).Once()

		require.NoError(t, client.UpdateQuantity(ctx, userID, productID, -1))

		assert.Equal(t, "c1", put["cartId"])
		assert.Equal(t, float64(0), put["quantity"])
	})

	t.Run("positive quantity is a plain line update", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, store := newTestClient(t, httpClient)
		require.NoError(t, store.Set(ctx, storage.CartIDKey(userID), "c1"))

		var put map[string]interface{}
		httpClient.On("Do", requestTo(http.MethodPut, "/api/Cart")).
			Run(func(args mock.Arguments) {
				req := args.Get(0).(*http.Request)
				body, _ := io.ReadAll(req.Body)
				json.Unmarshal(body, &put)
			}).
			Return(jsonResponse(200, `{"isSuccess":true}`), nil).Once()

		require.NoError(t, client.UpdateQuantity(ctx, userID, productID, 3))
		assert.Equal(t, float64(3), put["quantity"])
	})
}

func TestClient_RemoveFromCart_RequiresIDs(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, mocks.NewHTTPClient(t))

	assert.ErrorIs(t, client.RemoveFromCart(ctx, "", "p1"), backend.ErrMissingField)
	assert.ErrorIs(t, client.RemoveFromCart(ctx, "u1", ""), backend.ErrMissingField)
}

func TestClient_Products(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes wire shape", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", requestTo(http.MethodGet, "/api/Product")).
			Return(jsonResponse(200, `{"$id":"1","$values":[
				{"productId":"p1","productName":"Plov","price":"45000","imageURL":"http://img/plov.png"},
				{"productId":"p2","productName":"Lagman","price":38000.5}
			]}`), nil).Once()

		products := client.Products(ctx)
		require.Len(t, products, 2)

		assert.Equal(t, "Plov", products[0].Name)
		assert.Equal(t, 45000.0, products[0].Price)
		assert.Equal(t, "http://img/plov.png", products[0].ImageURL)
		assert.Equal(t, 38000.5, products[1].Price)
	})

	t.Run("transport failure yields empty list", func(t *testing.T) {
		httpClient := mocks.NewHTTPClient(t)
		client, _ := newTestClient(t, httpClient)

		httpClient.On("Do", mock.Anything).
			Return(jsonResponse(500, `boom`), nil).Once()

		products := client.Products(ctx)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})
}

func TestClient_Cart_UnwrapsNestedProducts(t *testing.T) {
	ctx := context.Background()
	httpClient := mocks.NewHTTPClient(t)
	client, _ := newTestClient(t, httpClient)

	httpClient.On("Do", requestTo(http.MethodGet, "/api/Cart/u1")).
		Return(jsonResponse(200, `{"isSuccess":true,"data":{"cartId":"c1","userId":"u1","products":{"$id":"2","$values":[
			{"productId":"p1","productName":"Plov","price":45000,"quantity":2}
		]}}}`), nil).Once()

	cart, err := client.Cart(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "c1", cart.CartID)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, "p1", cart.Products[0].ProductID)
	assert.Equal(t, 2, cart.Products[0].Quantity)
}

func TestClient_CreateDelivery_FallsBackToGeneratedID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		resp *http.Response
	}{
		{name: "server error", resp: jsonResponse(500, `boom`)},
		{name: "no id in response", resp: jsonResponse(200, `{"isSuccess":true,"data":{}}`)},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			httpClient := mocks.NewHTTPClient(t)
			client, _ := newTestClient(t, httpClient)

			httpClient.On("Do", requestTo(http.MethodPost, "/api/Delivery")).
				Return(testCase.resp, nil).Once()

			id, err := client.CreateDelivery(ctx, "2026-09-01", "Express", "+998901112233")
			require.NoError(t, err)

			_, parseErr := uuid.Parse(id)
			assert.NoError(t, parseErr, "fallback id must be a valid GUID")
		})
	}
}

func TestClient_CreateOrder_RequiresFields(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t, mocks.NewHTTPClient(t))

	_, err := client.CreateOrder(ctx, backend.OrderRequest{UserID: "u1"})
	assert.ErrorIs(t, err, backend.ErrMissingOrderFields)
}
