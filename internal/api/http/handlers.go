package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"balama-storefront/internal/backend"
	"balama-storefront/internal/domain"
	"balama-storefront/internal/nav"
	"balama-storefront/internal/service"
	"balama-storefront/internal/session"
)

// Handler serves the screen endpoints. Every data route goes through the
// navigation gate first so a request can never reach a screen its stack
// does not expose.
type Handler struct {
	Sessions *session.Manager
	Shop     service.StorefrontInterface
	Nav      *nav.Dispatcher

	validate *validator.Validate
}

func NewHandler(sessions *session.Manager, shop service.StorefrontInterface, dispatcher *nav.Dispatcher) *Handler {
	return &Handler{
		Sessions: sessions,
		Shop:     shop,
		Nav:      dispatcher,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/session", h.getSession).Methods("GET")
	r.HandleFunc("/api/session/login", h.login).Methods("POST")
	r.HandleFunc("/api/session/register", h.register).Methods("POST")
	r.HandleFunc("/api/session/logout", h.logout).Methods("POST")
	r.HandleFunc("/api/session/resend-confirmation", h.resendConfirmation).Methods("POST")
	r.HandleFunc("/confirm-email", h.confirmEmail).Methods("GET")

	r.HandleFunc("/api/home", h.getHome).Methods("GET")
	r.HandleFunc("/api/menu", h.getMenu).Methods("GET")
	r.HandleFunc("/api/products/{id}", h.getProduct).Methods("GET")

	r.HandleFunc("/api/cart", h.getCart).Methods("GET")
	r.HandleFunc("/api/cart/items", h.addCartItem).Methods("POST")
	r.HandleFunc("/api/cart/items", h.updateCartItem).Methods("PUT")
	r.HandleFunc("/api/cart/items/{productId}", h.removeCartItem).Methods("DELETE")
	r.HandleFunc("/api/cart/checkout", h.checkout).Methods("POST")
	r.HandleFunc("/api/deliveries", h.getDeliveries).Methods("GET")

	r.HandleFunc("/api/orders", h.getOrders).Methods("GET")
	r.HandleFunc("/api/orders/{id}", h.getOrder).Methods("GET")
	r.HandleFunc("/api/orders/{id}/qrcode", h.getOrderQRCode).Methods("GET")

	r.HandleFunc("/api/admin/orders", h.getAllOrders).Methods("GET")
	r.HandleFunc("/api/admin/orders/{id}/status", h.updateOrderStatus).Methods("PUT")
	r.HandleFunc("/api/admin/orders/{id}", h.deleteOrder).Methods("DELETE")
	r.HandleFunc("/api/admin/products", h.createProduct).Methods("POST")
	r.HandleFunc("/api/admin/products/{id}", h.updateProduct).Methods("PUT")
	r.HandleFunc("/api/admin/products/{id}", h.deleteProduct).Methods("DELETE")
	r.HandleFunc("/api/admin/categories", h.createCategory).Methods("POST")
	r.HandleFunc("/api/admin/categories/{id}", h.updateCategory).Methods("PUT")
	r.HandleFunc("/api/admin/categories/{id}", h.deleteCategory).Methods("DELETE")
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "storefront",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// requireMain gates the authenticated screens. While the session is still
// restoring, callers get 503 so they retry instead of bouncing to login.
func (h *Handler) requireMain(w http.ResponseWriter) bool {
	switch nav.StackFor(h.Sessions.State()) {
	case nav.StackMain:
		return true
	case nav.StackLoading:
		http.Error(w, "session restore in progress", http.StatusServiceUnavailable)
		return false
	default:
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "not signed in",
			"screen": string(nav.ScreenLogin),
		})
		return false
	}
}

// requireAdmin enforces the admin screens. A signed-in non-admin reaching
// an admin route means the persisted role and the server disagree, so the
// session is dropped, not just denied.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !h.requireMain(w) {
		return false
	}
	if !h.Sessions.IsAdmin() {
		h.Sessions.Logout(r.Context())
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  "admin access required",
			"screen": string(nav.ScreenLogin),
		})
		return false
	}
	return true
}

type sessionResponse struct {
	State   string       `json:"state"`
	Stack   string       `json:"stack"`
	Screen  string       `json:"screen"`
	User    *domain.User `json:"user,omitempty"`
	IsAdmin bool         `json:"isAdmin"`
	Error   string       `json:"error,omitempty"`
}

func (h *Handler) sessionView() sessionResponse {
	state := h.Sessions.State()
	screen, _ := h.Nav.Current()
	return sessionResponse{
		State:   state.String(),
		Stack:   string(nav.StackFor(state)),
		Screen:  string(screen),
		User:    h.Sessions.CurrentUser(),
		IsAdmin: h.Sessions.IsAdmin(),
		Error:   h.Sessions.Err(),
	}
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessionView())
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Sessions.Login(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, backend.ErrEmailNotConfirmed) {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error":  "email not confirmed",
				"screen": string(nav.ScreenEmailConfirm),
			})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	h.Nav.Navigate(nav.ScreenHome, nil)
	writeJSON(w, http.StatusOK, h.sessionView())
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FullName        string `json:"fullName" validate:"required"`
	Phone           string `json:"phone" validate:"omitempty,min=9,max=15"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	outcome, err := h.Sessions.Register(r.Context(), domain.RegisterForm{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if outcome.SessionEstablished {
		h.Nav.Navigate(nav.ScreenHome, nil)
		writeJSON(w, http.StatusOK, h.sessionView())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": outcome.Message,
		"screen":  string(nav.ScreenEmailConfirm),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context())
	h.Nav.Navigate(nav.ScreenLogin, nil)
	writeJSON(w, http.StatusOK, h.sessionView())
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.ResendConfirmation(r.Context(), req.Email); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "confirmation email sent"})
}

// confirmEmail is the deep-link target. The raw URL goes through the same
// parsing as an external link so malformed links are ignored the same way.
func (h *Handler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	if !nav.HandleDeepLink(h.Nav, r.URL.String()) {
		http.Error(w, "invalid confirmation link", http.StatusBadRequest)
		return
	}
	_, params := h.Nav.Current()
	if err := h.Shop.ConfirmEmail(r.Context(), params["token"]); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	h.Nav.Navigate(nav.ScreenLogin, nil)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "email confirmed",
		"screen":  string(nav.ScreenLogin),
	})
}

func (h *Handler) getHome(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.Shop.Categories(r.Context()),
		"products":   h.Shop.Products(r.Context()),
	})
}

func (h *Handler) getMenu(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	categoryID := r.URL.Query().Get("categoryId")
	var products []domain.Product
	if categoryID == "" {
		products = h.Shop.Products(r.Context())
	} else {
		products = h.Shop.ProductsByCategory(r.Context(), categoryID)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.Shop.Categories(r.Context()),
		"products":   products,
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	product, err := h.Shop.Product(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	cart, err := h.Shop.Cart(r.Context())
	if err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.AddToCart(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.writeShopError(w, err)
		return
	}
	h.respondWithCart(w, r)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.SetQuantity(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.writeShopError(w, err)
		return
	}
	h.respondWithCart(w, r)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	if err := h.Shop.RemoveFromCart(r.Context(), mux.Vars(r)["productId"]); err != nil {
		h.writeShopError(w, err)
		return
	}
	h.respondWithCart(w, r)
}

func (h *Handler) respondWithCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.Shop.Cart(r.Context())
	if err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) getDeliveries(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.Shop.Deliveries(r.Context()))
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	var form service.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.Shop.Checkout(r.Context(), form)
	if err != nil {
		h.writeShopError(w, err)
		return
	}
	h.Nav.Navigate(nav.ScreenOrders, map[string]string{"orderId": result.OrderID})
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) getOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	orders, err := h.Shop.Orders(r.Context())
	if err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	order, err := h.Shop.Order(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	if !h.requireMain(w) {
		return
	}
	qrCode, err := h.Shop.OrderQR(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "QR code not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qrCode)
}

func (h *Handler) getAllOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	orders, err := h.Shop.AllOrders(r.Context())
	if err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.UpdateOrderStatus(r.Context(), mux.Vars(r)["id"], req.Status); err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.Shop.DeleteOrder(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeShopError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var form service.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.CreateProduct(r.Context(), form); err != nil {
		h.writeShopError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var form service.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.UpdateProduct(r.Context(), mux.Vars(r)["id"], form); err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "product updated"})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.Shop.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeShopError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var form service.CategoryForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.CreateCategory(r.Context(), form); err != nil {
		h.writeShopError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	var form service.CategoryForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Shop.UpdateCategory(r.Context(), mux.Vars(r)["id"], form); err != nil {
		h.writeShopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category updated"})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.Shop.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeShopError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeShopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoUser):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "not signed in",
			"screen": string(nav.ScreenLogin),
		})
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, backend.ErrInvalidQuantity),
		errors.Is(err, backend.ErrNotGUID),
		errors.Is(err, backend.ErrMissingOrderFields):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			// a 2xx can still carry an API error (order created without an
			// orderId); never answer a shop failure with a success status
			status := apiErr.Status
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			writeJSON(w, status, map[string]string{"error": apiErr.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
