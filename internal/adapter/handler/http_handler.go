package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/auth"
	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/core/service"
)

type HTTPHandler struct {
	checkout  *service.CheckoutService
	dashboard *service.DashboardService
	inventory *service.InventoryService
	auth      *service.AuthService
	tokens    *auth.TokenIssuer
	logger    *zap.Logger
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AddItemRequest struct {
	ItemID int64 `json:"item_id"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type CustomerRequest struct {
	CustomerName  string `json:"customer_name"`
	PaymentMethod string `json:"payment_method"`
}

func NewHTTPHandler(
	checkout *service.CheckoutService,
	dashboard *service.DashboardService,
	inventory *service.InventoryService,
	authService *service.AuthService,
	tokens *auth.TokenIssuer,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		checkout:  checkout,
		dashboard: dashboard,
		inventory: inventory,
		auth:      authService,
		tokens:    tokens,
		logger:    logger,
	}
}

// Router builds the gin engine with every route behind its capability gate.
func (h *HTTPHandler) Router(store sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/health", h.HealthCheck)

	api := r.Group("/api", h.resolveProfile())
	{
		api.POST("/auth/signup", h.SignUp)
		api.POST("/auth/signin", h.SignIn)
		api.POST("/auth/signout", requireAuth(), h.SignOut)
		api.GET("/auth/me", requireAuth(), h.Me)

		api.GET("/dashboard", RequireCapability(domain.CapViewDashboard), h.Dashboard)

		pos := api.Group("/pos", RequireCapability(domain.CapCheckout))
		{
			pos.GET("/inventory", h.AvailableInventory)
			pos.GET("/cart", h.GetCart)
			pos.PUT("/cart", h.SetCustomer)
			pos.DELETE("/cart", h.ClearCart)
			pos.POST("/cart/items", h.AddToCart)
			pos.PUT("/cart/items/:id", h.UpdateQuantity)
			pos.DELETE("/cart/items/:id", h.RemoveFromCart)
			pos.POST("/checkout", h.Checkout)
		}

		admin := api.Group("", RequireCapability(domain.CapManageInventory))
		{
			admin.GET("/inventory", h.ListInventory)
			admin.GET("/categories", h.ListCategories)
			admin.POST("/inventory", h.CreateItem)
			admin.PUT("/inventory/:id", h.UpdateItem)
			admin.DELETE("/inventory/:id", h.DeleteItem)
		}
	}

	return r
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) SignUp(c *gin.Context) {
	var req domain.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	profile, err := h.auth.SignUp(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, profile)
}

func (h *HTTPHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionUserKey, session.Profile.ID)
	if err := sess.Save(); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, session)
}

func (h *HTTPHandler) SignOut(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := sess.Save(); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

func (h *HTTPHandler) Me(c *gin.Context) {
	profile, _ := domain.ProfileFromContext(c.Request.Context())
	respond(c, http.StatusOK, gin.H{
		"profile":      profile,
		"capabilities": profile.Role.Capabilities(),
	})
}

func (h *HTTPHandler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

func (h *HTTPHandler) AvailableInventory(c *gin.Context) {
	items, err := h.checkout.AvailableInventory(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h *HTTPHandler) GetCart(c *gin.Context) {
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.checkout.Cart(c.Request.Context(), sessionID)
	h.respondCart(c, cart, err)
}

func (h *HTTPHandler) SetCustomer(c *gin.Context) {
	var req CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.checkout.SetCustomer(c.Request.Context(), sessionID, req.CustomerName, req.PaymentMethod)
	h.respondCart(c, cart, err)
}

func (h *HTTPHandler) ClearCart(c *gin.Context) {
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.checkout.ClearCart(c.Request.Context(), sessionID); err != nil {
		fail(c, err)
		return
	}
	h.respondCart(c, domain.NewCart(), nil)
}

func (h *HTTPHandler) AddToCart(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID <= 0 {
		badRequest(c, "item_id is required")
		return
	}
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.checkout.AddToCart(c.Request.Context(), sessionID, req.ItemID)
	h.respondCart(c, cart, err)
}

func (h *HTTPHandler) UpdateQuantity(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.checkout.UpdateQuantity(c.Request.Context(), sessionID, itemID, *req.Quantity)
	h.respondCart(c, cart, err)
}

func (h *HTTPHandler) RemoveFromCart(c *gin.Context) {
	itemID, ok := pathID(c)
	if !ok {
		return
	}
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}
	cart, err := h.checkout.RemoveFromCart(c.Request.Context(), sessionID, itemID)
	h.respondCart(c, cart, err)
}

func (h *HTTPHandler) Checkout(c *gin.Context) {
	var req service.CommitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	sessionID, err := cartSession(c)
	if err != nil {
		fail(c, err)
		return
	}

	profile, _ := domain.ProfileFromContext(c.Request.Context())
	result, err := h.checkout.CommitOrder(c.Request.Context(), sessionID, req, profile)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (h *HTTPHandler) ListInventory(c *gin.Context) {
	filter := domain.InventoryFilter{Search: c.Query("search")}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, domain.MsgCategoryRequired)
			return
		}
		filter.CategoryID = id
	}

	items, err := h.inventory.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, items)
}

func (h *HTTPHandler) ListCategories(c *gin.Context) {
	categories, err := h.inventory.Categories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, categories)
}

func (h *HTTPHandler) CreateItem(c *gin.Context) {
	var in domain.InventoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	item, err := h.inventory.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in domain.InventoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	item, err := h.inventory.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *HTTPHandler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.inventory.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, nil)
}

func (h *HTTPHandler) respondCart(c *gin.Context, cart *domain.Cart, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"cart":       cart,
		"total":      cart.Total(),
		"item_count": cart.ItemCount(),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
