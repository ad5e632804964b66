package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/services"
	"warranty-tracker/internal/warranty"
)

// Handler holds service dependencies
type Handler struct {
	authService     *services.AuthService
	warrantyService *services.WarrantyService
	catalogService  *services.CatalogService
	settingsService *services.SettingsService
	exportService   *services.ExportService
	monitorService  *services.MonitorService
	notifyService   *services.NotifyService
}

// Services bundles what the handlers need
type Services struct {
	Auth     *services.AuthService
	Warranty *services.WarrantyService
	Catalog  *services.CatalogService
	Settings *services.SettingsService
	Export   *services.ExportService
	Monitor  *services.MonitorService
	Notify   *services.NotifyService
}

// NewHandler creates a new API handler
func NewHandler(s Services) *Handler {
	return &Handler{
		authService:     s.Auth,
		warrantyService: s.Warranty,
		catalogService:  s.Catalog,
		settingsService: s.Settings,
		exportService:   s.Export,
		monitorService:  s.Monitor,
		notifyService:   s.Notify,
	}
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/health", handler.Health)

	public := r.Group("/api/v1")
	{
		// Authentication (no auth required)
		public.POST("/auth/register", handler.Register)
		public.POST("/auth/login", handler.Login)
		public.POST("/auth/validate", handler.ValidateToken)
	}

	api := r.Group("/api/v1", AuthMiddleware(handler.authService))
	{
		api.POST("/auth/change-password", handler.ChangePassword)
		api.GET("/auth/me", handler.Me)

		// Warranty management
		api.GET("/warranties", handler.ListWarranties)
		api.POST("/warranties", handler.CreateWarranty)
		api.DELETE("/warranties", handler.ClearWarranties)
		api.POST("/warranties/preview", handler.PreviewWarranty)
		api.POST("/warranties/submit", handler.SubmitWarranty)
		api.POST("/warranties/bulk-delete", handler.BulkDeleteWarranties)
		api.GET("/warranties/export", handler.ExportWarranties)
		api.GET("/warranties/:id", handler.GetWarranty)
		api.PUT("/warranties/:id", handler.UpdateWarranty)
		api.DELETE("/warranties/:id", handler.DeleteWarranty)
		api.POST("/warranties/:id/notify", handler.NotifyCustomer)

		// New entity reconciliation
		api.GET("/submissions/:id", handler.GetSubmission)
		api.POST("/submissions/:id/confirm", handler.ConfirmSubmission)
		api.POST("/submissions/:id/skip", handler.SkipSubmission)

		// Catalogs
		api.GET("/customers", handler.ListCustomers)
		api.POST("/customers", handler.CreateCustomer)
		api.DELETE("/customers", handler.ClearCatalog("customers"))
		api.GET("/customers/:id", handler.GetCustomer)
		api.PUT("/customers/:id", handler.UpdateCustomer)
		api.DELETE("/customers/:id", handler.DeleteCustomer)
		api.GET("/customers/:id/warranties", handler.CustomerWarranties)

		api.GET("/products", handler.ListProducts)
		api.POST("/products", handler.CreateProduct)
		api.DELETE("/products", handler.ClearCatalog("products"))
		api.GET("/products/:id", handler.GetProduct)
		api.PUT("/products/:id", handler.UpdateProduct)
		api.DELETE("/products/:id", handler.DeleteProduct)

		api.GET("/services", handler.ListServices)
		api.POST("/services", handler.CreateService)
		api.DELETE("/services", handler.ClearCatalog("services"))
		api.GET("/services/:id", handler.GetService)
		api.PUT("/services/:id", handler.UpdateService)
		api.DELETE("/services/:id", handler.DeleteService)

		// Dashboard statistics
		api.GET("/dashboard/stats", handler.GetStats)
		api.GET("/dashboard/expiring", handler.GetExpiring)

		// Notifications
		api.GET("/notifications", handler.ListNotifications)
		api.POST("/test/notification/:id", handler.TestNotification)

		// Account settings and data
		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.UpdateSettings)
		api.DELETE("/data", handler.ClearData)
		api.GET("/backup", handler.Backup)
		api.POST("/restore", handler.Restore)

		// Sub-users (owner only)
		users := api.Group("/users", OwnerOnly())
		users.GET("", handler.ListUsers)
		users.POST("", handler.CreateUser)
		users.DELETE("/:id", handler.DeactivateUser)
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register creates a company account and its owner login
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		CompanyName string `json:"company_name" binding:"required"`
		Username    string `json:"username" binding:"required"`
		Email       string `json:"email"`
		Password    string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(req.CompanyName, req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userJSON(user)})
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	user, token, err := h.authService.Login(loginReq.Username, loginReq.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userJSON(user),
	})
}

// ValidateToken validates JWT token
func (h *Handler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	claims, err := h.authService.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"user": gin.H{
			"id":         claims.UserID,
			"account_id": claims.AccountID,
			"username":   claims.Username,
			"role":       claims.Role,
		},
	})
}

// Me returns the caller's identity and company
func (h *Handler) Me(c *gin.Context) {
	company, err := h.authService.CompanyName(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           c.GetUint(ctxUserID),
		"account_id":   accountID(c),
		"username":     c.GetString(ctxUsername),
		"role":         c.GetString(ctxRole),
		"company_name": company,
	})
}

// ChangePassword handles password change
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all fields are required"})
		return
	}

	if err := h.authService.ChangePassword(c.GetUint(ctxUserID), req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed, please log in again"})
}

// ListUsers lists the logins of the caller's account
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateUser adds a member login
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.CreateSubUser(accountID(c), req.Username, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, userJSON(user))
}

// DeactivateUser disables a member login
func (h *Handler) DeactivateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.authService.DeactivateUser(accountID(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"account_id": user.AccountID,
		"username":   user.Username,
		"email":      user.Email,
		"role":       user.Role,
		"is_active":  user.IsActive,
	}
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrNoNotifier):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountDisabled),
		errors.Is(err, services.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, warranty.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString(ctxRequestID)).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
