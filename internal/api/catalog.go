package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warranty-tracker/internal/models"
)

// ListCustomers retrieves saved customers, filtered by ?q=
func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.catalogService.ListCustomers(accountID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GetCustomer retrieves a single customer
func (h *Handler) GetCustomer(c *gin.Context) {
	customer, err := h.catalogService.GetCustomer(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// CreateCustomer adds a customer
func (h *Handler) CreateCustomer(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.CreateCustomer(accountID(c), &customer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer updates a customer
func (h *Handler) UpdateCustomer(c *gin.Context) {
	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.UpdateCustomer(accountID(c), c.Param("id"), &customer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer
func (h *Handler) DeleteCustomer(c *gin.Context) {
	if err := h.catalogService.DeleteCustomer(accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

// CustomerWarranties lists the warranties recorded for a customer
func (h *Handler) CustomerWarranties(c *gin.Context) {
	views, err := h.warrantyService.ForCustomer(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListProducts retrieves saved products
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(accountID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct retrieves a single saved product
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateProduct adds a saved product
func (h *Handler) CreateProduct(c *gin.Context) {
	var product models.SavedProduct
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.CreateProduct(accountID(c), &product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates a saved product
func (h *Handler) UpdateProduct(c *gin.Context) {
	var product models.SavedProduct
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.UpdateProduct(accountID(c), c.Param("id"), &product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a saved product
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// ListServices retrieves saved services
func (h *Handler) ListServices(c *gin.Context) {
	svcs, err := h.catalogService.ListServices(accountID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svcs)
}

// GetService retrieves a single saved service
func (h *Handler) GetService(c *gin.Context) {
	svc, err := h.catalogService.GetService(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// CreateService adds a saved service
func (h *Handler) CreateService(c *gin.Context) {
	var svc models.SavedService
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.CreateService(accountID(c), &svc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// UpdateService updates a saved service
func (h *Handler) UpdateService(c *gin.Context) {
	var svc models.SavedService
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalogService.UpdateService(accountID(c), c.Param("id"), &svc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// DeleteService removes a saved service
func (h *Handler) DeleteService(c *gin.Context) {
	if err := h.catalogService.DeleteService(accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

// ClearCatalog empties one catalog
func (h *Handler) ClearCatalog(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.catalogService.Clear(accountID(c), kind)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}
