package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"warranty-tracker/internal/services"
)

// GetStats retrieves dashboard statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.warrantyService.Stats(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetExpiring retrieves warranties in their reminder window, soonest first
func (h *Handler) GetExpiring(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	views, err := h.warrantyService.Expiring(accountID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListNotifications retrieves notification history
func (h *Handler) ListNotifications(c *gin.Context) {
	notifications, err := h.notifyService.History(accountID(c), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// GetSettings retrieves the account settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings updates the account settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings services.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settingsService.Update(accountID(c), settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// ClearData deletes one kind of record, or everything with ?type=all
func (h *Handler) ClearData(c *gin.Context) {
	var (
		deleted int64
		err     error
	)
	switch kind := c.Query("type"); kind {
	case "warranties":
		deleted, err = h.warrantyService.Clear(accountID(c))
	case "customers", "products", "services":
		deleted, err = h.catalogService.Clear(accountID(c), kind)
	case "all":
		err = h.exportService.ClearAll(accountID(c))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be warranties, customers, products, services or all"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data cleared successfully", "deleted": deleted})
}

// Backup downloads all account data as JSON
func (h *Handler) Backup(c *gin.Context) {
	backup, err := h.exportService.Backup(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="warranty-backup.json"`)
	c.JSON(http.StatusOK, backup)
}

// Restore replaces all account data with an uploaded backup
func (h *Handler) Restore(c *gin.Context) {
	var backup services.Backup
	if err := c.ShouldBindJSON(&backup); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.exportService.Restore(accountID(c), &backup); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Backup restored successfully",
		"warranties": len(backup.Warranties),
		"customers":  len(backup.Customers),
		"products":   len(backup.Products),
		"services":   len(backup.Services),
	})
}
