package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"warranty-tracker/internal/models"
	"warranty-tracker/internal/services"
	"warranty-tracker/internal/warranty"
)

// ListWarranties retrieves warranties, filtered by ?q= and ?status=
func (h *Handler) ListWarranties(c *gin.Context) {
	filter := services.ListFilter{Query: c.Query("q")}
	if raw := c.Query("status"); raw != "" && raw != "all" {
		status, ok := warranty.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		filter.Status = status
	}

	views, err := h.warrantyService.List(accountID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetWarranty retrieves a single warranty
func (h *Handler) GetWarranty(c *gin.Context) {
	view, err := h.warrantyService.Get(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// CreateWarranty stores a warranty without reconciliation
func (h *Handler) CreateWarranty(c *gin.Context) {
	var w models.Warranty
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.warrantyService.Create(accountID(c), &w); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.warrantyService.View(w, h.settingsService.ReminderDays(accountID(c))))
}

// UpdateWarranty replaces a warranty
func (h *Handler) UpdateWarranty(c *gin.Context) {
	var w models.Warranty
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.warrantyService.Update(accountID(c), c.Param("id"), &w); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.warrantyService.View(w, h.settingsService.ReminderDays(accountID(c))))
}

// DeleteWarranty removes a warranty
func (h *Handler) DeleteWarranty(c *gin.Context) {
	if err := h.warrantyService.Delete(accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Warranty deleted successfully"})
}

// BulkDeleteWarranties removes the selected warranties
func (h *Handler) BulkDeleteWarranties(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.warrantyService.BulkDelete(accountID(c), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(req.IDs), "deleted": deleted})
}

// ClearWarranties removes every warranty of the account
func (h *Handler) ClearWarranties(c *gin.Context) {
	deleted, err := h.warrantyService.Clear(accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// PreviewWarranty computes expiry dates and status of an unsaved warranty
func (h *Handler) PreviewWarranty(c *gin.Context) {
	var w models.Warranty
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.warrantyService.Preview(accountID(c), w)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitWarranty saves a previewed warranty, or returns the new entities to
// confirm first
func (h *Handler) SubmitWarranty(c *gin.Context) {
	var w models.Warranty
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.warrantyService.Submit(accountID(c), c.GetUint(ctxUserID), w)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.SubmissionID != "" {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// GetSubmission returns a parked submission with its proposal
func (h *Handler) GetSubmission(c *gin.Context) {
	pending, err := h.warrantyService.GetPending(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// ConfirmSubmission saves the selected new entities and the warranty. An
// empty body saves everything proposed.
func (h *Handler) ConfirmSubmission(c *gin.Context) {
	var req struct {
		SaveCustomer *bool    `json:"save_customer"`
		Products     []string `json:"products"`
		Services     []string `json:"services"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sel warranty.Selection
	if req.SaveCustomer == nil && req.Products == nil && req.Services == nil {
		pending, err := h.warrantyService.GetPending(accountID(c), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		sel = warranty.SelectAll(pending.Proposal)
	} else {
		sel = warranty.Selection{Products: req.Products, Services: req.Services}
		if req.SaveCustomer != nil {
			sel.SaveCustomer = *req.SaveCustomer
		}
	}

	result, err := h.warrantyService.Resolve(accountID(c), c.Param("id"), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// SkipSubmission saves the warranty without any new entities
func (h *Handler) SkipSubmission(c *gin.Context) {
	result, err := h.warrantyService.Skip(accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ExportWarranties downloads warranties as csv, xlsx or ics. ?ids= limits
// the export to a comma separated selection.
func (h *Handler) ExportWarranties(c *gin.Context) {
	var ids []string
	if raw := strings.TrimSpace(c.Query("ids")); raw != "" {
		ids = strings.Split(raw, ",")
	}

	rows, err := h.warrantyService.ByIDs(accountID(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}
	reminderDays := h.settingsService.ReminderDays(accountID(c))

	var buf bytes.Buffer
	format := c.DefaultQuery("format", "csv")
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		err = h.exportService.WriteCSV(&buf, rows, reminderDays)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = h.exportService.WriteXLSX(&buf, rows, reminderDays)
	case "ics":
		contentType = "text/calendar"
		err = h.exportService.WriteICS(&buf, rows)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv, xlsx or ics"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("warranties_%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// NotifyCustomer sends the customer an expiry reminder
func (h *Handler) NotifyCustomer(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel is required (email or whatsapp)"})
		return
	}

	if err := h.monitorService.NotifyCustomer(accountID(c), c.Param("id"), req.Channel); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reminder sent successfully"})
}

// TestNotification manually triggers the operator reminder for a warranty
func (h *Handler) TestNotification(c *gin.Context) {
	if err := h.monitorService.TriggerNotification(accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent successfully"})
}
