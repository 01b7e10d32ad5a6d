package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListInvoices returns the filtered invoice list as JSON
func (h *Handler) ListInvoices(c *gin.Context) {
	res, err := h.invoices.List(c.Request.Context(), listQuery(c))
	if err != nil {
		log.Printf("[HTTP] list invoices: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if len(res.Messages) > 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"invoices": res.Invoices,
		"filters": gin.H{
			"companyName":   res.Query.CompanyName,
			"invoiceNumber": res.Query.InvoiceNumber,
			"startDate":     res.Query.StartDate,
			"endDate":       res.Query.EndDate,
		},
		"messages": res.Messages,
	})
}

// Stats returns the invoice summary as JSON
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.invoices.Stats(c.Request.Context())
	if err != nil {
		log.Printf("[HTTP] stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}
