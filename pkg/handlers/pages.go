package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"invoice-desk/pkg/database"
	"invoice-desk/pkg/services/invoices"
)

const (
	flashSuccess = "success"
	flashDanger  = "danger"
	flashWarning = "warning"
)

func listQuery(c *gin.Context) invoices.ListQuery {
	return invoices.ListQuery{
		CompanyName:   c.Query("companyName"),
		InvoiceNumber: c.Query("invoiceNumber"),
		StartDate:     c.Query("startDate"),
		EndDate:       c.Query("endDate"),
	}
}

func invoiceForm(c *gin.Context) invoices.InvoiceForm {
	return invoices.InvoiceForm{
		InvoiceDate:   c.PostForm("invoiceDate"),
		InvoiceNumber: c.PostForm("invoiceNumber"),
		CompanyName:   c.PostForm("companyName"),
		TotalAmount:   c.PostForm("totalAmount"),
		EnteredBy:     c.PostForm("enteredBy"),
		Notes:         c.PostForm("notes"),
		Credit:        c.PostForm("credit"),
	}
}

func editPath(id uint) string {
	return fmt.Sprintf("/edit/%d", id)
}

func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// failed flashes err and redirects. Validation messages are shown as is;
// anything else is logged as well.
func failed(c *gin.Context, err error, location string) {
	var verr *invoices.ValidationError
	if errors.As(err, &verr) {
		addFlash(c, flashDanger, verr.Message)
	} else {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		addFlash(c, flashDanger, sentence(err.Error()))
	}
	redirect(c, location)
}

// sentence upper-cases the first letter of an error message for display
func sentence(msg string) string {
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func notFound(c *gin.Context) {
	addFlash(c, flashDanger, "Invoice not found.")
	redirect(c, "/")
}

// Index lists invoices with the filters from the query string
func (h *Handler) Index(c *gin.Context) {
	res, err := h.invoices.List(c.Request.Context(), listQuery(c))
	data := h.page(c, "Invoices", "index", gin.H{
		"Invoices": res.Invoices,
		"Filters":  res.Query,
	})

	flashes, _ := data["Flashes"].([]Flash)
	for _, msg := range res.Messages {
		flashes = append(flashes, Flash{Category: flashDanger, Message: msg})
	}
	if err != nil {
		log.Printf("[HTTP] list invoices: %v", err)
		flashes = append(flashes, Flash{Category: flashDanger, Message: sentence(err.Error())})
	}
	data["Flashes"] = flashes

	c.HTML(http.StatusOK, "index.html", data)
}

// UploadForm renders the new invoice form
func (h *Handler) UploadForm(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", h.page(c, "New Invoice", "upload", nil))
}

// Upload creates an invoice from the submitted form
func (h *Handler) Upload(c *gin.Context) {
	file, err := h.formUpload(c, "invoiceFile")
	if err != nil {
		if errors.Is(err, errTooLarge) {
			err = errors.New(h.tooLargeMessage())
		}
		failed(c, err, "/upload")
		return
	}

	if _, err := h.invoices.Create(c.Request.Context(), invoiceForm(c), file); err != nil {
		failed(c, err, "/upload")
		return
	}
	addFlash(c, flashSuccess, "Invoice saved successfully.")
	redirect(c, "/")
}

// EditForm renders an invoice with its payment history
func (h *Handler) EditForm(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}
	ctx := c.Request.Context()

	inv, err := h.invoices.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("[HTTP] load invoice %d: %v", id, err)
		}
		notFound(c)
		return
	}
	history, err := h.invoices.History(ctx, id)
	if err != nil {
		log.Printf("[HTTP] payment history of invoice %d: %v", id, err)
	}

	c.HTML(http.StatusOK, "edit.html", h.page(c, "Edit Invoice", "index", gin.H{
		"Invoice": inv,
		"History": history,
	}))
}

// Edit saves changes to an invoice
func (h *Handler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}

	_, err := h.invoices.Update(c.Request.Context(), id, invoiceForm(c))
	switch {
	case errors.Is(err, database.ErrNotFound):
		notFound(c)
	case err != nil:
		failed(c, err, editPath(id))
	default:
		addFlash(c, flashSuccess, "Invoice updated successfully.")
		redirect(c, "/")
	}
}

// Delete removes an invoice and its files
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}

	err := h.invoices.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		notFound(c)
	case err != nil:
		failed(c, err, "/")
	default:
		addFlash(c, flashSuccess, "Invoice deleted successfully.")
		redirect(c, "/")
	}
}

// RecordPayment records a payment and/or credit update for an invoice
func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}

	proof, err := h.formUpload(c, "paymentProof")
	if err != nil {
		if errors.Is(err, errTooLarge) {
			err = errors.New(h.tooLargeMessage())
		}
		failed(c, err, editPath(id))
		return
	}

	form := invoices.PaymentForm{
		PaidAmount:  c.PostForm("paidAmount"),
		PaymentDate: c.PostForm("paymentDate"),
		Credit:      c.PostForm("credit"),
	}
	msg, err := h.invoices.RecordPayment(c.Request.Context(), id, form, proof)
	switch {
	case errors.Is(err, database.ErrNotFound):
		notFound(c)
	case errors.Is(err, invoices.ErrNothingToRecord):
		addFlash(c, flashWarning, err.Error())
		redirect(c, editPath(id))
	case err != nil:
		failed(c, err, editPath(id))
	default:
		addFlash(c, flashSuccess, msg)
		redirect(c, editPath(id))
	}
}

// MarkUnpaid resets the payment state of an invoice
func (h *Handler) MarkUnpaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		notFound(c)
		return
	}

	err := h.invoices.MarkUnpaid(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		notFound(c)
	case err != nil:
		failed(c, err, editPath(id))
	default:
		addFlash(c, flashSuccess, "Invoice marked as unpaid.")
		redirect(c, editPath(id))
	}
}

// StatsPage renders the summary page
func (h *Handler) StatsPage(c *gin.Context) {
	st, err := h.invoices.Stats(c.Request.Context())
	if err != nil {
		failed(c, err, "/")
		return
	}
	c.HTML(http.StatusOK, "stats.html", h.page(c, "Statistics", "stats", gin.H{"Stats": st}))
}
