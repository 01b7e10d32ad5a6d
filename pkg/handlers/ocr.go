package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-desk/pkg/models"
	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/parser"
)

// OCR reads the uploaded invoiceFile and returns the detected invoice fields
func (h *Handler) OCR(c *gin.Context) {
	upload, err := h.formUpload(c, "invoiceFile")
	switch {
	case errors.Is(err, errTooLarge):
		ocrError(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	case err != nil:
		log.Printf("[OCR] bad upload: %v", err)
		ocrError(c, http.StatusBadRequest, "Please upload a file.")
		return
	case upload == nil:
		ocrError(c, http.StatusBadRequest, "Please upload a file.")
		return
	}

	if !document.AllowedFile(upload.Filename) {
		ocrError(c, http.StatusBadRequest, document.ErrUnsupported.Error())
		return
	}

	text, err := h.extractor.ExtractText(c.Request.Context(), upload.Filename, upload.Data)
	if err != nil {
		h.extractionFailed(c, upload.Filename, err)
		return
	}

	fields, warnings, err := parser.ParseInvoice(text)
	if err != nil {
		h.extractionFailed(c, upload.Filename, err)
		return
	}

	log.Printf("[OCR] %s: %d warning(s)", upload.Filename, len(warnings))
	c.JSON(http.StatusOK, models.OCRResponse{
		Success:  true,
		Data:     fields,
		Warnings: warnings,
	})
}

func (h *Handler) extractionFailed(c *gin.Context, filename string, err error) {
	switch {
	case errors.Is(err, parser.ErrNoReadableText),
		errors.Is(err, parser.ErrNoFieldsDetected),
		errors.Is(err, document.ErrOCRUnavailable):
		ocrError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, document.ErrUnsupported):
		ocrError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[OCR] %s: %v", filename, err)
		ocrError(c, http.StatusInternalServerError, "Failed to read PDF: "+err.Error())
	}
}

func ocrError(c *gin.Context, status int, message string) {
	c.JSON(status, models.OCRResponse{Success: false, Message: message})
}
