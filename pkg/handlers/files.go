package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/storage"
)

// ServeDocument returns an uploaded invoice document
func (h *Handler) ServeDocument(c *gin.Context) {
	h.serveFile(c, "File not found")
}

// ServePaymentProof returns an uploaded payment proof
func (h *Handler) ServePaymentProof(c *gin.Context) {
	h.serveFile(c, "Payment proof file not found")
}

// serveFile streams locally stored files and redirects to remote ones
func (h *Handler) serveFile(c *gin.Context, missing string) {
	key := strings.TrimPrefix(c.Param("name"), "/")
	ctx := c.Request.Context()

	rc, err := h.files.Open(ctx, key)
	if errors.Is(err, storage.ErrRemote) {
		url, err := h.files.URL(ctx, key)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				log.Printf("[STORE] url for %s: %v", key, err)
			}
			c.String(http.StatusNotFound, missing+" in cloud storage")
			return
		}
		c.Redirect(http.StatusFound, url)
		return
	}
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("[STORE] open %s: %v", key, err)
		}
		c.String(http.StatusNotFound, missing)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, document.MIMEType(key), rc, map[string]string{
		"Content-Disposition": `inline; filename="` + storage.SanitizeFilename(key) + `"`,
	})
}
