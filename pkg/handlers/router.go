package handlers

import (
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-desk/web"
)

// NewRouter builds the gin engine with middleware, templates, static assets
// and every route of h. The gin mode must be set by the caller.
func NewRouter(h *Handler) (*gin.Engine, error) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), Recovery(), LimitBody(h.maxUpload+formOverhead))
	r.MaxMultipartMemory = h.maxUpload + formOverhead

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}
	r.StaticFS("/static", http.FS(static))

	h.Register(r)
	return r, nil
}
