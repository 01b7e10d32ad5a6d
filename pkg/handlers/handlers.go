// Package handlers exposes the invoice desk over HTTP with gin.
package handlers

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/invoices"
	"invoice-desk/pkg/services/ocr"
	"invoice-desk/pkg/services/storage"
)

// ocrProbeText is rendered into the diagnostic image used by /test-ocr
const ocrProbeText = "TEST OCR 12345"

var errTooLarge = errors.New("file too large")

// Diagnoser is implemented by OCR engines that can describe themselves
type Diagnoser interface {
	ocr.Recognizer
	Info() ocr.Info
}

// Options wires the services the handlers depend on
type Options struct {
	Invoices      *invoices.Service
	Extractor     *document.Extractor
	OCR           Diagnoser // nil when OCR is not configured
	Files         storage.FileStore
	Backend       string
	MaxUploadSize int64
}

// Handler serves the HTML pages and the JSON API
type Handler struct {
	invoices  *invoices.Service
	extractor *document.Extractor
	ocr       Diagnoser
	files     storage.FileStore
	backend   string
	maxUpload int64
}

// NewHandler creates a handler from opts
func NewHandler(opts Options) *Handler {
	return &Handler{
		invoices:  opts.Invoices,
		extractor: opts.Extractor,
		ocr:       opts.OCR,
		files:     opts.Files,
		backend:   opts.Backend,
		maxUpload: opts.MaxUploadSize,
	}
}

// Register adds every route to r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/test-ocr", h.TestOCR)

	r.GET("/", h.Index)
	r.GET("/upload", h.UploadForm)
	r.POST("/upload", h.Upload)
	r.GET("/edit/:id", h.EditForm)
	r.POST("/edit/:id", h.Edit)
	r.POST("/delete/:id", h.Delete)
	r.POST("/upload_payment/:id", h.RecordPayment)
	r.POST("/mark_unpaid/:id", h.MarkUnpaid)
	r.GET("/stats", h.StatsPage)

	r.GET("/files/*name", h.ServeDocument)
	r.GET("/payment_files/*name", h.ServePaymentProof)

	api := r.Group("/api")
	api.POST("/ocr", h.OCR)
	api.GET("/invoices", h.ListInvoices)
	api.GET("/stats", h.Stats)
}

// Health reports liveness and the active data backend
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "invoice-management-system",
		"backend": h.backend,
	})
}

// TestOCR reports the OCR configuration and, when an engine is configured,
// runs it against a small generated image
func (h *Handler) TestOCR(c *gin.Context) {
	result := gin.H{
		"pdf_text_extraction": true,
		"ocr_configured":      h.ocr != nil,
	}
	if h.ocr == nil {
		result["ocr_test"] = gin.H{"success": false, "error": "OCR is not configured"}
		c.JSON(http.StatusOK, result)
		return
	}
	result["ocr"] = h.ocr.Info()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	lines, err := h.ocr.Recognize(ctx, probeImage(ocrProbeText))
	if err != nil {
		result["ocr_test"] = gin.H{"success": false, "error": err.Error()}
	} else {
		text := ocr.JoinLines(lines)
		result["ocr_test"] = gin.H{"success": text != "", "output": text, "length": len(text)}
	}
	c.JSON(http.StatusOK, result)
}

func probeImage(text string) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString(text)
	return img
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// formUpload reads an optional file field. A missing file is not an error.
func (h *Handler) formUpload(c *gin.Context, field string) (*invoices.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooLarge
		}
		return nil, err
	}
	if fh.Filename == "" {
		return nil, nil
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, errTooLarge
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return nil, err
	}
	return &invoices.Upload{Filename: fh.Filename, Data: data}, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) tooLargeMessage() string {
	return "File is too large. Maximum size is " + sizeLabel(h.maxUpload) + "."
}

// sizeLabel renders n bytes in the largest unit that keeps it at least 1
func sizeLabel(n int64) string {
	unit := func(v float64, name string) string {
		return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + " " + name
	}
	switch {
	case n >= 1<<20:
		return unit(float64(n)/(1<<20), "MB")
	case n >= 1<<10:
		return unit(float64(n)/(1<<10), "KB")
	default:
		return strconv.FormatInt(n, 10) + " bytes"
	}
}
