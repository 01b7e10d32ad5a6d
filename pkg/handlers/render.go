package handlers

import (
	"html/template"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"invoice-desk/pkg/models"
	"invoice-desk/web"
)

var displayDateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006/01/02"}

// LoadTemplates parses the embedded page templates with the view helpers
func LoadTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(TemplateFuncs()).ParseFS(web.Templates, "templates/*.html")
}

// TemplateFuncs returns the helpers available to page templates
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate":  formatDate,
		"money":       money,
		"statusBadge": statusBadge,
		"remaining":   models.Remaining,
	}
}

// formatDate renders a stored date as "January 2, 2006", leaving values it
// cannot parse untouched
func formatDate(value string) string {
	if value == "" {
		return ""
	}
	for _, layout := range displayDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("January 2, 2006")
		}
	}
	return value
}

// money formats d as dollars with thousands separators
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func statusBadge(status models.PaymentStatus) template.HTML {
	var class string
	switch status {
	case models.StatusUnpaid:
		class = "bg-danger"
	case models.StatusPartial:
		class = "bg-warning text-dark"
	case models.StatusPaid:
		class = "bg-success"
	default:
		class = "bg-secondary"
	}
	return template.HTML(`<span class="badge ` + class + `">` + template.HTMLEscapeString(status.Label()) + `</span>`)
}

// page builds the data shared by every template: title, active nav entry,
// pending flashes and the storage backend
func (h *Handler) page(c *gin.Context, title, active string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Active"] = active
	data["Backend"] = h.backend
	data["Flashes"] = takeFlashes(c)
	return data
}
