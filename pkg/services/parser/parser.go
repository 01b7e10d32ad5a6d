// Package parser detects invoice fields in text extracted from a document.
package parser

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-desk/pkg/models"
)

var (
	// ErrNoReadableText means the document produced no text at all
	ErrNoReadableText = errors.New("No readable text detected in the file. Please fill the fields manually.")
	// ErrNoFieldsDetected means text was found but none of the fields were recognised
	ErrNoFieldsDetected = errors.New("Could not detect invoice details automatically. Please fill them manually.")
)

const (
	warnDate    = "Invoice date was not detected; please enter it manually."
	warnCompany = "Company name was not detected; please enter it manually."
	warnNumber  = "Invoice number was not detected; please enter it manually."
	warnTotal   = "Total amount was not detected; please enter it manually."
)

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*(?:Number|No\.?|#)\s*[:#]?\s*([A-Za-z0-9\-/]+)`),
		regexp.MustCompile(`(?i)Invoice\s*ID\s*[:#]?\s*([A-Za-z0-9\-/]+)`),
		regexp.MustCompile(`(?i)Inv\.\s*#\s*([A-Za-z0-9\-/]+)`),
	}

	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Total\s+(?:Amount|Due)?|Amount\s+Due|Balance\s+Due)\s*[:$]?\s*([\d,]+(?:\.\d+)?)`),
		regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`),
	}

	notNumeric = regexp.MustCompile(`[^\d.\-]`)
)

// ParseInvoice extracts invoice fields from document text. Warnings name the
// fields that were not detected so the user knows what to fill in by hand.
func ParseInvoice(text string) (*models.ExtractedFields, []string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, ErrNoReadableText
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	fields := &models.ExtractedFields{
		InvoiceNumber: findInvoiceNumber(text),
		InvoiceDate:   findInvoiceDate(text, lines),
		CompanyName:   findCompanyName(lines),
	}
	if total, ok := findTotalAmount(text); ok {
		s := total.StringFixed(2)
		fields.TotalAmount = &s
	}

	if fields.Empty() {
		return nil, nil, ErrNoFieldsDetected
	}

	var warnings []string
	if fields.InvoiceDate == nil {
		warnings = append(warnings, warnDate)
	}
	if fields.CompanyName == nil {
		warnings = append(warnings, warnCompany)
	}
	if fields.InvoiceNumber == nil {
		warnings = append(warnings, warnNumber)
	}
	if fields.TotalAmount == nil {
		warnings = append(warnings, warnTotal)
	}
	return fields, warnings, nil
}

func findInvoiceNumber(text string) *string {
	for _, re := range invoiceNumberPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if candidate := strings.TrimSpace(m[1]); candidate != "" {
			return &candidate
		}
	}
	return nil
}

// findTotalAmount returns the largest labelled total, falling back to the
// largest dollar amount when no label matched
func findTotalAmount(text string) (decimal.Decimal, bool) {
	for _, re := range totalPatterns {
		var best decimal.Decimal
		found := false
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, ok := toNumber(m[1])
			if !ok {
				continue
			}
			if !found || n.GreaterThan(best) {
				best = n
				found = true
			}
		}
		if found {
			return best, true
		}
	}
	return decimal.Zero, false
}

func toNumber(value string) (decimal.Decimal, bool) {
	cleaned := notNumeric.ReplaceAllString(value, "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	n, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return n, true
}
