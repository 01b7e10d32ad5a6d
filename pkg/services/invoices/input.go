package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-desk/pkg/services/parser"
)

// ValidationError carries a message meant to be shown to the user as is
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrNothingToRecord is returned when a payment form has neither an amount nor a credit
var ErrNothingToRecord = &ValidationError{Message: "Please enter either a payment amount or update the credit."}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Upload is a file received with a form
type Upload struct {
	Filename string
	Data     []byte
}

func (u *Upload) present() bool {
	return u != nil && u.Filename != ""
}

// InvoiceForm holds the raw fields of the upload and edit forms
type InvoiceForm struct {
	InvoiceDate   string
	InvoiceNumber string
	CompanyName   string
	TotalAmount   string
	EnteredBy     string
	Notes         string
	Credit        string
}

// PaymentForm holds the raw fields of the payment form. Either PaidAmount or
// Credit must be set.
type PaymentForm struct {
	PaidAmount  string
	PaymentDate string
	Credit      string
}

type invoiceFields struct {
	date      string
	number    string
	company   string
	enteredBy string
	notes     string
	total     decimal.Decimal
	credit    decimal.Decimal
}

// ParseAmount parses a money value, accepting thousands separators
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

func (f InvoiceForm) parse(numberMessage string) (invoiceFields, error) {
	fields := invoiceFields{
		date:      strings.TrimSpace(f.InvoiceDate),
		number:    strings.TrimSpace(f.InvoiceNumber),
		company:   strings.TrimSpace(f.CompanyName),
		enteredBy: strings.TrimSpace(f.EnteredBy),
		notes:     strings.TrimSpace(f.Notes),
	}

	var missing []string
	for _, req := range []struct{ value, label string }{
		{fields.date, "Invoice Date"},
		{fields.number, "Invoice Number"},
		{fields.company, "Company Name"},
		{strings.TrimSpace(f.TotalAmount), "Total Amount"},
		{fields.enteredBy, "Entered By"},
	} {
		if req.value == "" {
			missing = append(missing, req.label)
		}
	}
	if len(missing) > 0 {
		return fields, invalid("Please fill in required fields: %s", strings.Join(missing, ", "))
	}

	date, ok := parser.NormalizeDate(fields.date)
	if !ok {
		return fields, invalid("Invoice Date is invalid. Use YYYY-MM-DD.")
	}
	fields.date = date

	total, err := ParseAmount(f.TotalAmount)
	if err != nil {
		return fields, invalid("%s", numberMessage)
	}
	fields.total = total

	if strings.TrimSpace(f.Credit) != "" {
		credit, err := ParseAmount(f.Credit)
		if err != nil {
			return fields, invalid("%s", numberMessage)
		}
		fields.credit = credit
	}
	return fields, nil
}
