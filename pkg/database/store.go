// Package database persists invoices and their payment history.
package database

import (
	"context"
	"errors"

	"invoice-desk/pkg/models"
)

// ErrNotFound is returned when an invoice does not exist
var ErrNotFound = errors.New("invoice not found")

// Filter narrows an invoice listing. Empty fields are ignored.
type Filter struct {
	CompanyName   string
	InvoiceNumber string
	DateFrom      string
	DateTo        string
}

// Store is implemented by every data backend
type Store interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	ListInvoices(ctx context.Context, f Filter) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id uint) (*models.Invoice, error)
	SaveInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id uint) error

	CreatePayment(ctx context.Context, rec *models.PaymentRecord) error
	ListPayments(ctx context.Context, invoiceID uint) ([]models.PaymentRecord, error)

	Backend() string
	Close() error
}
