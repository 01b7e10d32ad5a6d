// Package invoices implements invoice entry, payment tracking and reporting
// on top of a database.Store and a storage.FileStore.
package invoices

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoice-desk/pkg/database"
	"invoice-desk/pkg/models"
	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/storage"
)

const isoDate = "2006-01-02"

// Service handles invoice operations
type Service struct {
	store database.Store
	files storage.FileStore
	now   func() time.Time
}

// NewService creates a new invoice service
func NewService(store database.Store, files storage.FileStore) *Service {
	return &Service{
		store: store,
		files: files,
		now:   time.Now,
	}
}

// ListQuery holds the raw filter values of the invoice list page
type ListQuery struct {
	CompanyName   string
	InvoiceNumber string
	StartDate     string
	EndDate       string
}

// ListResult is a filtered invoice listing. Query echoes the filters that
// were applied and Messages explains any that were dropped.
type ListResult struct {
	Invoices []models.Invoice
	Query    ListQuery
	Messages []string
}

// List returns invoices matching q. Malformed dates are ignored and reported
// in the result messages.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	res := &ListResult{Query: ListQuery{
		CompanyName:   strings.TrimSpace(q.CompanyName),
		InvoiceNumber: strings.TrimSpace(q.InvoiceNumber),
		StartDate:     strings.TrimSpace(q.StartDate),
		EndDate:       strings.TrimSpace(q.EndDate),
	}}

	var from, to time.Time
	if res.Query.StartDate != "" {
		t, err := time.Parse(isoDate, res.Query.StartDate)
		if err != nil {
			res.Messages = append(res.Messages, "Start date format is invalid. Use YYYY-MM-DD.")
			res.Query.StartDate = ""
		}
		from = t
	}
	if res.Query.EndDate != "" {
		t, err := time.Parse(isoDate, res.Query.EndDate)
		if err != nil {
			res.Messages = append(res.Messages, "End date format is invalid. Use YYYY-MM-DD.")
			res.Query.EndDate = ""
		}
		to = t
	}

	if res.Query.StartDate != "" && res.Query.EndDate != "" && from.After(to) {
		res.Messages = append(res.Messages, "Start date must be earlier than or equal to End date.")
		return res, nil
	}

	invoices, err := s.store.ListInvoices(ctx, database.Filter{
		CompanyName:   res.Query.CompanyName,
		InvoiceNumber: res.Query.InvoiceNumber,
		DateFrom:      res.Query.StartDate,
		DateTo:        res.Query.EndDate,
	})
	if err != nil {
		return res, fmt.Errorf("failed to load invoices: %w", err)
	}
	res.Invoices = invoices
	return res, nil
}

// Get returns a single invoice
func (s *Service) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

// History returns the payments recorded against an invoice, newest first
func (s *Service) History(ctx context.Context, id uint) ([]models.PaymentRecord, error) {
	return s.store.ListPayments(ctx, id)
}

// Create validates the form, stores the optional document and saves a new
// unpaid invoice
func (s *Service) Create(ctx context.Context, form InvoiceForm, file *Upload) (*models.Invoice, error) {
	fields, err := form.parse("Total Amount and Credit must be numbers (example: 1234.56).")
	if err != nil {
		return nil, err
	}

	var key string
	if file.present() {
		if key, err = s.storeUpload(ctx, "", file, "Supported file types: PDF, JPEG, PNG, TIFF"); err != nil {
			return nil, err
		}
	}

	inv := &models.Invoice{
		InvoiceDate:   fields.date,
		InvoiceNumber: fields.number,
		CompanyName:   fields.company,
		TotalAmount:   fields.total,
		Credit:        fields.credit,
		PaidAmount:    decimal.Zero,
		PaymentStatus: models.StatusUnpaid,
		EnteredBy:     fields.enteredBy,
		Notes:         fields.notes,
		PDFPath:       key,
	}
	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		if key != "" {
			s.removeFile(ctx, key)
		}
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	log.Printf("[INVOICES] created invoice %d (%s, %s)", inv.ID, inv.CompanyName, inv.InvoiceNumber)
	return inv, nil
}

// Update replaces the editable fields of an invoice. The payment status is
// recomputed because the total may have changed.
func (s *Service) Update(ctx context.Context, id uint, form InvoiceForm) (*models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	fields, err := form.parse("Total Amount must be a number (example: 1234.56).")
	if err != nil {
		return nil, err
	}

	inv.InvoiceDate = fields.date
	inv.InvoiceNumber = fields.number
	inv.CompanyName = fields.company
	inv.TotalAmount = fields.total
	inv.Credit = fields.credit
	inv.EnteredBy = fields.enteredBy
	inv.Notes = fields.notes
	inv.PaymentStatus = models.StatusFor(inv.TotalAmount, inv.PaidAmount)

	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	return inv, nil
}

// Delete removes an invoice with its payment history. Stored files are
// removed afterwards; failures there are logged only.
func (s *Service) Delete(ctx context.Context, id uint) error {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	history, err := s.store.ListPayments(ctx, id)
	if err != nil {
		log.Printf("[INVOICES] could not load payments of invoice %d: %v", id, err)
	}

	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("error deleting invoice: %w", err)
	}

	seen := map[string]bool{"": true}
	keys := []string{inv.PDFPath, inv.PaymentProofPath}
	for _, rec := range history {
		keys = append(keys, rec.PaymentProofPath)
	}
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		s.removeFile(ctx, key)
	}

	log.Printf("[INVOICES] deleted invoice %d", id)
	return nil
}

func (s *Service) storeUpload(ctx context.Context, prefix string, file *Upload, typeMessage string) (string, error) {
	if !document.AllowedFile(file.Filename) {
		return "", invalid("%s", typeMessage)
	}

	key := storage.KeyFor(s.now(), prefix, file.Filename)
	if err := s.files.Save(ctx, key, file.Data, document.MIMEType(file.Filename)); err != nil {
		return "", fmt.Errorf("failed to upload file to %s storage: %w", s.files.Name(), err)
	}
	return key, nil
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("[STORE] failed to delete %s from %s storage: %v", key, s.files.Name(), err)
	}
}
