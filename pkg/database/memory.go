package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"invoice-desk/pkg/models"
)

// MemoryStore keeps invoices in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[uint]models.Invoice
	payments map[uint][]models.PaymentRecord
	nextID   uint
	nextPay  uint
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invoices: make(map[uint]models.Invoice),
		payments: make(map[uint][]models.PaymentRecord),
	}
}

func (m *MemoryStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := time.Now()
	inv.ID = m.nextID
	inv.CreatedAt = now
	inv.UpdatedAt = now
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = models.StatusUnpaid
	}
	m.invoices[inv.ID] = *inv
	return nil
}

func (m *MemoryStore) ListInvoices(_ context.Context, f Filter) ([]models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	company := strings.ToLower(f.CompanyName)
	number := strings.ToLower(f.InvoiceNumber)

	result := make([]models.Invoice, 0, len(m.invoices))
	for _, inv := range m.invoices {
		if company != "" && !strings.Contains(strings.ToLower(inv.CompanyName), company) {
			continue
		}
		if number != "" && !strings.Contains(strings.ToLower(inv.InvoiceNumber), number) {
			continue
		}
		if f.DateFrom != "" && inv.InvoiceDate < f.DateFrom {
			continue
		}
		if f.DateTo != "" && inv.InvoiceDate > f.DateTo {
			continue
		}
		result = append(result, inv)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].InvoiceDate != result[j].InvoiceDate {
			return result[i].InvoiceDate > result[j].InvoiceDate
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *MemoryStore) GetInvoice(_ context.Context, id uint) (*models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (m *MemoryStore) SaveInvoice(_ context.Context, inv *models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[inv.ID]; !ok {
		return ErrNotFound
	}
	inv.UpdatedAt = time.Now()
	m.invoices[inv.ID] = *inv
	return nil
}

func (m *MemoryStore) DeleteInvoice(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	delete(m.payments, id)
	return nil
}

func (m *MemoryStore) CreatePayment(_ context.Context, rec *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invoices[rec.InvoiceID]; !ok {
		return ErrNotFound
	}
	m.nextPay++
	now := time.Now()
	rec.ID = m.nextPay
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.payments[rec.InvoiceID] = append(m.payments[rec.InvoiceID], *rec)
	return nil
}

func (m *MemoryStore) ListPayments(_ context.Context, invoiceID uint) ([]models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := append([]models.PaymentRecord(nil), m.payments[invoiceID]...)
	sort.Slice(records, func(i, j int) bool {
		if records[i].PaymentDate != records[j].PaymentDate {
			return records[i].PaymentDate > records[j].PaymentDate
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (m *MemoryStore) Backend() string {
	return "memory"
}

func (m *MemoryStore) Close() error {
	return nil
}
