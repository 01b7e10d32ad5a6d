package invoices

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"invoice-desk/pkg/database"
	"invoice-desk/pkg/models"
)

// topCompanies is how many companies the stats page ranks
const topCompanies = 5

// CompanyTotal is the invoiced sum for one company
type CompanyTotal struct {
	Name     string          `json:"name"`
	Invoices int             `json:"invoices"`
	Total    decimal.Decimal `json:"total"`
}

// Stats summarises all stored invoices
type Stats struct {
	InvoiceCount int                          `json:"invoice_count"`
	TotalAmount  decimal.Decimal              `json:"total_amount"`
	PaidAmount   decimal.Decimal              `json:"paid_amount"`
	CreditAmount decimal.Decimal              `json:"credit_amount"`
	Outstanding  decimal.Decimal              `json:"outstanding"`
	ByStatus     map[models.PaymentStatus]int `json:"by_status"`
	TopCompanies []CompanyTotal               `json:"top_companies"`
}

// Stats computes totals over every invoice
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	invoices, err := s.store.ListInvoices(ctx, database.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	st := &Stats{
		InvoiceCount: len(invoices),
		ByStatus: map[models.PaymentStatus]int{
			models.StatusUnpaid:  0,
			models.StatusPartial: 0,
			models.StatusPaid:    0,
		},
	}

	byCompany := make(map[string]*CompanyTotal)
	for i := range invoices {
		inv := &invoices[i]
		st.TotalAmount = st.TotalAmount.Add(inv.TotalAmount)
		st.PaidAmount = st.PaidAmount.Add(inv.PaidAmount)
		st.CreditAmount = st.CreditAmount.Add(inv.Credit)
		st.Outstanding = st.Outstanding.Add(inv.Remaining())
		st.ByStatus[inv.PaymentStatus]++

		ct, ok := byCompany[inv.CompanyName]
		if !ok {
			ct = &CompanyTotal{Name: inv.CompanyName}
			byCompany[inv.CompanyName] = ct
		}
		ct.Invoices++
		ct.Total = ct.Total.Add(inv.TotalAmount)
	}

	for _, ct := range byCompany {
		st.TopCompanies = append(st.TopCompanies, *ct)
	}
	sort.Slice(st.TopCompanies, func(i, j int) bool {
		a, b := st.TopCompanies[i], st.TopCompanies[j]
		if !a.Total.Equal(b.Total) {
			return a.Total.GreaterThan(b.Total)
		}
		return a.Name < b.Name
	})
	if len(st.TopCompanies) > topCompanies {
		st.TopCompanies = st.TopCompanies[:topCompanies]
	}
	return st, nil
}
