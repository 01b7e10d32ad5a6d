package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name  string
		total string
		paid  string
		want  PaymentStatus
	}{
		{"nothing paid", "100", "0", StatusUnpaid},
		{"part paid", "100", "40.5", StatusPartial},
		{"exactly paid", "100", "100.00", StatusPaid},
		{"over paid", "100", "120", StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusFor(decimal.RequireFromString(tt.total), decimal.RequireFromString(tt.paid))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemaining(t *testing.T) {
	d := decimal.RequireFromString

	assert.True(t, Remaining(d("100"), d("30"), d("20")).Equal(d("50")))
	assert.True(t, Remaining(d("100"), d("90"), d("20")).IsZero())

	inv := Invoice{TotalAmount: d("250.75"), PaidAmount: d("50.25")}
	assert.Equal(t, "200.50", inv.Remaining().StringFixed(2))
}

func TestPaymentStatusLabel(t *testing.T) {
	assert.Equal(t, "Partial", StatusPartial.Label())
	assert.Equal(t, "Unknown", PaymentStatus("bogus").Label())
}

func TestExtractedFieldsEmpty(t *testing.T) {
	var f ExtractedFields
	assert.True(t, f.Empty())

	number := "INV-1"
	f.InvoiceNumber = &number
	assert.False(t, f.Empty())
}
