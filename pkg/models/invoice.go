package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus describes how much of an invoice has been settled
type PaymentStatus string

const (
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// Label returns the human readable status name
func (s PaymentStatus) Label() string {
	switch s {
	case StatusUnpaid:
		return "Unpaid"
	case StatusPartial:
		return "Partial"
	case StatusPaid:
		return "Paid"
	default:
		return "Unknown"
	}
}

// Invoice represents an entered supplier invoice and its payment state
type Invoice struct {
	gorm.Model
	InvoiceDate      string          `gorm:"size:32;not null;index" json:"invoice_date"`
	InvoiceNumber    string          `gorm:"size:128;not null" json:"invoice_number"`
	CompanyName      string          `gorm:"size:256;not null" json:"company_name"`
	TotalAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	Credit           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"credit"`
	PaidAmount       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"paid_amount"`
	PaymentStatus    PaymentStatus   `gorm:"size:16;not null;default:unpaid" json:"payment_status"`
	PaymentDate      string          `gorm:"size:32" json:"payment_date,omitempty"`
	PaymentProofPath string          `gorm:"size:512" json:"payment_proof_path,omitempty"`
	EnteredBy        string          `gorm:"size:128;not null" json:"entered_by"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
	PDFPath          string          `gorm:"size:512" json:"pdf_path,omitempty"`
}

// Remaining is the amount still owed on the invoice
func (i *Invoice) Remaining() decimal.Decimal {
	return Remaining(i.TotalAmount, i.PaidAmount, i.Credit)
}

// PaymentRecord is one entry in an invoice's payment history
type PaymentRecord struct {
	gorm.Model
	InvoiceID        uint            `gorm:"not null;index" json:"invoice_id"`
	PaymentAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"payment_amount"`
	PaymentDate      string          `gorm:"size:32;not null" json:"payment_date"`
	PaymentProofPath string          `gorm:"size:512" json:"payment_proof_path,omitempty"`
	Notes            string          `gorm:"type:text" json:"notes,omitempty"`
}

// StatusFor derives the payment status from the invoice total and the paid sum
func StatusFor(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.IsZero():
		return StatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartial
	}
}

// Remaining returns total - paid - credit, never below zero
func Remaining(total, paid, credit decimal.Decimal) decimal.Decimal {
	left := total.Sub(paid).Sub(credit)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// TextLine represents a line of text with its position from OCR
type TextLine struct {
	Text   string
	X      int
	Y      int
	Width  int
	Height int
}
