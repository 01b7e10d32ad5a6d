package invoices

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-desk/pkg/models"
	"invoice-desk/pkg/services/parser"
)

// RecordPayment applies a credit update and/or a new payment to an invoice.
// Payments accumulate and may not exceed the invoice total. The returned
// string summarises what changed.
func (s *Service) RecordPayment(ctx context.Context, id uint, form PaymentForm, proof *Upload) (string, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return "", err
	}

	paidRaw := strings.TrimSpace(form.PaidAmount)
	creditRaw := strings.TrimSpace(form.Credit)
	hasPayment := paidRaw != ""
	hasCredit := creditRaw != ""

	if !hasPayment && !hasCredit {
		return "", ErrNothingToRecord
	}

	if hasCredit {
		credit, err := ParseAmount(creditRaw)
		if err != nil {
			return "", invalid("Credit must be a valid number.")
		}
		inv.Credit = credit
	}

	var payment decimal.Decimal
	var paymentDate, storedProof string
	if hasPayment {
		if strings.TrimSpace(form.PaymentDate) == "" {
			return "", invalid("Payment date is required when recording a payment.")
		}
		date, ok := parser.NormalizeDate(form.PaymentDate)
		if !ok {
			return "", invalid("Payment date is invalid. Use YYYY-MM-DD.")
		}
		paymentDate = date

		payment, err = ParseAmount(paidRaw)
		if err != nil {
			return "", invalid("Paid amount must be a valid number.")
		}
		if !payment.IsPositive() {
			return "", invalid("Paid amount must be greater than 0.")
		}

		totalPaid := inv.PaidAmount.Add(payment)
		if totalPaid.GreaterThan(inv.TotalAmount) {
			return "", invalid("Total paid amount ($%s) cannot exceed total amount ($%s).",
				totalPaid.StringFixed(2), inv.TotalAmount.StringFixed(2))
		}

		if proof.present() {
			key, err := s.storeUpload(ctx, "payment_", proof, "Supported file types for payment proof: PDF, JPEG, PNG, TIFF")
			if err != nil {
				return "", err
			}
			inv.PaymentProofPath = key
			storedProof = key
		}

		inv.PaidAmount = totalPaid
		inv.PaymentStatus = models.StatusFor(inv.TotalAmount, totalPaid)
		inv.PaymentDate = paymentDate
	}

	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		if storedProof != "" {
			s.removeFile(ctx, storedProof)
		}
		return "", fmt.Errorf("error updating invoice: %w", err)
	}

	if hasPayment {
		rec := &models.PaymentRecord{
			InvoiceID:        inv.ID,
			PaymentAmount:    payment,
			PaymentDate:      paymentDate,
			PaymentProofPath: inv.PaymentProofPath,
			Notes:            "Payment of $" + payment.StringFixed(2),
		}
		if err := s.store.CreatePayment(ctx, rec); err != nil {
			log.Printf("[INVOICES] failed to record payment history for invoice %d: %v", inv.ID, err)
		} else {
			log.Printf("[INVOICES] payment of $%s recorded for invoice %d", payment.StringFixed(2), inv.ID)
		}
	}

	var messages []string
	if hasCredit {
		messages = append(messages, "Credit updated: $"+inv.Credit.StringFixed(2))
	}
	if hasPayment {
		messages = append(messages, fmt.Sprintf("Payment recorded: $%s, Status: %s",
			inv.PaidAmount.StringFixed(2), inv.PaymentStatus.Label()))
	}
	return strings.Join(messages, " | "), nil
}

// MarkUnpaid clears the payment state of an invoice and deletes its proof.
// Payment history is kept.
func (s *Service) MarkUnpaid(ctx context.Context, id uint) error {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if inv.PaymentProofPath != "" {
		s.removeFile(ctx, inv.PaymentProofPath)
	}

	inv.PaymentStatus = models.StatusUnpaid
	inv.PaymentProofPath = ""
	inv.PaymentDate = ""
	inv.PaidAmount = decimal.Zero

	if err := s.store.SaveInvoice(ctx, inv); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}
