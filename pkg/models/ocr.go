package models

// ExtractedFields holds the invoice fields detected in an uploaded document.
// A nil field was not detected.
type ExtractedFields struct {
	InvoiceNumber *string `json:"invoice_number,omitempty"`
	InvoiceDate   *string `json:"invoice_date,omitempty"`
	CompanyName   *string `json:"company_name,omitempty"`
	TotalAmount   *string `json:"total_amount,omitempty"`
}

// Empty reports whether no field was detected
func (f ExtractedFields) Empty() bool {
	return f.InvoiceNumber == nil && f.InvoiceDate == nil && f.CompanyName == nil && f.TotalAmount == nil
}

// OCRResponse is the body returned by POST /api/ocr
type OCRResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Data     *ExtractedFields `json:"data,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}
