package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-desk/pkg/database"
	"invoice-desk/pkg/models"
	"invoice-desk/pkg/services/document"
	"invoice-desk/pkg/services/invoices"
	"invoice-desk/pkg/services/ocr"
	"invoice-desk/pkg/services/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeOCR struct {
	lines []models.TextLine
}

func (f *fakeOCR) Recognize(_ context.Context, _ image.Image) ([]models.TextLine, error) {
	return f.lines, nil
}

func (f *fakeOCR) Info() ocr.Info {
	return ocr.Info{Engine: "fake", Language: "en", Configured: true}
}

type testServer struct {
	router *gin.Engine
	store  *database.MemoryStore
	files  *storage.LocalStore
}

func newTestServer(t *testing.T, maxUpload int64, engine Diagnoser) *testServer {
	t.Helper()
	store := database.NewMemoryStore()
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	var recognizer ocr.Recognizer
	if engine != nil {
		recognizer = engine
	}
	h := NewHandler(Options{
		Invoices:      invoices.NewService(store, files),
		Extractor:     document.NewExtractor(recognizer),
		OCR:           engine,
		Files:         files,
		Backend:       store.Backend(),
		MaxUploadSize: maxUpload,
	})
	r, err := NewRouter(h)
	require.NoError(t, err)
	return &testServer{router: r, store: store, files: files}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func flashesOf(t *testing.T, rec *httptest.ResponseRecorder) []Flash {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name != flashCookie || ck.Value == "" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
		require.NoError(t, err)
		var flashes []Flash
		require.NoError(t, json.Unmarshal(raw, &flashes))
		return flashes
	}
	return nil
}

func invoicePDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	for i, l := range lines {
		doc.Text(20, float64(20+10*i), l)
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func decodeOCR(t *testing.T, rec *httptest.ResponseRecorder) models.OCRResponse {
	t.Helper()
	var resp models.OCRResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func seedInvoice(t *testing.T, s *testServer, number string) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		InvoiceDate:   "2025-03-01",
		InvoiceNumber: number,
		CompanyName:   "Acme Corp",
		TotalAmount:   decimal.NewFromInt(100),
		EnteredBy:     "sam",
	}
	require.NoError(t, s.store.CreateInvoice(context.Background(), inv))
	return inv
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"invoice-management-system","backend":"memory"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rec := s.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestTestOCR(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/test-ocr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ocr_configured":false`)

	s = newTestServer(t, 10<<20, &fakeOCR{lines: []models.TextLine{{Text: "TEST OCR 12345"}}})
	rec = s.do(httptest.NewRequest(http.MethodGet, "/test-ocr", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Configured bool `json:"ocr_configured"`
		Test       struct {
			Success bool   `json:"success"`
			Output  string `json:"output"`
		} `json:"ocr_test"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Configured)
	assert.True(t, body.Test.Success)
	assert.Equal(t, "TEST OCR 12345", body.Test.Output)
}

func TestOCR_ExtractsFields(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	pdf := invoicePDF(t,
		"ACME SUPPLIES LTD",
		"12 Harbour Street",
		"Invoice Number: INV-7",
		"Invoice Date: 2024-03-05",
		"Total Due: $45.00",
	)

	rec := s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "invoice.pdf", pdf))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeOCR(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	require.NotNil(t, resp.Data.InvoiceNumber)
	assert.Equal(t, "INV-7", *resp.Data.InvoiceNumber)
	require.NotNil(t, resp.Data.TotalAmount)
	assert.Equal(t, "45.00", *resp.Data.TotalAmount)
	require.NotNil(t, resp.Data.InvoiceDate)
	assert.Equal(t, "2024-03-05", *resp.Data.InvoiceDate)
}

func TestOCR_Errors(t *testing.T) {
	s := newTestServer(t, 1024, nil)

	rec := s.do(multipartRequest(t, "/api/ocr", map[string]string{"other": "x"}, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please upload a file.", decodeOCR(t, rec).Message)

	rec = s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Supported file types: PDF, JPEG, PNG, TIFF", decodeOCR(t, rec).Message)

	rec = s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "big.pdf", bytes.Repeat([]byte("x"), 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, models.OCRResponse{Success: false, Message: "File is too large. Maximum size is 1 KB."}, decodeOCR(t, rec))

	rec = s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "broken.pdf", []byte("not a pdf")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(decodeOCR(t, rec).Message, "Failed to read PDF: "))

	truncated := invoicePDF(t, "Invoice Number: INV-1", "Total Due: $5.00")[:400]
	rec = s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "cut.pdf", truncated))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	resp := decodeOCR(t, rec)
	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Message, "Failed to read PDF: "))

	rec = s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "scan.png", []byte("png")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, document.ErrOCRUnavailable.Error(), decodeOCR(t, rec).Message)
}

func TestOCR_NoFieldsDetected(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	pdf := invoicePDF(t, "customer copy", "please contact support")

	rec := s.do(multipartRequest(t, "/api/ocr", nil, "invoiceFile", "copy.pdf", pdf))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeOCR(t, rec)
	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.NotEmpty(t, resp.Message)
}

func TestUploadAndList(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)

	fields := map[string]string{
		"invoiceDate":   "2025-01-15",
		"invoiceNumber": "INV-55",
		"companyName":   "Globex",
		"totalAmount":   "1,250.00",
		"enteredBy":     "kim",
	}
	rec := s.do(multipartRequest(t, "/upload", fields, "invoiceFile", "globex.pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, []Flash{{Category: "success", Message: "Invoice saved successfully."}}, flashesOf(t, rec))

	list, err := s.store.ListInvoices(context.Background(), database.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "1250.00", list[0].TotalAmount.StringFixed(2))
	require.NotEmpty(t, list[0].PDFPath)

	req := httptest.NewRequest(http.MethodGet, "/?companyName=glob", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	page := s.do(req)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "INV-55")
	assert.Contains(t, page.Body.String(), "$1,250.00")
	assert.Contains(t, page.Body.String(), "January 15, 2025")
	assert.Contains(t, page.Body.String(), "Invoice saved successfully.")

	file := s.do(httptest.NewRequest(http.MethodGet, "/files/"+list[0].PDFPath, nil))
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "application/pdf", file.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", file.Body.String())

	missing := s.do(httptest.NewRequest(http.MethodGet, "/payment_files/nope.pdf", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestUpload_ValidationRedirectsBack(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)

	rec := s.do(formRequest("/upload", url.Values{"invoiceNumber": {"X"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/upload", rec.Header().Get("Location"))

	flashes := flashesOf(t, rec)
	require.Len(t, flashes, 1)
	assert.Equal(t, "danger", flashes[0].Category)
	assert.Equal(t, "Please fill in required fields: Invoice Date, Company Name, Total Amount, Entered By", flashes[0].Message)
}

func TestIndex_InvalidDateFilter(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	seedInvoice(t, s, "INV-1")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/?startDate=2025-05-01&endDate=2025-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Start date must be earlier than or equal to End date.")
	assert.NotContains(t, rec.Body.String(), "INV-1")
}

func TestEditAndPayments(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	inv := seedInvoice(t, s, "INV-9")
	path := editPath(inv.ID)

	rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "INV-9")
	assert.Contains(t, rec.Body.String(), "No payments recorded.")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/edit/999", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = s.do(multipartRequest(t, "/upload_payment/1", map[string]string{"paidAmount": "40", "paymentDate": "2025-03-10"},
		"paymentProof", "proof.png", []byte("img")))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, path, rec.Header().Get("Location"))
	assert.Equal(t, []Flash{{Category: "success", Message: "Payment recorded: $40.00, Status: Partial"}}, flashesOf(t, rec))

	rec = s.do(formRequest("/upload_payment/1", url.Values{}))
	assert.Equal(t, []Flash{{Category: "warning", Message: invoices.ErrNothingToRecord.Message}}, flashesOf(t, rec))

	rec = s.do(httptest.NewRequest(http.MethodGet, path, nil))
	assert.Contains(t, rec.Body.String(), "Partial")
	assert.Contains(t, rec.Body.String(), "$60.00")

	rec = s.do(formRequest(path, url.Values{
		"invoiceDate":   {"2025-03-01"},
		"invoiceNumber": {"INV-9"},
		"companyName":   {"Acme Corp"},
		"totalAmount":   {"40"},
		"enteredBy":     {"sam"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	got, err := s.store.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.PaymentStatus)

	rec = s.do(formRequest("/mark_unpaid/1", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []Flash{{Category: "success", Message: "Invoice marked as unpaid."}}, flashesOf(t, rec))
	got, err = s.store.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnpaid, got.PaymentStatus)
	assert.Empty(t, got.PaymentProofPath)

	rec = s.do(formRequest("/delete/1", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []Flash{{Category: "success", Message: "Invoice deleted successfully."}}, flashesOf(t, rec))

	rec = s.do(formRequest("/delete/1", nil))
	assert.Equal(t, []Flash{{Category: "danger", Message: "Invoice not found."}}, flashesOf(t, rec))
}

func TestStatsEndpoints(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	seedInvoice(t, s, "INV-1")
	seedInvoice(t, s, "INV-2")

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st invoices.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.InvoiceCount)
	assert.Equal(t, "200.00", st.TotalAmount.StringFixed(2))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Corp")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/invoices?startDate=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Start date format is invalid. Use YYYY-MM-DD.")

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/invoices?invoiceNumber=inv-2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Invoices []models.Invoice `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Invoices, 1)
	assert.Equal(t, "INV-2", list.Invoices[0].InvoiceNumber)
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, 10<<20, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/ocr")
}

func TestTemplateFuncs(t *testing.T) {
	assert.Equal(t, "$1,234,567.50", money(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "$0.00", money(decimal.Zero))
	assert.Equal(t, "-$12.00", money(decimal.NewFromInt(-12)))
	assert.Equal(t, "$999.99", money(decimal.RequireFromString("999.99")))

	assert.Equal(t, "November 5, 2025", formatDate("2025-11-05"))
	assert.Equal(t, "not a date", formatDate("not a date"))
	assert.Equal(t, "", formatDate(""))

	assert.Equal(t, `<span class="badge bg-warning text-dark">Partial</span>`, string(statusBadge(models.StatusPartial)))
	assert.Contains(t, string(statusBadge("weird")), "Unknown")
}

func TestSizeLabel(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{10 << 20, "10 MB"},
		{3 << 19, "1.5 MB"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{500, "500 bytes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sizeLabel(tt.n))
	}
}

func TestSentence(t *testing.T) {
	assert.Equal(t, "Failed to save invoice: boom", sentence("failed to save invoice: boom"))
	assert.Equal(t, "Already upper", sentence("Already upper"))
	assert.Equal(t, "", sentence(""))
}
