package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invoice-desk/pkg/models"
)

// PostgresStore keeps invoices in PostgreSQL through gorm
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to the database and migrates the schema
func OpenPostgres(dsn string, debug bool) (*PostgresStore, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Invoice{}, &models.PaymentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

func (s *PostgresStore) ListInvoices(ctx context.Context, f Filter) ([]models.Invoice, error) {
	query := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.CompanyName != "" {
		query = query.Where("company_name ILIKE ?", likePattern(f.CompanyName))
	}
	if f.InvoiceNumber != "" {
		query = query.Where("invoice_number ILIKE ?", likePattern(f.InvoiceNumber))
	}
	if f.DateFrom != "" {
		query = query.Where("invoice_date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		query = query.Where("invoice_date <= ?", f.DateTo)
	}

	var invoices []models.Invoice
	if err := query.Order("invoice_date DESC").Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *PostgresStore) SaveInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.ID == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Save(inv).Error
}

func (s *PostgresStore) DeleteInvoice(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Invoice{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("invoice_id = ?", id).Delete(&models.PaymentRecord{}).Error
	})
}

func (s *PostgresStore) CreatePayment(ctx context.Context, rec *models.PaymentRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *PostgresStore) ListPayments(ctx context.Context, invoiceID uint) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date DESC").Order("id DESC").
		Find(&records).Error
	return records, err
}

func (s *PostgresStore) Backend() string {
	return "postgres"
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// likePattern escapes LIKE wildcards in user input and wraps it in %...%
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
