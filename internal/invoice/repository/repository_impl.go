package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/garagedesk/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, appointment_id, owner_id, customer_name, amount, currency,
			status, issued_at, paid_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.AppointmentID,
		invoice.OwnerID,
		invoice.CustomerName,
		invoice.Amount,
		invoice.Currency,
		invoice.Status,
		invoice.IssuedAt,
		invoice.PaidAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (invoice_id, position, description, price, service_id)
			 VALUES (?, ?, ?, ?, ?)`,
			item.InvoiceID,
			item.Position,
			item.Description,
			item.Price,
			item.ServiceID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT id, appointment_id, owner_id, customer_name, amount, currency,
		        status, issued_at, paid_at, updated_at
		 FROM invoices WHERE id = ?`,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_id, position, description, price, service_id
		 FROM invoice_items WHERE invoice_id = ? ORDER BY position ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindItemsByInvoices(ctx context.Context, db *gorm.DB, invoiceIDs []snowflake.ID) ([]domain.LineItem, error) {
	if len(invoiceIDs) == 0 {
		return nil, nil
	}
	raw := make([]int64, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		raw = append(raw, id.Int64())
	}

	var items []domain.LineItem
	err := db.WithContext(ctx).Raw(
		`SELECT invoice_id, position, description, price, service_id
		 FROM invoice_items WHERE invoice_id IN ? ORDER BY invoice_id ASC, position ASC`,
		raw,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var items []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.OwnerID != "" {
		stmt = stmt.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id < ?", filter.AfterID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid,
		paidAt,
		paidAt,
		id,
		domain.StatusUnpaid,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
