package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billfold/billfold/internal/domain/invoice"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/postgres"
	"github.com/billfold/billfold/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"customer_id", inv.CustomerID)

	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO invoices (
				id, invoice_number, customer_id, invoice_date, due_date, invoice_status,
				tax_amount, status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :invoice_number, :customer_id, :invoice_date, :due_date, :invoice_status,
				:tax_amount, :status, :created_at, :updated_at, :created_by, :updated_by
			)`

		if _, err := r.db.NamedExecContext(txCtx, query, inv); err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("An invoice with this number already exists").
					WithReportableDetails(map[string]any{
						"invoice_number": inv.InvoiceNumber,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
			return ierr.WithError(err).
				WithHint("Failed to create invoice").
				Mark(ierr.ErrDatabase)
		}

		for _, li := range inv.LineItems {
			if err := r.insertLineItem(txCtx, li); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT * FROM invoices WHERE id = $1 AND status = $2`

	var inv invoice.Invoice
	err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, id, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice with id %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}

	lineItems, err := r.loadLineItems(ctx, []string{inv.ID})
	if err != nil {
		return nil, err
	}
	inv.LineItems = lineItems[inv.ID]
	if inv.LineItems == nil {
		inv.LineItems = []*invoice.LineItem{}
	}
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("updating invoice", "invoice_id", inv.ID)

	inv.UpdatedAt = time.Now().UTC()
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE invoices SET
				invoice_date = :invoice_date,
				due_date = :due_date,
				invoice_status = :invoice_status,
				tax_amount = :tax_amount,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		res, err := r.db.NamedExecContext(txCtx, query, inv)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to update invoice").
				Mark(ierr.ErrDatabase)
		}
		if err := requireRowsAffected(res, "invoice"); err != nil {
			return err
		}
		return r.reconcileLineItems(txCtx, inv)
	})
}

// reconcileLineItems makes the stored line items match the aggregate's
// current collection: new items are inserted, existing ones updated, and
// items no longer present are removed.
func (r *invoiceRepository) reconcileLineItems(ctx context.Context, inv *invoice.Invoice) error {
	q := r.db.GetQuerier(ctx)

	var existingIDs []string
	if err := q.SelectContext(ctx, &existingIDs,
		`SELECT id FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to load invoice line items").
			Mark(ierr.ErrDatabase)
	}

	existing := lo.SliceToMap(existingIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})

	kept := make([]string, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		kept = append(kept, li.ID)
		if _, ok := existing[li.ID]; ok {
			if err := r.updateLineItem(ctx, li); err != nil {
				return err
			}
		} else {
			if err := r.insertLineItem(ctx, li); err != nil {
				return err
			}
		}
	}

	// Remove rows the aggregate no longer holds
	query := `DELETE FROM invoice_line_items WHERE invoice_id = ?`
	args := []interface{}{inv.ID}
	if len(kept) > 0 {
		var err error
		query, args, err = sqlx.In(
			`DELETE FROM invoice_line_items WHERE invoice_id = ? AND id NOT IN (?)`, inv.ID, kept)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to build line item cleanup query").
				Mark(ierr.ErrDatabase)
		}
	}
	query = r.db.Rebind(query)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to remove stale invoice line items").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	r.logger.Debugw("deleting invoice", "invoice_id", id)

	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		q := r.db.GetQuerier(txCtx)

		if _, err := q.ExecContext(txCtx,
			`DELETE FROM invoice_line_items WHERE invoice_id = $1`, id); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete invoice line items").
				Mark(ierr.ErrDatabase)
		}

		res, err := q.ExecContext(txCtx, `DELETE FROM invoices WHERE id = $1`, id)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete invoice").
				Mark(ierr.ErrDatabase)
		}
		return requireRowsAffected(res, "invoice")
	})
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	where, args := invoiceWhere(filter)
	query := fmt.Sprintf(
		`SELECT * FROM invoices %s ORDER BY %s %s`,
		where, invoiceSortColumn(filter.GetSort()), sortOrder(filter.GetOrder()),
	)
	if !filter.IsUnlimited() {
		query = fmt.Sprintf("%s LIMIT %d OFFSET %d", query, filter.GetLimit(), filter.GetOffset())
	}

	invoices := []*invoice.Invoice{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	if len(invoices) == 0 {
		return invoices, nil
	}

	ids := lo.Map(invoices, func(inv *invoice.Invoice, _ int) string { return inv.ID })
	lineItems, err := r.loadLineItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		inv.LineItems = lineItems[inv.ID]
		if inv.LineItems == nil {
			inv.LineItems = []*invoice.LineItem{}
		}
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	where, args := invoiceWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM invoices %s`, where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	query := `SELECT COUNT(*) FROM invoices WHERE customer_id = $1 AND status = $2`

	var count int
	err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, customerID, types.StatusPublished)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count customer invoices").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *invoiceRepository) GetLineItem(ctx context.Context, lineItemID string) (*invoice.LineItem, error) {
	query := `SELECT * FROM invoice_line_items WHERE id = $1`

	var li invoice.LineItem
	err := r.db.GetQuerier(ctx).GetContext(ctx, &li, query, lineItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("line item not found").
				WithHintf("Line item with id %s was not found", lineItemID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get line item").
			Mark(ierr.ErrDatabase)
	}
	return &li, nil
}

func (r *invoiceRepository) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	query := `
		SELECT invoice_number FROM invoices
		WHERE invoice_number LIKE $1
		ORDER BY invoice_number DESC
		LIMIT 1`

	var number string
	err := r.db.GetQuerier(ctx).GetContext(ctx, &number, query, prefix+"%")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", ierr.WithError(err).
			WithHint("Failed to query latest invoice number").
			Mark(ierr.ErrDatabase)
	}
	return number, nil
}

func (r *invoiceRepository) insertLineItem(ctx context.Context, li *invoice.LineItem) error {
	query := `
		INSERT INTO invoice_line_items (
			id, invoice_id, description, quantity, unit_price,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :invoice_id, :description, :quantity, :unit_price,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	if _, err := r.db.NamedExecContext(ctx, query, li); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice line item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) updateLineItem(ctx context.Context, li *invoice.LineItem) error {
	query := `
		UPDATE invoice_line_items SET
			description = :description,
			quantity = :quantity,
			unit_price = :unit_price,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	li.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, li); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice line item").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) loadLineItems(ctx context.Context, invoiceIDs []string) (map[string][]*invoice.LineItem, error) {
	query, args, err := sqlx.In(
		`SELECT * FROM invoice_line_items WHERE invoice_id IN (?) ORDER BY created_at ASC`, invoiceIDs)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build line item query").
			Mark(ierr.ErrDatabase)
	}
	query = r.db.Rebind(query)

	items := []*invoice.LineItem{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load invoice line items").
			Mark(ierr.ErrDatabase)
	}

	return lo.GroupBy(items, func(li *invoice.LineItem) string { return li.InvoiceID }), nil
}

func invoiceWhere(filter *types.InvoiceFilter) (string, []interface{}) {
	clauses := []string{"status = $1"}
	args := []interface{}{filter.GetStatus()}

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func invoiceSortColumn(sort string) string {
	switch sort {
	case "invoice_date", "invoice_number", "created_at", "updated_at":
		return sort
	default:
		return "created_at"
	}
}
