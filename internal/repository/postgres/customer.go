package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/billfold/billfold/internal/domain/customer"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/postgres"
	"github.com/billfold/billfold/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

type customerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCustomerRepository(db *postgres.DB, logger *logger.Logger) customer.Repository {
	return &customerRepository{db: db, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, name, email, phone, billing_address, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :email, :phone, :billing_address, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating customer", "customer_id", c.ID)

	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A customer with this email already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create customer").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	query := `SELECT * FROM customers WHERE id = $1 AND status = $2`

	var c customer.Customer
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHintf("Customer with id %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get customer").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	query := `SELECT * FROM customers WHERE email = $1 AND status = $2`

	var c customer.Customer
	err := r.db.GetQuerier(ctx).GetContext(ctx, &c, query, email, types.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHintf("Customer with email %s was not found", email).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get customer").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *customerRepository) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	where, args := customerWhere(filter)
	query := fmt.Sprintf(
		`SELECT * FROM customers %s ORDER BY %s %s`,
		where, customerSortColumn(filter.GetSort()), sortOrder(filter.GetOrder()),
	)
	if !filter.IsUnlimited() {
		query = fmt.Sprintf("%s LIMIT %d OFFSET %d", query, filter.GetLimit(), filter.GetOffset())
	}

	customers := []*customer.Customer{}
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list customers").
			Mark(ierr.ErrDatabase)
	}
	return customers, nil
}

func (r *customerRepository) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	where, args := customerWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM customers %s`, where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count customers").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers SET
			name = :name,
			email = :email,
			phone = :phone,
			billing_address = :billing_address,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	r.logger.Debugw("updating customer", "customer_id", c.ID)

	c.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A customer with this email already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to update customer").
			Mark(ierr.ErrDatabase)
	}
	return requireRowsAffected(res, "customer")
}

func (r *customerRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE customers SET
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	r.logger.Debugw("deleting customer", "customer_id", id)

	res, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         id,
		"status":     types.StatusDeleted,
		"updated_by": types.GetUserID(ctx),
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete customer").
			Mark(ierr.ErrDatabase)
	}
	return requireRowsAffected(res, "customer")
}

func customerWhere(filter *types.CustomerFilter) (string, []interface{}) {
	clauses := []string{"status = $1"}
	args := []interface{}{filter.GetStatus()}

	if filter.Email != "" {
		args = append(args, filter.Email)
		clauses = append(clauses, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.SearchTerm != "" {
		args = append(args, "%"+filter.SearchTerm+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	where := "WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// customerSortColumn whitelists sortable columns to keep untrusted sort
// input out of the query text
func customerSortColumn(sort string) string {
	switch sort {
	case "name", "email", "created_at", "updated_at":
		return sort
	default:
		return "created_at"
	}
}

func sortOrder(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}

func requireRowsAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}
	if n == 0 {
		return ierr.NewError(entity + " not found").
			WithHintf("The %s does not exist", entity).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
