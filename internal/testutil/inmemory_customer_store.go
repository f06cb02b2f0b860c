package testutil

import (
	"context"
	"strings"

	"github.com/billfold/billfold/internal/domain/customer"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/samber/lo"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
}

// NewInMemoryCustomerStore creates a new in-memory customer store
func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

// Helper to copy customer
func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}

	copied := *c
	copied.Phone = copyPtr(c.Phone)
	copied.BillingAddress = copyPtr(c.BillingAddress)
	return &copied
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if err := s.InMemoryStore.Create(ctx, c.ID, copyCustomer(c)); err != nil {
		return ierr.WithError(err).
			WithHint("Customer already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	filterFn := func(_ context.Context, c *customer.Customer, _ interface{}) bool {
		return strings.EqualFold(c.Email, email) && c.Status != types.StatusDeleted
	}

	customers, err := s.InMemoryStore.List(ctx, nil, filterFn, nil)
	if err != nil || len(customers) == 0 {
		return nil, ierr.NewError("customer not found").
			WithHintf("Customer with email %s was not found", email).
			Mark(ierr.ErrNotFound)
	}
	return copyCustomer(customers[0]), nil
}

func (s *InMemoryCustomerStore) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	customers, err := s.InMemoryStore.List(ctx, filter, customerFilterFn, customerSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(customers, func(c *customer.Customer, _ int) *customer.Customer {
		return copyCustomer(c)
	}), nil
}

func (s *InMemoryCustomerStore) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, customerFilterFn)
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	if err := s.InMemoryStore.Update(ctx, c.ID, copyCustomer(c)); err != nil {
		return ierr.WithError(err).
			WithHintf("Customer with ID %s was not found", c.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Customer with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	deleted := copyCustomer(c)
	deleted.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, id, deleted)
}

func customerFilterFn(_ context.Context, c *customer.Customer, filter interface{}) bool {
	f, ok := filter.(*types.CustomerFilter)
	if !ok || f == nil {
		return c.Status != types.StatusDeleted
	}

	status := types.StatusPublished
	if f.Status != nil {
		status = *f.Status
	}
	if c.Status != status {
		return false
	}

	if f.Email != "" && !strings.EqualFold(c.Email, f.Email) {
		return false
	}

	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		if !strings.Contains(strings.ToLower(c.Name), term) &&
			!strings.Contains(strings.ToLower(c.Email), term) {
			return false
		}
	}

	return true
}

func customerSortFn(i, j *customer.Customer) bool {
	return i.CreatedAt.After(j.CreatedAt)
}
