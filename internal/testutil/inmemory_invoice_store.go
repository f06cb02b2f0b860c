package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/billfold/billfold/internal/domain/invoice"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository. Invoice numbers are
// kept in a side index so duplicates are rejected the way the database
// unique constraint would reject them.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	mu      sync.Mutex
	numbers map[string]string // invoice number -> invoice id
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		numbers:       make(map[string]string),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}

	copied := *inv
	copied.DueDate = copyPtr(inv.DueDate)
	copied.LineItems = lo.Map(inv.LineItems, func(li *invoice.LineItem, _ int) *invoice.LineItem {
		item := *li
		return &item
	})
	return &copied
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.numbers[inv.InvoiceNumber]; taken {
		return ierr.NewError("duplicate invoice number").
			WithHint("An invoice with this invoice number already exists").
			WithReportableDetails(map[string]any{
				"invoice_number": inv.InvoiceNumber,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv)); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice already exists").
			Mark(ierr.ErrAlreadyExists)
	}

	s.numbers[inv.InvoiceNumber] = inv.ID
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv)); err != nil {
		return ierr.WithError(err).
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}

	s.mu.Lock()
	delete(s.numbers, inv.InvoiceNumber)
	s.mu.Unlock()

	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	filterFn := func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.CustomerID == customerID
	}
	return s.InMemoryStore.Count(ctx, nil, filterFn)
}

func (s *InMemoryInvoiceStore) GetLineItem(ctx context.Context, lineItemID string) (*invoice.LineItem, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		for _, li := range inv.LineItems {
			if li.ID == lineItemID {
				item := *li
				return &item, nil
			}
		}
	}

	return nil, ierr.NewError("line item not found").
		WithHintf("Line item with ID %s was not found", lineItemID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryInvoiceStore) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := ""
	for number := range s.numbers {
		if strings.HasPrefix(number, prefix) && number > latest {
			latest = number
		}
	}
	return latest, nil
}

// Clear removes all invoices and frees their invoice numbers
func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	s.numbers = make(map[string]string)
	s.mu.Unlock()
	s.InMemoryStore.Clear()
}

func invoiceFilterFn(_ context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}

	if f.Status != nil && inv.Status != *f.Status {
		return false
	}

	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	if !i.InvoiceDate.Equal(j.InvoiceDate) {
		return i.InvoiceDate.After(j.InvoiceDate)
	}
	return i.InvoiceNumber > j.InvoiceNumber
}
