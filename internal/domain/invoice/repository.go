package invoice

import (
	"context"

	"github.com/billfold/billfold/internal/types"
)

// Repository defines the interface for invoice persistence operations.
// Invoices are stored together with their line items: Create and Update
// write the whole aggregate, Get and List load it back.
type Repository interface {
	// Create creates a new invoice with its line items
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID including its line items
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update persists the invoice fields and reconciles its line items
	Update(ctx context.Context, invoice *Invoice) error

	// Delete removes the invoice and cascades to its line items
	Delete(ctx context.Context, id string) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// CountByCustomer returns the number of invoices owned by a customer
	CountByCustomer(ctx context.Context, customerID string) (int, error)

	// GetLineItem retrieves a line item by its own id, regardless of which
	// invoice it belongs to
	GetLineItem(ctx context.Context, lineItemID string) (*LineItem, error)

	// LatestInvoiceNumber returns the lexicographically greatest invoice
	// number with the given prefix, or the empty string when none exists
	LatestInvoiceNumber(ctx context.Context, prefix string) (string, error)
}
