package invoice

import (
	"strings"
	"time"

	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is the aggregate root for an invoice and its line items. It owns
// status transitions, line item membership and the derived totals. Totals
// are always computed from the current line items, never stored.
type Invoice struct {
	ID            string              `db:"id" json:"id"`
	InvoiceNumber string              `db:"invoice_number" json:"invoice_number"`
	CustomerID    string              `db:"customer_id" json:"customer_id"`
	InvoiceDate   time.Time           `db:"invoice_date" json:"invoice_date"`
	DueDate       *time.Time          `db:"due_date" json:"due_date,omitempty"`
	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	TaxAmount     decimal.Decimal     `db:"tax_amount" json:"tax_amount"`
	LineItems     []*LineItem         `json:"line_items,omitempty"`
	types.BaseModel
}

// New creates a new invoice. The invoice number is immutable after this
// point. The clock bounds the invoice date: it cannot be later than today.
func New(id, invoiceNumber, customerID string, invoiceDate time.Time, dueDate *time.Time, status types.InvoiceStatus, clock types.Clock) (*Invoice, error) {
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, ierr.NewError("invoice number is required").
			WithHint("Invoice number must not be empty").
			Mark(ierr.ErrValidation)
	}
	if len(invoiceNumber) > types.InvoiceNumberMaxLength {
		return nil, ierr.NewError("invoice number too long").
			WithHintf("Invoice number must be at most %d characters", types.InvoiceNumberMaxLength).
			Mark(ierr.ErrValidation)
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, ierr.NewError("customer id is required").
			WithHint("Customer id must not be empty").
			Mark(ierr.ErrValidation)
	}
	if err := status.Validate(); err != nil {
		return nil, err
	}

	inv := &Invoice{
		ID:            id,
		InvoiceNumber: invoiceNumber,
		CustomerID:    customerID,
		InvoiceStatus: status,
		TaxAmount:     decimal.Zero,
		LineItems:     []*LineItem{},
	}
	if err := inv.SetInvoiceDate(invoiceDate, clock); err != nil {
		return nil, err
	}
	if err := inv.SetDueDate(dueDate); err != nil {
		return nil, err
	}
	return inv, nil
}

// SetInvoiceDate sets the invoice date. The date cannot be in the future,
// compared at calendar-day precision.
func (i *Invoice) SetInvoiceDate(invoiceDate time.Time, clock types.Clock) error {
	if dateOf(invoiceDate).After(dateOf(clock.Now())) {
		return ierr.NewError("invoice date cannot be in the future").
			WithHint("Invoice date must not be later than today").
			WithReportableDetails(map[string]any{
				"invoice_date": invoiceDate,
			}).
			Mark(ierr.ErrValidation)
	}
	i.InvoiceDate = invoiceDate
	return nil
}

// SetDueDate sets the due date. A due date on the same day as the invoice
// date is allowed; an earlier one is not.
func (i *Invoice) SetDueDate(dueDate *time.Time) error {
	if dueDate != nil && dateOf(*dueDate).Before(dateOf(i.InvoiceDate)) {
		return ierr.NewError("due date must be on or after invoice date").
			WithHint("Due date must not precede the invoice date").
			WithReportableDetails(map[string]any{
				"invoice_date": i.InvoiceDate,
				"due_date":     *dueDate,
			}).
			Mark(ierr.ErrValidation)
	}
	i.DueDate = dueDate
	return nil
}

// Update overwrites the invoice date, due date and tax amount. Paid invoices
// are locked. The invoice is left unmodified when any validation fails.
func (i *Invoice) Update(invoiceDate time.Time, dueDate *time.Time, taxAmount decimal.Decimal, clock types.Clock) error {
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return errPaidInvoice(i.ID)
	}
	if taxAmount.IsNegative() {
		return ierr.NewError("tax amount must be non negative").
			WithHint("Tax amount must not be negative").
			Mark(ierr.ErrValidation)
	}

	updated := *i
	if err := updated.SetInvoiceDate(invoiceDate, clock); err != nil {
		return err
	}
	if err := updated.SetDueDate(dueDate); err != nil {
		return err
	}
	updated.TaxAmount = taxAmount
	*i = updated
	return nil
}

// UpdateStatus changes the invoice status. Cancelled is terminal: once
// entered, no transition to another status is allowed. All other
// transitions are unrestricted.
func (i *Invoice) UpdateStatus(newStatus types.InvoiceStatus) error {
	if err := newStatus.Validate(); err != nil {
		return err
	}
	if i.InvoiceStatus == types.InvoiceStatusCancelled && newStatus != types.InvoiceStatusCancelled {
		return ierr.NewError("cannot change status of a cancelled invoice").
			WithHint("Cancelled invoices cannot transition to another status").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
				"new_status": newStatus,
			}).
			Mark(ierr.ErrInvalidStatusTransition)
	}
	i.InvoiceStatus = newStatus
	return nil
}

// AddLineItem appends a line item to the invoice. Only paid invoices block
// this; cancelled ones do not.
func (i *Invoice) AddLineItem(li *LineItem) error {
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return errPaidInvoice(i.ID)
	}
	if li == nil {
		return ierr.NewError("line item is required").
			WithHint("Line item must not be empty").
			Mark(ierr.ErrValidation)
	}
	if li.InvoiceID != i.ID {
		return errOwnershipMismatch(i.ID, li)
	}
	i.LineItems = append(i.LineItems, li)
	return nil
}

// RemoveLineItem removes the line item with the given id. Removing an id
// that is not present is a no-op, not an error. Only paid invoices block
// this; cancelled ones do not.
func (i *Invoice) RemoveLineItem(lineItemID string) error {
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return errPaidInvoice(i.ID)
	}
	for idx, li := range i.LineItems {
		if li.ID == lineItemID {
			i.LineItems = append(i.LineItems[:idx], i.LineItems[idx+1:]...)
			return nil
		}
	}
	return nil
}

// UpdateLineItem updates a line item through the edit-gated path, which
// blocks on both paid and cancelled invoices. This is stricter than add and
// remove on purpose.
func (i *Invoice) UpdateLineItem(lineItemID, description string, quantity, unitPrice decimal.Decimal) error {
	if !i.CanEdit() {
		return ierr.NewError("invoice cannot be edited").
			WithHint("Paid or cancelled invoices cannot be edited").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvoiceNotEditable)
	}
	for _, li := range i.LineItems {
		if li.ID == lineItemID {
			return li.Update(description, quantity, unitPrice)
		}
	}
	return ierr.NewError("line item not found").
		WithHint("Line item does not exist on this invoice").
		WithReportableDetails(map[string]any{
			"invoice_id":   i.ID,
			"line_item_id": lineItemID,
		}).
		Mark(ierr.ErrNotFound)
}

// CanEdit returns true when the invoice content may be edited, which is
// the case for every status except paid and cancelled.
func (i *Invoice) CanEdit() bool {
	return i.InvoiceStatus != types.InvoiceStatusPaid && i.InvoiceStatus != types.InvoiceStatusCancelled
}

// SubTotal is the sum of all current line item totals
func (i *Invoice) SubTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range i.LineItems {
		total = total.Add(li.Total())
	}
	return total
}

// GrandTotal is the subtotal plus the tax amount
func (i *Invoice) GrandTotal() decimal.Decimal {
	return i.SubTotal().Add(i.TaxAmount)
}

// Validate checks the invoice level invariants
func (i *Invoice) Validate() error {
	if i.TaxAmount.IsNegative() {
		return ierr.NewError("tax amount must be non negative").
			WithHint("Tax amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	for _, li := range i.LineItems {
		if li.InvoiceID != i.ID {
			return errOwnershipMismatch(i.ID, li)
		}
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func errPaidInvoice(invoiceID string) error {
	return ierr.NewError("cannot modify a paid invoice").
		WithHint("Paid invoices cannot be modified").
		WithReportableDetails(map[string]any{
			"invoice_id": invoiceID,
		}).
		Mark(ierr.ErrInvoiceNotEditable)
}

func errOwnershipMismatch(invoiceID string, li *LineItem) error {
	return ierr.NewError("line item belongs to a different invoice").
		WithHint("Line item does not belong to this invoice").
		WithReportableDetails(map[string]any{
			"invoice_id":           invoiceID,
			"line_item_id":         li.ID,
			"line_item_invoice_id": li.InvoiceID,
		}).
		Mark(ierr.ErrLineItemOwnership)
}

// dateOf truncates a timestamp to its calendar day in UTC
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
