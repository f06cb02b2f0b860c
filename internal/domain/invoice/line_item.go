package invoice

import (
	"strings"

	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/shopspring/decimal"
)

// LineItemDescriptionMaxLength is the maximum length of a line item description
const LineItemDescriptionMaxLength = 500

// LineItem represents a single line item in an invoice. Line items have no
// lifecycle of their own: they are created, updated and removed through the
// owning invoice.
type LineItem struct {
	ID          string          `db:"id" json:"id"`
	InvoiceID   string          `db:"invoice_id" json:"invoice_id"`
	Description string          `db:"description" json:"description"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	types.BaseModel
}

// NewLineItem creates a new line item with validated fields
func NewLineItem(id, invoiceID, description string, quantity, unitPrice decimal.Decimal) (*LineItem, error) {
	li := &LineItem{
		ID:        id,
		InvoiceID: invoiceID,
	}
	if err := li.SetDescription(description); err != nil {
		return nil, err
	}
	if err := li.SetQuantity(quantity); err != nil {
		return nil, err
	}
	if err := li.SetUnitPrice(unitPrice); err != nil {
		return nil, err
	}
	return li, nil
}

// SetDescription sets the description with validation
func (li *LineItem) SetDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return ierr.NewError("line item description is required").
			WithHint("Description must not be empty").
			Mark(ierr.ErrValidation)
	}
	if len(description) > LineItemDescriptionMaxLength {
		return ierr.NewError("line item description too long").
			WithHintf("Description must be at most %d characters", LineItemDescriptionMaxLength).
			Mark(ierr.ErrValidation)
	}
	li.Description = description
	return nil
}

// SetQuantity sets the quantity with validation. Zero quantity is rejected.
func (li *LineItem) SetQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than zero").
			WithHint("Quantity must be greater than zero").
			WithReportableDetails(map[string]any{
				"quantity": quantity,
			}).
			Mark(ierr.ErrValidation)
	}
	li.Quantity = quantity
	return nil
}

// SetUnitPrice sets the unit price with validation. A zero price is a valid
// free line item.
func (li *LineItem) SetUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return ierr.NewError("line item unit price must be non negative").
			WithHint("Unit price must not be negative").
			WithReportableDetails(map[string]any{
				"unit_price": unitPrice,
			}).
			Mark(ierr.ErrValidation)
	}
	li.UnitPrice = unitPrice
	return nil
}

// Update re-validates and overwrites the mutable fields. The id and owning
// invoice id are immutable. The line item is left unmodified when any field
// fails validation.
func (li *LineItem) Update(description string, quantity, unitPrice decimal.Decimal) error {
	updated := *li
	if err := updated.SetDescription(description); err != nil {
		return err
	}
	if err := updated.SetQuantity(quantity); err != nil {
		return err
	}
	if err := updated.SetUnitPrice(unitPrice); err != nil {
		return err
	}
	*li = updated
	return nil
}

// Total is the derived line total, quantity times unit price. It is
// recomputed on every read and never stored.
func (li *LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Validate validates the line item fields
func (li *LineItem) Validate() error {
	if strings.TrimSpace(li.Description) == "" || len(li.Description) > LineItemDescriptionMaxLength {
		return ierr.NewError("invalid line item description").
			WithHintf("Description must be non empty and at most %d characters", LineItemDescriptionMaxLength).
			Mark(ierr.ErrValidation)
	}
	if !li.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than zero").
			WithHint("Quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if li.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price must be non negative").
			WithHint("Unit price must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
