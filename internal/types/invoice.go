package types

import (
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/samber/lo"
)

// InvoiceNumberMaxLength is the maximum length of a generated invoice number
// ex INV-202601-0001
const InvoiceNumberMaxLength = 50

// InvoiceStatus represents the current state of an invoice in its lifecycle
type InvoiceStatus string

const (
	// InvoiceStatusDraft indicates invoice is in draft state, not yet finalized
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusPending indicates invoice is pending approval or processing
	InvoiceStatusPending InvoiceStatus = "PENDING"
	// InvoiceStatusSent indicates invoice has been sent to the customer
	InvoiceStatusSent InvoiceStatus = "SENT"
	// InvoiceStatusPaid indicates invoice has been paid and its content is locked
	InvoiceStatusPaid InvoiceStatus = "PAID"
	// InvoiceStatusCancelled indicates invoice has been cancelled; no further
	// status transitions are allowed
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusPending,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	QueryFilter
	CustomerID string `json:"customer_id,omitempty" form:"customer_id"`
}

// NewInvoiceFilter creates a new invoice filter with default query options
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: DefaultQueryFilter,
	}
}

// NewNoLimitInvoiceFilter creates a new invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NoLimitQueryFilter,
	}
}

func (f *InvoiceFilter) Validate() error {
	if f.Limit != nil && *f.Limit < 0 {
		return ierr.NewError("invalid limit").
			WithHint("Limit must be non negative").
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}
