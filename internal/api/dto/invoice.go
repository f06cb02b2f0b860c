package dto

import (
	"time"

	"github.com/billfold/billfold/internal/domain/invoice"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type CreateInvoiceRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	// InvoiceDate defaults to today when omitted
	InvoiceDate *time.Time              `json:"invoice_date,omitempty"`
	DueDate     *time.Time              `json:"due_date,omitempty"`
	TaxAmount   decimal.Decimal         `json:"tax_amount"`
	LineItems   []CreateLineItemRequest `json:"line_items,omitempty"`
}

type CreateLineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type UpdateInvoiceRequest struct {
	InvoiceDate time.Time       `json:"invoice_date" validate:"required"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

type UpdateInvoiceStatusRequest struct {
	InvoiceStatus types.InvoiceStatus `json:"invoice_status" validate:"required"`
}

type UpdateLineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice payload").
			Mark(ierr.ErrValidation)
	}
	if r.TaxAmount.IsNegative() {
		return ierr.NewError("tax amount must be non negative").
			WithHint("Tax amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	for _, li := range r.LineItems {
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateLineItemRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid line item payload").
			Mark(ierr.ErrValidation)
	}
	if !r.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than zero").
			WithHint("Quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price must be non negative").
			WithHint("Unit price must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *UpdateInvoiceRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid invoice payload").
			Mark(ierr.ErrValidation)
	}
	if r.TaxAmount.IsNegative() {
		return ierr.NewError("tax amount must be non negative").
			WithHint("Tax amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *UpdateInvoiceStatusRequest) Validate() error {
	return r.InvoiceStatus.Validate()
}

func (r *UpdateLineItemRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid line item payload").
			Mark(ierr.ErrValidation)
	}
	if !r.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than zero").
			WithHint("Quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price must be non negative").
			WithHint("Unit price must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LineItemResponse carries a line item together with its derived total
type LineItemResponse struct {
	*invoice.LineItem
	Total decimal.Decimal `json:"total"`
}

// InvoiceResponse carries an invoice together with its derived totals and
// the owning customer's display name
type InvoiceResponse struct {
	*invoice.Invoice
	CustomerName string              `json:"customer_name,omitempty"`
	LineItems    []*LineItemResponse `json:"line_items"`
	SubTotal     decimal.Decimal     `json:"sub_total"`
	GrandTotal   decimal.Decimal     `json:"grand_total"`
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

// NewInvoiceResponse builds a response from the aggregate, computing the
// derived totals at read time
func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice: inv,
		LineItems: lo.Map(inv.LineItems, func(li *invoice.LineItem, _ int) *LineItemResponse {
			return &LineItemResponse{LineItem: li, Total: li.Total()}
		}),
		SubTotal:   inv.SubTotal(),
		GrandTotal: inv.GrandTotal(),
	}
}

// WithCustomerName sets the owning customer's name on the response
func (r *InvoiceResponse) WithCustomerName(name string) *InvoiceResponse {
	r.CustomerName = name
	return r
}
