package service

import (
	"context"
	"time"

	"github.com/billfold/billfold/internal/api/dto"
	"github.com/billfold/billfold/internal/domain/invoice"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
)

// Two concurrent creates can draw the same invoice number; the unique
// constraint rejects the loser and we draw again.
const createRetryAttempts = 2

// InvoiceService manages the invoice aggregate lifecycle
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	GetInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	GetInvoicesByCustomer(ctx context.Context, customerID string) ([]*dto.InvoiceResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	AddLineItem(ctx context.Context, invoiceID string, req dto.CreateLineItemRequest) (*dto.InvoiceResponse, error)
	UpdateLineItem(ctx context.Context, invoiceID, lineItemID string, req dto.UpdateLineItemRequest) (*dto.InvoiceResponse, error)
	RemoveLineItem(ctx context.Context, invoiceID, lineItemID string) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
	numberGen *invoice.NumberGenerator
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		numberGen:     invoice.NewNumberGenerator(params.InvoiceRepo, params.Clock, params.Logger),
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust, err := s.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	invoiceDate := lo.FromPtrOr(req.InvoiceDate, s.Clock.Now())

	var created *invoice.Invoice
	operation := func() error {
		number, err := s.numberGen.Generate(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		inv, err := invoice.New(
			types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
			number,
			req.CustomerID,
			invoiceDate,
			req.DueDate,
			types.InvoiceStatusDraft,
			s.Clock,
		)
		if err != nil {
			return backoff.Permanent(err)
		}
		inv.TaxAmount = req.TaxAmount
		inv.BaseModel = types.GetDefaultBaseModel(ctx)

		for _, liReq := range req.LineItems {
			li, err := invoice.NewLineItem(
				types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				inv.ID,
				liReq.Description,
				liReq.Quantity,
				liReq.UnitPrice,
			)
			if err != nil {
				return backoff.Permanent(err)
			}
			li.BaseModel = types.GetDefaultBaseModel(ctx)
			if err := inv.AddLineItem(li); err != nil {
				return backoff.Permanent(err)
			}
		}

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			if ierr.IsAlreadyExists(err) {
				s.Logger.Warnw("invoice number collision, regenerating",
					"invoice_number", number)
				return err
			}
			return backoff.Permanent(err)
		}

		created = inv
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), createRetryAttempts), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"customer_id", created.CustomerID)

	return dto.NewInvoiceResponse(created).WithCustomerName(cust.Name), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) GetInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Sort == nil {
		filter.Sort = lo.ToPtr("invoice_date")
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	names := s.customerNames(ctx, invoices)
	items := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv).WithCustomerName(names[inv.CustomerID])
	})

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *invoiceService) GetInvoicesByCustomer(ctx context.Context, customerID string) ([]*dto.InvoiceResponse, error) {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}

	filter := types.NewNoLimitInvoiceFilter()
	filter.CustomerID = customerID
	filter.Sort = lo.ToPtr("invoice_date")

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
		return dto.NewInvoiceResponse(inv).WithCustomerName(cust.Name)
	}), nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The edit gate here is stricter than the aggregate's own guard: the
	// aggregate blocks paid invoices only, this endpoint also blocks
	// cancelled ones.
	if !inv.CanEdit() {
		return nil, errNotEditable(inv)
	}

	if err := inv.Update(req.InvoiceDate, req.DueDate, req.TaxAmount, s.Clock); err != nil {
		return nil, err
	}
	inv.UpdatedBy = types.GetUserID(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.UpdateStatus(req.InvoiceStatus); err != nil {
		return nil, err
	}
	inv.UpdatedBy = types.GetUserID(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("updated invoice status",
		"invoice_id", inv.ID,
		"invoice_status", inv.InvoiceStatus)

	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if _, err := s.InvoiceRepo.Get(ctx, id); err != nil {
		return err
	}

	if err := s.InvoiceRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.Infow("deleted invoice", "invoice_id", id)
	return nil
}

func (s *invoiceService) AddLineItem(ctx context.Context, invoiceID string, req dto.CreateLineItemRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	li, err := invoice.NewLineItem(
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		inv.ID,
		req.Description,
		req.Quantity,
		req.UnitPrice,
	)
	if err != nil {
		return nil, err
	}
	li.BaseModel = types.GetDefaultBaseModel(ctx)

	if err := inv.AddLineItem(li); err != nil {
		return nil, err
	}

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) UpdateLineItem(ctx context.Context, invoiceID, lineItemID string, req dto.UpdateLineItemRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if !inv.CanEdit() {
		return nil, errNotEditable(inv)
	}

	// Resolve the line item by its own id so addressing it through the
	// wrong invoice is reported as an ownership mismatch, not a not-found
	li, err := s.InvoiceRepo.GetLineItem(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	if li.InvoiceID != inv.ID {
		return nil, ierr.NewError("line item belongs to a different invoice").
			WithHint("Line item does not belong to this invoice").
			WithReportableDetails(map[string]any{
				"invoice_id":           inv.ID,
				"line_item_id":         lineItemID,
				"line_item_invoice_id": li.InvoiceID,
			}).
			Mark(ierr.ErrLineItemOwnership)
	}

	if err := inv.UpdateLineItem(lineItemID, req.Description, req.Quantity, req.UnitPrice); err != nil {
		return nil, err
	}
	inv.UpdatedBy = types.GetUserID(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) RemoveLineItem(ctx context.Context, invoiceID, lineItemID string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.RemoveLineItem(lineItemID); err != nil {
		return nil, err
	}
	inv.UpdatedBy = types.GetUserID(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, inv), nil
}

func (s *invoiceService) toResponse(ctx context.Context, inv *invoice.Invoice) *dto.InvoiceResponse {
	resp := dto.NewInvoiceResponse(inv)
	if cust, err := s.CustomerRepo.Get(ctx, inv.CustomerID); err == nil {
		resp.WithCustomerName(cust.Name)
	}
	return resp
}

// customerNames resolves the display names for every customer referenced
// by the given invoices. Lookup failures leave the name empty rather than
// failing the listing.
func (s *invoiceService) customerNames(ctx context.Context, invoices []*invoice.Invoice) map[string]string {
	names := make(map[string]string)
	for _, id := range lo.Uniq(lo.Map(invoices, func(inv *invoice.Invoice, _ int) string { return inv.CustomerID })) {
		cust, err := s.CustomerRepo.Get(ctx, id)
		if err != nil {
			s.Logger.Warnw("failed to resolve customer for invoice listing",
				"customer_id", id, "error", err)
			continue
		}
		names[id] = cust.Name
	}
	return names
}

func errNotEditable(inv *invoice.Invoice) error {
	return ierr.NewError("invoice cannot be edited").
		WithHint("Paid or cancelled invoices cannot be edited").
		WithReportableDetails(map[string]any{
			"invoice_id": inv.ID,
			"status":     inv.InvoiceStatus,
		}).
		Mark(ierr.ErrInvoiceNotEditable)
}
