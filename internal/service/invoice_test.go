package service

import (
	"context"
	"testing"
	"time"

	"github.com/billfold/billfold/internal/api/dto"
	"github.com/billfold/billfold/internal/domain/customer"
	"github.com/billfold/billfold/internal/domain/invoice"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/testutil"
	"github.com/billfold/billfold/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  InvoiceService
	testData struct {
		customer *customer.Customer
	}
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetClock().Time = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	params := ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		Clock:        s.GetClock(),
		CustomerRepo: s.GetStores().CustomerRepo,
		InvoiceRepo:  s.GetStores().InvoiceRepo,
	}
	s.service = NewInvoiceService(params)

	cust, err := customer.New("cust_test", "Acme Corp", "billing@acme.test", nil, nil)
	s.Require().NoError(err)
	cust.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), cust))
	s.testData.customer = cust
}

func (s *InvoiceServiceSuite) createInvoice(lineItems ...dto.CreateLineItemRequest) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: s.testData.customer.ID,
		LineItems:  lineItems,
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp := s.createInvoice()
	s.Equal("INV-202601-0001", resp.InvoiceNumber)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Equal(s.testData.customer.ID, resp.CustomerID)
	s.Equal("Acme Corp", resp.CustomerName)
	s.True(resp.SubTotal.IsZero())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceSequentialNumbers() {
	first := s.createInvoice()
	second := s.createInvoice()
	third := s.createInvoice()

	s.Equal("INV-202601-0001", first.InvoiceNumber)
	s.Equal("INV-202601-0002", second.InvoiceNumber)
	s.Equal("INV-202601-0003", third.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceSequenceRestartsNextMonth() {
	s.createInvoice()
	s.createInvoice()

	s.GetClock().Time = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	resp := s.createInvoice()
	s.Equal("INV-202602-0001", resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceWithLineItemsAndTotals() {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: s.testData.customer.ID,
		TaxAmount:  decimal.RequireFromString("50.00"),
		LineItems: []dto.CreateLineItemRequest{
			{Description: "consulting hours", Quantity: decimal.NewFromInt(40), UnitPrice: decimal.RequireFromString("125.00")},
			{Description: "support retainer", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.RequireFromString("100.00")},
		},
	})
	s.Require().NoError(err)

	s.Len(resp.LineItems, 2)
	s.Equal("5500", resp.SubTotal.String())
	s.Equal("5550", resp.GrandTotal.String())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownCustomer() {
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: "cust_missing",
	})
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceInvalidPayload() {
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: s.testData.customer.ID,
		TaxAmount:  decimal.RequireFromString("-1"),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: s.testData.customer.ID,
		LineItems: []dto.CreateLineItemRequest{
			{Description: "widgets", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(10)},
		},
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceFutureDateRejected() {
	tomorrow := s.GetClock().Now().AddDate(0, 0, 1)
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID:  s.testData.customer.ID,
		InvoiceDate: &tomorrow,
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	created := s.createInvoice()

	resp, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.InvoiceNumber, resp.InvoiceNumber)
	s.Equal("Acme Corp", resp.CustomerName)

	_, err = s.service.GetInvoice(s.GetContext(), "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestGetInvoices() {
	s.createInvoice()
	s.createInvoice()

	resp, err := s.service.GetInvoices(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(2, resp.Pagination.Total)
	s.Len(resp.Items, 2)
}

func (s *InvoiceServiceSuite) TestGetInvoicesByCustomer() {
	s.createInvoice()
	s.createInvoice()

	other, err := customer.New("cust_other", "Globex", "inv@globex.test", nil, nil)
	s.Require().NoError(err)
	other.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), other))

	invoices, err := s.service.GetInvoicesByCustomer(s.GetContext(), s.testData.customer.ID)
	s.NoError(err)
	s.Len(invoices, 2)

	invoices, err = s.service.GetInvoicesByCustomer(s.GetContext(), other.ID)
	s.NoError(err)
	s.Empty(invoices)

	_, err = s.service.GetInvoicesByCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice() {
	created := s.createInvoice()

	due := s.GetClock().Now().AddDate(0, 0, 30)
	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceDate: s.GetClock().Now().AddDate(0, 0, -1),
		DueDate:     &due,
		TaxAmount:   decimal.RequireFromString("12.34"),
	})
	s.NoError(err)
	s.Equal("12.34", resp.TaxAmount.String())
	s.NotNil(resp.DueDate)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceBlockedWhenNotEditable() {
	for _, status := range []types.InvoiceStatus{types.InvoiceStatusPaid, types.InvoiceStatusCancelled} {
		created := s.createInvoice()
		_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
			InvoiceStatus: status,
		})
		s.Require().NoError(err)

		_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
			InvoiceDate: s.GetClock().Now(),
		})
		s.True(ierr.IsInvoiceNotEditable(err), "status %s", status)
	}
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus() {
	created := s.createInvoice()

	resp, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusSent,
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, resp.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatusCancelledIsTerminal() {
	created := s.createInvoice()

	_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusCancelled,
	})
	s.Require().NoError(err)

	_, err = s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusSent,
	})
	s.True(ierr.IsInvalidStatusTransition(err))
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	created := s.createInvoice(dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})

	s.NoError(s.service.DeleteInvoice(s.GetContext(), created.ID))

	_, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))

	// Line items go with the invoice
	_, err = s.GetStores().InvoiceRepo.GetLineItem(s.GetContext(), created.LineItems[0].ID)
	s.True(ierr.IsNotFound(err))

	s.True(ierr.IsNotFound(s.service.DeleteInvoice(s.GetContext(), "inv_missing")))
}

func (s *InvoiceServiceSuite) TestDeleteInvoiceFreesNumber() {
	created := s.createInvoice()
	s.Require().NoError(s.service.DeleteInvoice(s.GetContext(), created.ID))

	// The sequence does not reuse gaps within the month unless the latest
	// number itself was removed
	resp := s.createInvoice()
	s.Equal("INV-202601-0001", resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestAddLineItem() {
	created := s.createInvoice()

	resp, err := s.service.AddLineItem(s.GetContext(), created.ID, dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(3),
		UnitPrice:   decimal.RequireFromString("19.99"),
	})
	s.NoError(err)
	s.Len(resp.LineItems, 1)
	s.Equal("59.97", resp.SubTotal.String())
}

func (s *InvoiceServiceSuite) TestAddLineItemPaidInvoiceBlocked() {
	created := s.createInvoice()
	_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusPaid,
	})
	s.Require().NoError(err)

	_, err = s.service.AddLineItem(s.GetContext(), created.ID, dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})
	s.True(ierr.IsInvoiceNotEditable(err))
}

func (s *InvoiceServiceSuite) TestAddLineItemCancelledInvoiceAllowed() {
	created := s.createInvoice()
	_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusCancelled,
	})
	s.Require().NoError(err)

	resp, err := s.service.AddLineItem(s.GetContext(), created.ID, dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})
	s.NoError(err)
	s.Len(resp.LineItems, 1)
}

func (s *InvoiceServiceSuite) TestUpdateLineItem() {
	created := s.createInvoice(dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromInt(100),
	})

	resp, err := s.service.UpdateLineItem(s.GetContext(), created.ID, created.LineItems[0].ID, dto.UpdateLineItemRequest{
		Description: "premium widgets",
		Quantity:    decimal.NewFromInt(4),
		UnitPrice:   decimal.RequireFromString("150.00"),
	})
	s.NoError(err)
	s.Equal("premium widgets", resp.LineItems[0].Description)
	s.Equal("600", resp.SubTotal.String())
}

func (s *InvoiceServiceSuite) TestUpdateLineItemOwnershipMismatch() {
	first := s.createInvoice(dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})
	second := s.createInvoice()

	// Address first invoice's line item through the second invoice
	_, err := s.service.UpdateLineItem(s.GetContext(), second.ID, first.LineItems[0].ID, dto.UpdateLineItemRequest{
		Description: "hijacked",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(1),
	})
	s.True(ierr.IsLineItemOwnership(err))
}

func (s *InvoiceServiceSuite) TestUpdateLineItemBlockedWhenNotEditable() {
	for _, status := range []types.InvoiceStatus{types.InvoiceStatusPaid, types.InvoiceStatusCancelled} {
		created := s.createInvoice(dto.CreateLineItemRequest{
			Description: "widgets",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(10),
		})
		_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
			InvoiceStatus: status,
		})
		s.Require().NoError(err)

		_, err = s.service.UpdateLineItem(s.GetContext(), created.ID, created.LineItems[0].ID, dto.UpdateLineItemRequest{
			Description: "changed",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(1),
		})
		s.True(ierr.IsInvoiceNotEditable(err), "status %s", status)
	}
}

func (s *InvoiceServiceSuite) TestRemoveLineItem() {
	created := s.createInvoice(
		dto.CreateLineItemRequest{Description: "widgets", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		dto.CreateLineItemRequest{Description: "gadgets", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
	)

	resp, err := s.service.RemoveLineItem(s.GetContext(), created.ID, created.LineItems[1].ID)
	s.NoError(err)
	s.Len(resp.LineItems, 1)
	s.Equal("200", resp.SubTotal.String())
}

func (s *InvoiceServiceSuite) TestRemoveLineItemMissingIDIsNoOp() {
	created := s.createInvoice(dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})

	resp, err := s.service.RemoveLineItem(s.GetContext(), created.ID, "inv_line_missing")
	s.NoError(err)
	s.Len(resp.LineItems, 1)
}

func (s *InvoiceServiceSuite) TestRemoveLineItemPaidInvoiceBlocked() {
	created := s.createInvoice(dto.CreateLineItemRequest{
		Description: "widgets",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})
	_, err := s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusPaid,
	})
	s.Require().NoError(err)

	_, err = s.service.RemoveLineItem(s.GetContext(), created.ID, created.LineItems[0].ID)
	s.True(ierr.IsInvoiceNotEditable(err))
}

// staleNumberRepo simulates a reader that lags behind a concurrent writer:
// the first generator query misses the number that is already taken.
type staleNumberRepo struct {
	invoice.Repository
	stale int
}

func (r *staleNumberRepo) LatestInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	if r.stale > 0 {
		r.stale--
		return "", nil
	}
	return r.Repository.LatestInvoiceNumber(ctx, prefix)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceRetriesOnDuplicateNumber() {
	repo := s.GetStores().InvoiceRepo

	taken, err := invoiceWithNumber("INV-202601-0001", s.testData.customer.ID, s.GetClock())
	s.Require().NoError(err)
	s.Require().NoError(repo.Create(s.GetContext(), taken))

	svc := NewInvoiceService(ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		Clock:        s.GetClock(),
		CustomerRepo: s.GetStores().CustomerRepo,
		InvoiceRepo:  &staleNumberRepo{Repository: repo, stale: 1},
	})

	// First attempt draws INV-202601-0001 from the stale read, collides with
	// the unique constraint and is retried with a fresh number
	resp, err := svc.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: s.testData.customer.ID,
	})
	s.Require().NoError(err)
	s.Equal("INV-202601-0002", resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestEndToEndLifecycle() {
	created := s.createInvoice(
		dto.CreateLineItemRequest{Description: "consulting hours", Quantity: decimal.NewFromInt(40), UnitPrice: decimal.RequireFromString("125.00")},
		dto.CreateLineItemRequest{Description: "support retainer", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.RequireFromString("100.00")},
	)

	_, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		InvoiceDate: s.GetClock().Now(),
		TaxAmount:   decimal.RequireFromString("50.00"),
	})
	s.Require().NoError(err)

	resp, err := s.service.GetInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal("5500", resp.SubTotal.String())
	s.Equal("5550", resp.GrandTotal.String())

	_, err = s.service.UpdateInvoiceStatus(s.GetContext(), created.ID, dto.UpdateInvoiceStatusRequest{
		InvoiceStatus: types.InvoiceStatusPaid,
	})
	s.Require().NoError(err)

	_, err = s.service.AddLineItem(s.GetContext(), created.ID, dto.CreateLineItemRequest{
		Description: "late addition",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(10),
	})
	s.True(ierr.IsInvoiceNotEditable(err))

	// Totals unchanged by the rejected edit
	resp, err = s.service.GetInvoice(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Equal("5550", resp.GrandTotal.String())
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
}

func invoiceWithNumber(number, customerID string, clock types.Clock) (*invoice.Invoice, error) {
	return invoice.New(
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		number,
		customerID,
		clock.Now(),
		nil,
		types.InvoiceStatusDraft,
		clock,
	)
}
