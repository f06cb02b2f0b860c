package service

import (
	"testing"

	"github.com/billfold/billfold/internal/api/dto"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/testutil"
	"github.com/billfold/billfold/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type CustomerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        CustomerService
	invoiceService InvoiceService
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		Clock:        s.GetClock(),
		CustomerRepo: s.GetStores().CustomerRepo,
		InvoiceRepo:  s.GetStores().InvoiceRepo,
	}
	s.service = NewCustomerService(params)
	s.invoiceService = NewInvoiceService(params)
}

func (s *CustomerServiceSuite) createCustomer(name, email string) *dto.CustomerResponse {
	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:  name,
		Email: email,
	})
	s.Require().NoError(err)
	return resp
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	resp, err := s.service.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:           "Acme Corp",
		Email:          "billing@acme.test",
		Phone:          lo.ToPtr("+1-555-0100"),
		BillingAddress: lo.ToPtr("1 Main Street"),
	})
	s.NoError(err)
	s.NotEmpty(resp.ID)
	s.Equal("Acme Corp", resp.Name)
	s.Equal(types.StatusPublished, resp.Status)
}

func (s *CustomerServiceSuite) TestCreateCustomerInvalid() {
	testCases := []struct {
		name string
		req  dto.CreateCustomerRequest
	}{
		{"missing name", dto.CreateCustomerRequest{Email: "a@b.test"}},
		{"missing email", dto.CreateCustomerRequest{Name: "Acme"}},
		{"malformed email", dto.CreateCustomerRequest{Name: "Acme", Email: "not-an-email"}},
	}
	for _, tc := range testCases {
		_, err := s.service.CreateCustomer(s.GetContext(), tc.req)
		s.True(ierr.IsValidation(err), tc.name)
	}
}

func (s *CustomerServiceSuite) TestGetCustomer() {
	created := s.createCustomer("Acme Corp", "billing@acme.test")

	resp, err := s.service.GetCustomer(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, resp.ID)

	_, err = s.service.GetCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *CustomerServiceSuite) TestGetCustomerByEmail() {
	s.createCustomer("Acme Corp", "billing@acme.test")

	resp, err := s.service.GetCustomerByEmail(s.GetContext(), "billing@acme.test")
	s.NoError(err)
	s.Equal("Acme Corp", resp.Name)

	_, err = s.service.GetCustomerByEmail(s.GetContext(), "unknown@acme.test")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GetCustomerByEmail(s.GetContext(), "")
	s.True(ierr.IsValidation(err))
}

func (s *CustomerServiceSuite) TestGetCustomers() {
	s.createCustomer("Acme Corp", "billing@acme.test")
	s.createCustomer("Globex", "invoices@globex.test")

	resp, err := s.service.GetCustomers(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(2, resp.Pagination.Total)
	s.Len(resp.Items, 2)
}

func (s *CustomerServiceSuite) TestSearchCustomers() {
	s.createCustomer("Acme Corp", "billing@acme.test")
	s.createCustomer("Globex", "invoices@globex.test")
	s.createCustomer("Acme Subsidiary", "sub@acme.test")

	matches, err := s.service.SearchCustomers(s.GetContext(), "acme")
	s.NoError(err)
	s.Len(matches, 2)

	matches, err = s.service.SearchCustomers(s.GetContext(), "globex")
	s.NoError(err)
	s.Len(matches, 1)
	s.Equal("Globex", matches[0].Name)
}

func (s *CustomerServiceSuite) TestUpdateCustomer() {
	created := s.createCustomer("Acme Corp", "billing@acme.test")

	resp, err := s.service.UpdateCustomer(s.GetContext(), created.ID, dto.UpdateCustomerRequest{
		Name:  "Acme Holdings",
		Email: "finance@acme.test",
		Phone: lo.ToPtr("+1-555-0101"),
	})
	s.NoError(err)
	s.Equal("Acme Holdings", resp.Name)
	s.Equal("finance@acme.test", resp.Email)

	_, err = s.service.UpdateCustomer(s.GetContext(), "cust_missing", dto.UpdateCustomerRequest{
		Name:  "Nobody",
		Email: "nobody@test.test",
	})
	s.True(ierr.IsNotFound(err))
}

func (s *CustomerServiceSuite) TestDeleteCustomer() {
	created := s.createCustomer("Acme Corp", "billing@acme.test")

	s.NoError(s.service.DeleteCustomer(s.GetContext(), created.ID))

	_, err := s.service.GetCustomer(s.GetContext(), created.ID)
	s.Error(err)
}

func (s *CustomerServiceSuite) TestDeleteCustomerWithInvoicesBlocked() {
	created := s.createCustomer("Acme Corp", "billing@acme.test")

	_, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: created.ID,
	})
	s.Require().NoError(err)

	err = s.service.DeleteCustomer(s.GetContext(), created.ID)
	s.True(ierr.IsInvalidOperation(err))

	// Still retrievable after the rejected delete
	_, err = s.service.GetCustomer(s.GetContext(), created.ID)
	s.NoError(err)
}
