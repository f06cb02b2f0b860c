package service

import (
	"context"

	"github.com/billfold/billfold/internal/api/dto"
	"github.com/billfold/billfold/internal/domain/customer"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/samber/lo"
)

// CustomerService manages the customer lifecycle
type CustomerService interface {
	CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error)
	GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error)
	GetCustomerByEmail(ctx context.Context, email string) (*dto.CustomerResponse, error)
	SearchCustomers(ctx context.Context, searchTerm string) ([]*dto.CustomerResponse, error)
	UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
}

type customerService struct {
	ServiceParams
}

func NewCustomerService(params ServiceParams) CustomerService {
	return &customerService{
		ServiceParams: params,
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, req dto.CreateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust, err := req.ToCustomer(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.CustomerRepo.Create(ctx, cust); err != nil {
		return nil, err
	}

	s.Logger.Infow("created customer", "customer_id", cust.ID)
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*dto.CustomerResponse, error) {
	cust, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) GetCustomers(ctx context.Context, filter *types.CustomerFilter) (*dto.ListCustomersResponse, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	customers, err := s.CustomerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.CustomerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(customers, func(c *customer.Customer, _ int) *dto.CustomerResponse {
		return &dto.CustomerResponse{Customer: c}
	})

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *customerService) GetCustomerByEmail(ctx context.Context, email string) (*dto.CustomerResponse, error) {
	if email == "" {
		return nil, ierr.NewError("email is required").
			WithHint("Please provide an email address").
			Mark(ierr.ErrValidation)
	}

	cust, err := s.CustomerRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &dto.CustomerResponse{Customer: cust}, nil
}

func (s *customerService) SearchCustomers(ctx context.Context, searchTerm string) ([]*dto.CustomerResponse, error) {
	filter := types.NewCustomerFilter()
	filter.QueryFilter = types.NoLimitQueryFilter
	filter.SearchTerm = searchTerm

	customers, err := s.CustomerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return lo.Map(customers, func(c *customer.Customer, _ int) *dto.CustomerResponse {
		return &dto.CustomerResponse{Customer: c}
	}), nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req dto.UpdateCustomerRequest) (*dto.CustomerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cust, err := s.CustomerRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := cust.Update(req.Name, req.Email, req.Phone, req.BillingAddress); err != nil {
		return nil, err
	}
	cust.UpdatedBy = types.GetUserID(ctx)

	if err := s.CustomerRepo.Update(ctx, cust); err != nil {
		return nil, err
	}

	s.Logger.Infow("updated customer", "customer_id", cust.ID)
	return &dto.CustomerResponse{Customer: cust}, nil
}

// DeleteCustomer soft-deletes a customer. A customer that still owns
// invoices cannot be removed.
func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.CustomerRepo.Get(ctx, id); err != nil {
		return err
	}

	invoiceCount, err := s.InvoiceRepo.CountByCustomer(ctx, id)
	if err != nil {
		return err
	}
	if invoiceCount > 0 {
		return ierr.NewError("customer has invoices").
			WithHint("Customers with invoices cannot be deleted").
			WithReportableDetails(map[string]any{
				"customer_id":   id,
				"invoice_count": invoiceCount,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.CustomerRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.Infow("deleted customer", "customer_id", id)
	return nil
}
