package dto

import (
	"context"

	"github.com/billfold/billfold/internal/domain/customer"
	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/go-playground/validator/v10"
)

type CreateCustomerRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Email          string  `json:"email" validate:"required,email,max=256"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	BillingAddress *string `json:"billing_address" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Email          string  `json:"email" validate:"required,email,max=256"`
	Phone          *string `json:"phone" validate:"omitempty,max=50"`
	BillingAddress *string `json:"billing_address" validate:"omitempty,max=500"`
}

type CustomerResponse struct {
	*customer.Customer
}

// ListCustomersResponse represents the response for listing customers
type ListCustomersResponse = types.ListResponse[*CustomerResponse]

func (r *CreateCustomerRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid customer payload").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateCustomerRequest) ToCustomer(ctx context.Context) (*customer.Customer, error) {
	c, err := customer.New(
		types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		r.Name,
		r.Email,
		r.Phone,
		r.BillingAddress,
	)
	if err != nil {
		return nil, err
	}
	c.BaseModel = types.GetDefaultBaseModel(ctx)
	return c, nil
}

func (r *UpdateCustomerRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid customer payload").
			Mark(ierr.ErrValidation)
	}
	return nil
}
