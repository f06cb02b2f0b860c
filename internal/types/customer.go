package types

import (
	ierr "github.com/billfold/billfold/internal/errors"
)

// Maximum field lengths for customers
const (
	CustomerNameMaxLength           = 200
	CustomerEmailMaxLength          = 256
	CustomerPhoneMaxLength          = 50
	CustomerBillingAddressMaxLength = 500
)

// CustomerFilter represents the filter options for listing customers
type CustomerFilter struct {
	QueryFilter
	Email string `json:"email,omitempty" form:"email"`
	// SearchTerm matches against customer name or email, case insensitive
	SearchTerm string `json:"search_term,omitempty" form:"q"`
}

// NewCustomerFilter creates a new customer filter with default query options
func NewCustomerFilter() *CustomerFilter {
	return &CustomerFilter{
		QueryFilter: DefaultQueryFilter,
	}
}

func (f *CustomerFilter) Validate() error {
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
