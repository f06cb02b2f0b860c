package customer

import (
	"strings"

	ierr "github.com/billfold/billfold/internal/errors"
	"github.com/billfold/billfold/internal/types"
	"github.com/go-playground/validator/v10"
)

// Customer represents a customer in the system. Customers own invoices by
// reference: an invoice carries the customer id, the customer never holds
// its invoices.
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Name is the name of the customer
	Name string `db:"name" json:"name"`

	// Email is the email of the customer
	Email string `db:"email" json:"email"`

	// Phone is the phone number of the customer
	Phone *string `db:"phone" json:"phone,omitempty"`

	// BillingAddress is the billing address of the customer
	BillingAddress *string `db:"billing_address" json:"billing_address,omitempty"`

	types.BaseModel
}

// New creates a new customer with validated fields
func New(id, name, email string, phone, billingAddress *string) (*Customer, error) {
	c := &Customer{
		ID: id,
	}
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	if err := c.SetEmail(email); err != nil {
		return nil, err
	}
	if err := c.setOptionalFields(phone, billingAddress); err != nil {
		return nil, err
	}
	return c, nil
}

// SetName sets the customer name with validation
func (c *Customer) SetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ierr.NewError("customer name is required").
			WithHint("Name must not be empty").
			Mark(ierr.ErrValidation)
	}
	if len(name) > types.CustomerNameMaxLength {
		return ierr.NewError("customer name too long").
			WithHintf("Name must be at most %d characters", types.CustomerNameMaxLength).
			Mark(ierr.ErrValidation)
	}
	c.Name = name
	return nil
}

// SetEmail sets the customer email with validation
func (c *Customer) SetEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ierr.NewError("customer email is required").
			WithHint("Email must not be empty").
			Mark(ierr.ErrValidation)
	}
	if len(email) > types.CustomerEmailMaxLength {
		return ierr.NewError("customer email too long").
			WithHintf("Email must be at most %d characters", types.CustomerEmailMaxLength).
			Mark(ierr.ErrValidation)
	}
	if err := validator.New().Var(email, "email"); err != nil {
		return ierr.NewError("invalid customer email").
			WithHint("Email must be a valid email address").
			WithReportableDetails(map[string]any{
				"email": email,
			}).
			Mark(ierr.ErrValidation)
	}
	c.Email = email
	return nil
}

func (c *Customer) setOptionalFields(phone, billingAddress *string) error {
	if phone != nil && len(*phone) > types.CustomerPhoneMaxLength {
		return ierr.NewError("customer phone too long").
			WithHintf("Phone must be at most %d characters", types.CustomerPhoneMaxLength).
			Mark(ierr.ErrValidation)
	}
	if billingAddress != nil && len(*billingAddress) > types.CustomerBillingAddressMaxLength {
		return ierr.NewError("customer billing address too long").
			WithHintf("Billing address must be at most %d characters", types.CustomerBillingAddressMaxLength).
			Mark(ierr.ErrValidation)
	}
	c.Phone = phone
	c.BillingAddress = billingAddress
	return nil
}

// Update re-validates and overwrites all mutable customer fields. The
// customer is left unmodified when any field fails validation.
func (c *Customer) Update(name, email string, phone, billingAddress *string) error {
	updated := *c
	if err := updated.SetName(name); err != nil {
		return err
	}
	if err := updated.SetEmail(email); err != nil {
		return err
	}
	if err := updated.setOptionalFields(phone, billingAddress); err != nil {
		return err
	}
	*c = updated
	return nil
}
