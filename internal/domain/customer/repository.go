package customer

import (
	"context"

	"github.com/billfold/billfold/internal/types"
)

// Repository defines the interface for customer data access
type Repository interface {
	Create(ctx context.Context, customer *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, filter *types.CustomerFilter) ([]*Customer, error)
	Count(ctx context.Context, filter *types.CustomerFilter) (int, error)
	Update(ctx context.Context, customer *Customer) error
	// Delete soft-deletes the customer; the row is retained
	Delete(ctx context.Context, id string) error
}
