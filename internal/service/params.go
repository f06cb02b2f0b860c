package service

import (
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/domain/customer"
	"github.com/billfold/billfold/internal/domain/invoice"
	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/types"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Clock  types.Clock

	// Repositories
	CustomerRepo customer.Repository
	InvoiceRepo  invoice.Repository
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	clock types.Clock,
	customerRepo customer.Repository,
	invoiceRepo invoice.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:       logger,
		Config:       config,
		Clock:        clock,
		CustomerRepo: customerRepo,
		InvoiceRepo:  invoiceRepo,
	}
}
