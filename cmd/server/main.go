package main

import (
	"context"
	"time"

	"github.com/billfold/billfold/internal/api"
	v1 "github.com/billfold/billfold/internal/api/v1"
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/postgres"
	"github.com/billfold/billfold/internal/repository"
	"github.com/billfold/billfold/internal/service"
	"github.com/billfold/billfold/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Billfold API
// @version 1.0
// @description Customer and invoice management service
// @BasePath /v1
// @schemes http https

func init() {
	// All timestamps and invoice date arithmetic are UTC
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			types.NewClock,

			postgres.NewDB,

			repository.NewCustomerRepository,
			repository.NewInvoiceRepository,

			service.NewServiceParams,
			service.NewCustomerService,
			service.NewInvoiceService,

			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startAPIServer),
	)

	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	customerService service.CustomerService,
	invoiceService service.InvoiceService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(),
		Customer: v1.NewCustomerHandler(customerService, logger),
		Invoice:  v1.NewInvoiceHandler(invoiceService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return db.Close()
		},
	})
}
