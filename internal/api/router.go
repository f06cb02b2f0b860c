package api

import (
	v1 "github.com/billfold/billfold/internal/api/v1"
	"github.com/billfold/billfold/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Customer *v1.CustomerHandler
	Invoice  *v1.InvoiceHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Customer routes
	customers := router.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.GetCustomers)
		customers.GET("/search", handlers.Customer.SearchCustomers)
		customers.GET("/email/:email", handlers.Customer.GetCustomerByEmail)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.DELETE("/:id", handlers.Customer.DeleteCustomer)
		customers.GET("/:id/invoices", handlers.Invoice.GetInvoicesByCustomer)
	}

	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.GetInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.DELETE("/:id", handlers.Invoice.DeleteInvoice)
		invoices.PUT("/:id/status", handlers.Invoice.UpdateInvoiceStatus)
		invoices.POST("/:id/line-items", handlers.Invoice.AddLineItem)
		invoices.PUT("/:id/line-items/:line_item_id", handlers.Invoice.UpdateLineItem)
		invoices.DELETE("/:id/line-items/:line_item_id", handlers.Invoice.RemoveLineItem)
	}
}
