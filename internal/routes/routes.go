// Package routes defines the API routing configuration.
// It wires repositories, gateways, services and handlers together and
// groups routes by functionality.
package routes

import (
	"time"

	"bookpay/internal/config"
	"bookpay/internal/gateway/payos"
	"bookpay/internal/gateway/stripecard"
	"bookpay/internal/handlers"
	"bookpay/internal/middleware"
	"bookpay/internal/models"
	"bookpay/internal/repositories"
	"bookpay/internal/services/balance"
	"bookpay/internal/services/holder"
	"bookpay/internal/services/notification"
	"bookpay/internal/services/reconciliation"
	"bookpay/internal/services/refund"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes and returns the
// reconciliation scheduler so the caller controls its lifecycle.
func SetupRoutes(app *fiber.App, db *gorm.DB) *reconciliation.Scheduler {
	// Repositories
	balanceRepo := repositories.NewBalanceRepository(db)
	paymentRepo := repositories.NewPaymentRepository(db)
	reconciliationRepo := repositories.NewReconciliationRepository(db)
	refundRequestRepo := repositories.NewRefundRequestRepository(db)

	// Gateways
	payosClient := payos.NewClient(payos.Config{
		ClientID:    config.GetEnv("PAYOS_CLIENT_ID", ""),
		APIKey:      config.GetEnv("PAYOS_API_KEY", ""),
		ChecksumKey: config.GetEnv("PAYOS_CHECKSUM_KEY", ""),
		Endpoint:    config.GetEnv("PAYOS_ENDPOINT", "https://api-merchant.payos.vn"),
	})
	stripeProvider := stripecard.New(config.GetEnv("STRIPE_SECRET_KEY", ""))

	// Services
	balanceService := balance.NewService(balanceRepo, repositories.CacheService, balance.Config{
		DefaultCommissionRate:  config.GetFloatEnv("COMMISSION_RATE", 7.0),
		DefaultCommissionType:  config.GetEnv("COMMISSION_TYPE", models.CommissionTypePercentage),
		DefaultCommissionFixed: config.GetInt64Env("COMMISSION_FIXED", 0),
		MinimumWithdrawal:      config.GetInt64Env("MINIMUM_WITHDRAWAL", 100_000),
	})
	holderService := holder.NewService(holder.NewGatewayProvider(payosClient))
	notifier := notification.NewService()
	refundService := refund.NewService(
		paymentRepo,
		refundRequestRepo,
		balanceService,
		map[string]refund.Gateway{
			models.PaymentMethodPayOS: refund.NewPayOSGateway(payosClient),
			models.PaymentMethodCard:  stripeProvider,
		},
		holderService,
		notifier,
	)
	reconciliationService := reconciliation.NewService(reconciliationRepo, paymentRepo, payosClient)
	scheduler := reconciliation.NewScheduler(reconciliationService, reconciliation.DefaultSchedulerConfig())

	// Handlers
	balanceHandler := handlers.NewBalanceHandler(balanceService)
	refundHandler := handlers.NewRefundHandler(refundService)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationService)
	webhookHandler := handlers.NewWebhookHandler(paymentRepo, balanceService, payosClient)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")

	// Merchant balance
	api.Get("/balance/:accountID", balanceHandler.GetBalance)
	api.Post("/balance/:accountID/revenue", balanceHandler.AddRevenue)
	api.Post("/balance/:accountID/lock", balanceHandler.Lock)
	api.Post("/balance/:accountID/unlock", balanceHandler.Unlock)
	api.Post("/balance/:accountID/confirm", balanceHandler.Confirm)

	// Refunds
	api.Post("/refunds", refundHandler.ProcessRefund)
	api.Post("/refunds/manual", refundHandler.QueueManualRefund)
	api.Get("/refunds/refundable", refundHandler.RefundablePayments)

	// Gateway webhooks, rate limited against replay floods.
	webhookLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
	})
	api.Post("/webhooks/payos", webhookLimiter, webhookHandler.HandlePayOS)

	// Operator endpoints
	admin := api.Group("/admin", middleware.AdminAuth(config.GetEnv("JWT_SECRET", "bookpay")))
	admin.Post("/reconciliation/run", reconciliationHandler.RunReconciliation)
	admin.Get("/reconciliation/runs/:id", reconciliationHandler.GetRun)
	admin.Post("/balance/recalculate", balanceHandler.Recalculate)
	admin.Get("/balance/:accountID/verify", balanceHandler.VerifyLedger)
	admin.Get("/refunds/requests", refundHandler.ListRefundRequests)
	admin.Post("/refunds/requests/:id/complete", refundHandler.CompleteRefundRequest)
	admin.Post("/refunds/requests/:id/reject", refundHandler.RejectRefundRequest)

	return scheduler
}
