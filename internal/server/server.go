package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/milkrun/internal/billing"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	"github.com/smallbiznis/milkrun/internal/calendar"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	"github.com/smallbiznis/milkrun/internal/clock"
	"github.com/smallbiznis/milkrun/internal/config"
	"github.com/smallbiznis/milkrun/internal/container"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	"github.com/smallbiznis/milkrun/internal/customer"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	"github.com/smallbiznis/milkrun/internal/delivery"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	"github.com/smallbiznis/milkrun/internal/pricing"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	"github.com/smallbiznis/milkrun/internal/reconciler"
	"github.com/smallbiznis/milkrun/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	"github.com/smallbiznis/milkrun/internal/wallet"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	pricing.Module,
	wallet.Module,
	customer.Module,
	subscription.Module,
	delivery.Module,
	calendar.Module,
	billing.Module,
	container.Module,
	reconciler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	genID           *snowflake.Node
	zone            *clock.Zone
	customerSvc     customerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	walletSvc       walletdomain.Service
	pricingSvc      pricingdomain.Service
	calendarSvc     calendardomain.Service
	deliverySvc     deliverydomain.Service
	billingSvc      billingdomain.Service
	containerSvc    containerdomain.Service
	reconciler      *reconciler.Reconciler
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	GenID           *snowflake.Node
	Zone            *clock.Zone
	CustomerSvc     customerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	WalletSvc       walletdomain.Service
	PricingSvc      pricingdomain.Service
	CalendarSvc     calendardomain.Service
	DeliverySvc     deliverydomain.Service
	BillingSvc      billingdomain.Service
	ContainerSvc    containerdomain.Service
	Reconciler      *reconciler.Reconciler
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		genID:           p.GenID,
		zone:            p.Zone,
		customerSvc:     p.CustomerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		walletSvc:       p.WalletSvc,
		pricingSvc:      p.PricingSvc,
		calendarSvc:     p.CalendarSvc,
		deliverySvc:     p.DeliverySvc,
		billingSvc:      p.BillingSvc,
		containerSvc:    p.ContainerSvc,
		reconciler:      p.Reconciler,
	}

	s.registerAPIRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Customers --------
	api.POST("/customers", s.RegisterCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PUT("/customers/:id/profile", s.CompleteProfile)
	api.POST("/customers/:id/payment-received", s.PaymentReceived)

	// -------- Subscriptions --------
	api.POST("/customers/:id/subscription", s.Subscribe)
	api.GET("/customers/:id/subscription", s.GetSubscription)
	api.POST("/customers/:id/subscription/change-plan", s.ChangePlan)

	// -------- Wallet --------
	api.POST("/customers/:id/wallet/topup", s.TopUpWallet)
	api.GET("/customers/:id/wallet", s.GetWalletBalance)
	api.GET("/customers/:id/wallet/transactions", s.ListWalletTransactions)

	// -------- Calendar --------
	api.POST("/customers/:id/calendar/pauses", s.SetPause)
	api.DELETE("/customers/:id/calendar/pauses/:date", s.ClearPause)
	api.POST("/customers/:id/calendar/modifications", s.SetModification)
	api.DELETE("/customers/:id/calendar/modifications/:date", s.ClearModification)
	api.POST("/customers/:id/calendar/batch", s.BatchCalendarAction)
	api.GET("/customers/:id/calendar/effective/:date", s.GetEffectiveDay)
	api.GET("/customers/:id/calendar/:year/:month", s.GetMonthView)

	// -------- Billing --------
	api.GET("/customers/:id/billing/:year/:month", s.GetBillingStatus)
	api.POST("/customers/:id/billing/:year/:month/paid", s.MarkMonthPaid)

	// -------- Containers --------
	api.GET("/customers/:id/containers", s.GetContainerBalances)
	api.GET("/customers/:id/containers/history", s.ListContainerHistory)

	// -------- Delivery person --------
	api.GET("/delivery-persons/:id/deliveries", s.ListDeliveriesForPerson)
	api.POST("/delivery-persons/:id/deliveries/:customer_id/:date/delivered", s.MarkDelivered)
	api.POST("/delivery-persons/:id/deliveries/:customer_id/:date/not-delivered", s.MarkNotDelivered)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.POST("/customers/:id/assign", s.AssignDeliveryPerson)
	admin.POST("/customers/:id/unassign", s.UnassignDeliveryPerson)

	admin.GET("/price-tiers", s.ListPriceTiers)
	admin.PUT("/price-tiers", s.UpsertPriceTier)
	admin.DELETE("/price-tiers/:quantity", s.DeactivatePriceTier)

	admin.POST("/containers/issue", s.IssueContainers)
	admin.POST("/containers/return", s.ReturnContainers)
	admin.GET("/containers/overdue", s.ListOverdueContainers)
	admin.POST("/containers/penalty", s.ImposePenalty)

	admin.POST("/reconcile", s.TriggerReconcile)
}
