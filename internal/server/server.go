package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/payrail/internal/config"
	"github.com/smallbiznis/payrail/internal/gateway"
	"github.com/smallbiznis/payrail/internal/observability"
	obsmiddleware "github.com/smallbiznis/payrail/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/payrail/internal/observability/metrics"
	obstracing "github.com/smallbiznis/payrail/internal/observability/tracing"
	"github.com/smallbiznis/payrail/internal/order"
	orderservice "github.com/smallbiznis/payrail/internal/order/service"
	"github.com/smallbiznis/payrail/internal/payment"
	paymentservice "github.com/smallbiznis/payrail/internal/payment/service"
	"github.com/smallbiznis/payrail/internal/reconcile"
	"github.com/smallbiznis/payrail/internal/subscription"
	subscriptionservice "github.com/smallbiznis/payrail/internal/subscription/service"
	"github.com/smallbiznis/payrail/internal/webhook"
	webhookservice "github.com/smallbiznis/payrail/internal/webhook/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	gateway.Module,
	order.Module,
	payment.Module,
	subscription.Module,
	reconcile.Module,
	webhook.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware(obsCfg.Debug()))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
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
	db              *gorm.DB
	log             *zap.Logger
	orderSvc        *orderservice.Service
	paymentSvc      *paymentservice.Service
	subscriptionSvc *subscriptionservice.Service
	webhookSvc      *webhookservice.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	OrderSvc        *orderservice.Service
	PaymentSvc      *paymentservice.Service
	SubscriptionSvc *subscriptionservice.Service
	WebhookSvc      *webhookservice.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		orderSvc:        p.OrderSvc,
		paymentSvc:      p.PaymentSvc,
		subscriptionSvc: p.SubscriptionSvc,
		webhookSvc:      p.WebhookSvc,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/health/db", s.HealthDB)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	orders := api.Group("/orders")
	orders.POST("", s.CreateOrder)
	orders.GET("", s.ListOrders)
	orders.GET("/:id", s.GetOrder)
	orders.GET("/:id/db", s.GetStoredOrder)

	payments := api.Group("/payments")
	payments.POST("/verify", s.VerifyPayment)
	payments.POST("/capture", s.CapturePayment)
	payments.GET("", s.ListPayments)
	payments.GET("/:id", s.GetPayment)
	payments.GET("/:id/db", s.GetStoredPayment)

	subscriptions := api.Group("/subscriptions")
	subscriptions.POST("/plans", s.CreatePlan)
	subscriptions.GET("/plans", s.ListPlans)
	subscriptions.GET("/plans/:id", s.GetPlan)
	subscriptions.GET("/db/list", s.ListStoredSubscriptions)
	subscriptions.GET("/invoices/:id", s.GetInvoice)
	subscriptions.POST("", s.CreateSubscription)
	subscriptions.GET("", s.ListSubscriptions)
	subscriptions.GET("/:id", s.GetSubscription)
	subscriptions.POST("/:id/cancel", s.CancelSubscription)
	subscriptions.POST("/:id/pause", s.PauseSubscription)
	subscriptions.POST("/:id/resume", s.ResumeSubscription)
	subscriptions.GET("/:id/invoices", s.ListSubscriptionInvoices)

	webhooks := api.Group("/webhooks")
	webhooks.GET("/events/:id", s.GetWebhookEvent)
	webhooks.POST("/:provider", s.HandleWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
