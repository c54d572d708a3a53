// Package server exposes the billing reconciliation engine over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shockvaluemedia/directfanz/internal/billingcycle"
	billingcycledomain "github.com/shockvaluemedia/directfanz/internal/billingcycle/domain"
	"github.com/shockvaluemedia/directfanz/internal/billingsummary"
	billingsummarydomain "github.com/shockvaluemedia/directfanz/internal/billingsummary/domain"
	"github.com/shockvaluemedia/directfanz/internal/config"
	"github.com/shockvaluemedia/directfanz/internal/gateway"
	"github.com/shockvaluemedia/directfanz/internal/invoicesync"
	invoicesyncdomain "github.com/shockvaluemedia/directfanz/internal/invoicesync/domain"
	"github.com/shockvaluemedia/directfanz/internal/locker"
	"github.com/shockvaluemedia/directfanz/internal/notifier"
	"github.com/shockvaluemedia/directfanz/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	gateway.Module,
	notifier.Module,
	locker.Module,
	billingcycle.Module,
	billingsummary.Module,
	invoicesync.Module,
	scheduler.Module,
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
	engine     *gin.Engine
	cfg        config.Config
	billingSvc billingcycledomain.Service
	summarySvc billingsummarydomain.Service
	syncSvc    invoicesyncdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	BillingSvc billingcycledomain.Service
	SummarySvc billingsummarydomain.Service
	SyncSvc    invoicesyncdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		billingSvc: p.BillingSvc,
		summarySvc: p.SummarySvc,
		syncSvc:    p.SyncSvc,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/artists/:artist_id/billing/summary", s.GetArtistBillingSummary)
	api.GET("/artists/:artist_id/billing/upcoming-invoices", s.GetArtistUpcomingInvoices)
	api.GET("/billing/upcoming-invoices", s.GetAllUpcomingInvoices)
	api.GET("/subscriptions/:subscription_id/billing-cycle", s.GetBillingCycleInfo)

	api.GET("/subscriptions/:subscription_id/invoices", s.ListSubscriptionInvoices)
	api.POST("/subscriptions/:subscription_id/invoices/sync", s.SyncSubscriptionInvoices)
	api.POST("/artists/:artist_id/invoices/sync", s.SyncArtistInvoices)
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")

	webhooks.POST("/payment-failure", s.RecordPaymentFailure)
}
