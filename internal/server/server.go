package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/novahq/nova/internal/audit"
	auditdomain "github.com/novahq/nova/internal/audit/domain"
	"github.com/novahq/nova/internal/bank"
	bankdomain "github.com/novahq/nova/internal/bank/domain"
	"github.com/novahq/nova/internal/bulkschedule"
	bulkdomain "github.com/novahq/nova/internal/bulkschedule/domain"
	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/gaps"
	gapsdomain "github.com/novahq/nova/internal/gaps/domain"
	"github.com/novahq/nova/internal/payment"
	paymentdomain "github.com/novahq/nova/internal/payment/domain"
	"github.com/novahq/nova/internal/vendors"
	vendordomain "github.com/novahq/nova/internal/vendors/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	bank.Module,
	vendors.Module,
	payment.Module,
	bulkschedule.Module,
	gaps.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	auditSvc        auditdomain.Service
	bankSvc         bankdomain.Service
	vendorSvc       vendordomain.Service
	paymentSvc      paymentdomain.Service
	bulkScheduleSvc bulkdomain.Service
	gapsSvc         gapsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuditSvc        auditdomain.Service
	BankSvc         bankdomain.Service
	VendorSvc       vendordomain.Service
	PaymentSvc      paymentdomain.Service
	BulkScheduleSvc bulkdomain.Service
	GapsSvc         gapsdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		auditSvc:        p.AuditSvc,
		bankSvc:         p.BankSvc,
		vendorSvc:       p.VendorSvc,
		paymentSvc:      p.PaymentSvc,
		bulkScheduleSvc: p.BulkScheduleSvc,
		gapsSvc:         p.GapsSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", s.IdentityRequired())

	// -------- Banks --------
	api.GET("/banks", s.ListBanks)
	api.POST("/banks", s.CreateBank)
	api.GET("/banks/:id", s.GetBankByID)

	// -------- Vendors --------
	api.GET("/vendors", s.ListVendors)
	api.POST("/vendors", s.CreateVendor)
	api.GET("/vendors/:id", s.GetVendorByID)
	api.PATCH("/vendors/:id", s.UpdateVendor)

	// -------- Payments --------
	api.GET("/payments", s.ListPayments)
	api.POST("/payments", s.CreatePayment)
	api.GET("/payments/:id", s.GetPaymentByID)
	api.POST("/payments/:id/status", s.UpdatePaymentStatus)
	api.DELETE("/payments/:id", s.DeletePayment)

	// -------- Bulk Schedules --------
	api.GET("/bulk-schedules", s.ListBulkSchedules)
	api.POST("/bulk-schedules", s.GenerateBulkSchedule)
	api.GET("/bulk-schedules/:id", s.GetBulkScheduleByID)
	api.POST("/bulk-schedules/:id/approve", s.ApproveBulkSchedule)
	api.POST("/bulk-schedules/:id/status", s.UpdateBulkScheduleStatus)
	api.DELETE("/bulk-schedules/:id", s.DeleteBulkSchedule)
	api.GET("/bulk-schedules/:id/export", s.ExportBulkScheduleCSV)

	// -------- GAPS --------
	api.GET("/gaps-schedules", s.ListGapsBatches)
	api.POST("/gaps-schedules", s.GenerateGapsSchedule)
	api.GET("/gaps-schedules/:batchNumber", s.GetGapsBatch)
	api.GET("/gaps-schedules/:batchNumber/export", s.ExportGapsWorkbook)

	// -------- Audit Logs --------
	api.GET("/audit-logs", s.ListAuditLogs)
}
