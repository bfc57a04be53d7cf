package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rentflow/rentflow/internal/activitylog"
	activitylogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/auth"
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/auth/token"
	"github.com/rentflow/rentflow/internal/authorization"
	"github.com/rentflow/rentflow/internal/cloudmetrics"
	"github.com/rentflow/rentflow/internal/config"
	"github.com/rentflow/rentflow/internal/contract"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	"github.com/rentflow/rentflow/internal/maintenance"
	maintenancedomain "github.com/rentflow/rentflow/internal/maintenance/domain"
	"github.com/rentflow/rentflow/internal/observability"
	obslogger "github.com/rentflow/rentflow/internal/observability/logger"
	obsmetrics "github.com/rentflow/rentflow/internal/observability/metrics"
	obstracing "github.com/rentflow/rentflow/internal/observability/tracing"
	"github.com/rentflow/rentflow/internal/organization"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/internal/payment"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	"github.com/rentflow/rentflow/internal/property"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/providers"
	"github.com/rentflow/rentflow/internal/providers/pdf"
	"github.com/rentflow/rentflow/internal/ratelimit"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/report"
	reportdomain "github.com/rentflow/rentflow/internal/report/domain"
	"github.com/rentflow/rentflow/internal/subscription"
	subscriptiondomain "github.com/rentflow/rentflow/internal/subscription/domain"
	"github.com/rentflow/rentflow/internal/tenant"
	tenantdomain "github.com/rentflow/rentflow/internal/tenant/domain"
	"github.com/rentflow/rentflow/internal/unit"
	unitdomain "github.com/rentflow/rentflow/internal/unit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	cloudmetrics.Module,
	fx.Provide(registerGin),
	authorization.Module,
	activitylog.Module,
	auth.Module,
	organization.Module,
	property.Module,
	unit.Module,
	tenant.Module,
	contract.Module,
	payment.Module,
	maintenance.Module,
	subscription.Module,
	report.Module,
	realtime.Module,
	ratelimit.Module,
	providers.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware(obsCfg.Debug()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	tokens          *token.Manager
	authsvc         authdomain.Service
	authzSvc        authorization.Service
	organizationSvc organizationdomain.Service
	propertySvc     propertydomain.Service
	unitSvc         unitdomain.Service
	tenantSvc       tenantdomain.Service
	contractSvc     contractdomain.Service
	paymentSvc      paymentdomain.Service
	maintenanceSvc  maintenancedomain.Service
	subscriptionSvc subscriptiondomain.Service
	reportSvc       reportdomain.Service
	activitySvc     activitylogdomain.Service
	hub             *realtime.Hub
	apiLimiter      *ratelimit.APILimiter
	pdfProvider     *pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Tokens          *token.Manager
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	OrganizationSvc organizationdomain.Service
	PropertySvc     propertydomain.Service
	UnitSvc         unitdomain.Service
	TenantSvc       tenantdomain.Service
	ContractSvc     contractdomain.Service
	PaymentSvc      paymentdomain.Service
	MaintenanceSvc  maintenancedomain.Service
	SubscriptionSvc subscriptiondomain.Service
	ReportSvc       reportdomain.Service
	ActivitySvc     activitylogdomain.Service
	Hub             *realtime.Hub
	APILimiter      *ratelimit.APILimiter `optional:"true"`
	PDFProvider     *pdf.Provider
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		genID:           p.GenID,
		tokens:          p.Tokens,
		authsvc:         p.Authsvc,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		propertySvc:     p.PropertySvc,
		unitSvc:         p.UnitSvc,
		tenantSvc:       p.TenantSvc,
		contractSvc:     p.ContractSvc,
		paymentSvc:      p.PaymentSvc,
		maintenanceSvc:  p.MaintenanceSvc,
		subscriptionSvc: p.SubscriptionSvc,
		reportSvc:       p.ReportSvc,
		activitySvc:     p.ActivitySvc,
		hub:             p.Hub,
		apiLimiter:      p.APILimiter,
		pdfProvider:     p.PDFProvider,
	}

	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.POST("/webhooks/stripe", s.StripeWebhook)

	api := s.engine.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.POST("/change-password", s.AuthRequired(), s.ChangePassword)

	api.GET("/organizations", s.AuthRequired(), s.ListMyOrganizations)
	api.POST("/organizations", s.AuthRequired(), s.CreateOrganization)

	api.GET("/ws", s.StreamEvents)

	// Cross-organization support surface, super admins only.
	admin := api.Group("/admin", s.AuthRequired(), s.SuperAdminRequired())
	admin.POST("/organizations/:id/deactivate", s.DeactivateOrganization)

	viewersUp := s.RequireRole(
		organizationdomain.RoleOwner, organizationdomain.RoleAdmin,
		organizationdomain.RoleManager, organizationdomain.RoleViewer,
	)
	managersUp := s.RequireRole(
		organizationdomain.RoleOwner, organizationdomain.RoleAdmin,
		organizationdomain.RoleManager,
	)
	adminsUp := s.RequireRole(organizationdomain.RoleOwner, organizationdomain.RoleAdmin)
	ownersOnly := s.RequireRole(organizationdomain.RoleOwner)

	// Everything below is scoped to the organization named in the
	// X-Organization-ID header.
	org := api.Group("", s.AuthRequired(), s.OrgContext(), s.RateLimit())

	org.GET("/organization", viewersUp, s.GetOrganization)
	org.PATCH("/organization", adminsUp, s.UpdateOrganization)
	org.GET("/organization/settings", viewersUp, s.GetOrganizationSettings)
	org.PATCH("/organization/settings", adminsUp, s.UpdateOrganizationSettings)

	org.GET("/organization/members", viewersUp, s.ListMembers)
	org.POST("/organization/members", adminsUp, s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.AddMember)
	org.PATCH("/organization/members/:userId/role", adminsUp, s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.UpdateMemberRole)
	org.DELETE("/organization/members/:userId", ownersOnly, s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberManage), s.RemoveMember)

	org.GET("/properties", viewersUp, s.ListProperties)
	org.POST("/properties", managersUp, s.CreateProperty)
	org.GET("/properties/:id", viewersUp, s.GetPropertyByID)
	org.PATCH("/properties/:id", managersUp, s.UpdateProperty)
	org.DELETE("/properties/:id", adminsUp, s.ArchiveProperty)

	org.GET("/units", viewersUp, s.ListUnits)
	org.POST("/units", managersUp, s.CreateUnit)
	org.GET("/units/:id", viewersUp, s.GetUnitByID)
	org.PATCH("/units/:id", managersUp, s.UpdateUnit)
	org.DELETE("/units/:id", adminsUp, s.DeleteUnit)

	org.GET("/tenants", viewersUp, s.ListTenants)
	org.POST("/tenants", managersUp, s.CreateTenant)
	org.GET("/tenants/:id", viewersUp, s.GetTenantByID)
	org.PATCH("/tenants/:id", managersUp, s.UpdateTenant)
	org.DELETE("/tenants/:id", adminsUp, s.ArchiveTenant)

	org.GET("/contracts", viewersUp, s.ListContracts)
	org.POST("/contracts", managersUp, s.CreateContract)
	org.GET("/contracts/:id", viewersUp, s.GetContractByID)
	org.PATCH("/contracts/:id", managersUp, s.UpdateContract)
	org.POST("/contracts/:id/activate", managersUp, s.authorizeOrgAction(authorization.ObjectContract, authorization.ActionContractActivate), s.ActivateContract)
	org.POST("/contracts/:id/terminate", managersUp, s.authorizeOrgAction(authorization.ObjectContract, authorization.ActionContractTerminate), s.TerminateContract)

	org.GET("/payments", viewersUp, s.ListPayments)
	org.POST("/payments", managersUp, s.CreatePayment)
	org.GET("/payments/:id", viewersUp, s.GetPaymentByID)
	org.POST("/payments/:id/mark-paid", managersUp, s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentMarkPaid), s.MarkPaymentPaid)
	org.POST("/payments/:id/cancel", adminsUp, s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentCancel), s.CancelPayment)
	org.POST("/payments/:id/refund", adminsUp, s.authorizeOrgAction(authorization.ObjectPayment, authorization.ActionPaymentRefund), s.RefundPayment)
	org.GET("/payments/:id/receipt", viewersUp, s.PaymentReceipt)

	org.GET("/maintenance-requests", viewersUp, s.ListMaintenanceRequests)
	org.POST("/maintenance-requests", managersUp, s.CreateMaintenanceRequest)
	org.GET("/maintenance-requests/:id", viewersUp, s.GetMaintenanceRequestByID)
	org.PATCH("/maintenance-requests/:id", managersUp, s.UpdateMaintenanceRequest)

	org.GET("/reports/summary", viewersUp, s.GetDashboardSummary)
	org.GET("/reports/payment-aging", viewersUp, s.GetPaymentAging)
	org.GET("/reports/occupancy", viewersUp, s.GetOccupancy)

	org.GET("/plans", viewersUp, s.ListPlans)
	org.GET("/subscription", viewersUp, s.GetSubscription)
	org.POST("/subscription/change-plan", ownersOnly, s.authorizeOrgAction(authorization.ObjectSubscription, authorization.ActionSubscriptionChangePlan), s.ChangePlan)
	org.POST("/subscription/cancel", ownersOnly, s.authorizeOrgAction(authorization.ObjectSubscription, authorization.ActionSubscriptionCancel), s.CancelSubscription)

	org.GET("/activity-logs", adminsUp, s.authorizeOrgAction(authorization.ObjectActivityLog, authorization.ActionView), s.ListActivityLogs)
}
