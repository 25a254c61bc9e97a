package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/dealercrm-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/dealercrm-backend/api/controllers/analytics"
	"github.com/angelmondragon/dealercrm-backend/api/middleware"
	"github.com/angelmondragon/dealercrm-backend/internal/access"
	"github.com/angelmondragon/dealercrm-backend/internal/auth"
	"github.com/angelmondragon/dealercrm-backend/internal/dealers"
	"github.com/angelmondragon/dealercrm-backend/internal/funnel"
	"github.com/angelmondragon/dealercrm-backend/internal/incomplete"
	"github.com/angelmondragon/dealercrm-backend/internal/leads"
	"github.com/angelmondragon/dealercrm-backend/internal/users"
	"github.com/angelmondragon/dealercrm-backend/pkg/auth/session"
	"github.com/angelmondragon/dealercrm-backend/pkg/config"
	"github.com/angelmondragon/dealercrm-backend/pkg/db"
	"github.com/angelmondragon/dealercrm-backend/pkg/logger"
	"github.com/angelmondragon/dealercrm-backend/pkg/metrics"
	"github.com/angelmondragon/dealercrm-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	reg *prometheus.Registry,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	authService auth.Service,
	usersService users.Service,
	dealersService dealers.Service,
	leadsService leads.Service,
	incompleteService incomplete.Service,
	funnelService funnel.Service,
) http.Handler {
	r := chi.NewRouter()

	var httpMetrics *metrics.HTTPMetrics
	if reg != nil {
		httpMetrics = metrics.NewHTTPMetrics(reg)
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	intakePolicy := middleware.NewRateLimitPolicy(
		"intake",
		cfg.AuthRateLimit.IntakeWindow,
		cfg.AuthRateLimit.IntakeIPLimit,
		0,
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if reg != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(reg))
	}

	r.Route("/api/public/dealers/{slug}", func(r chi.Router) {
		r.Use(middleware.RateLimit(intakePolicy, redisClient, logg))
		r.With(middleware.Idempotency(redisClient, logg)).Post("/leads", controllers.PublicCreateLead(leadsService, logg))
		r.Post("/incomplete-leads", controllers.PublicTrackIncomplete(incompleteService, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, logg))
	})

	gate := func(route access.Route) func(http.Handler) http.Handler {
		return middleware.RequireRoute(route, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, usersService, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.With(gate(access.RouteAccessEvaluate)).Post("/access/evaluate", controllers.AccessEvaluate(logg))

		r.Route("/leads", func(r chi.Router) {
			r.With(gate(access.RouteLeadsList)).Get("/", controllers.ListLeads(leadsService, logg))
			r.With(gate(access.RouteLeadsCreate)).Post("/", controllers.CreateLead(leadsService, logg))
			r.Route("/{leadId}", func(r chi.Router) {
				r.With(gate(access.RouteLeadGet)).Get("/", controllers.GetLead(leadsService, logg))
				r.With(gate(access.RouteLeadArchive)).Delete("/", controllers.ArchiveLead(leadsService, logg))
				r.With(gate(access.RouteLeadHistory)).Get("/history", controllers.LeadHistory(leadsService, logg))
				r.With(gate(access.RouteLeadTransition)).Post("/transition", controllers.TransitionLead(leadsService, logg))
				r.With(gate(access.RouteLeadAssign)).Post("/assign", controllers.AssignLead(leadsService, logg))
			})
		})

		r.With(gate(access.RouteFunnel)).Get("/analytics/funnel", analyticscontrollers.FunnelReport(funnelService, logg))

		r.Route("/incomplete-leads", func(r chi.Router) {
			r.With(gate(access.RouteIncompleteList)).Get("/", controllers.IncompleteWorklist(incompleteService, logg))
			r.With(gate(access.RouteIncompleteExport)).Get("/export", controllers.IncompleteExport(incompleteService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(gate(access.RouteUsersList)).Get("/", controllers.ListUsers(usersService, logg))
			r.With(gate(access.RouteUsersCreate)).Post("/", controllers.CreateUser(usersService, logg))
			r.With(gate(access.RouteUserRole)).Post("/{userId}/role", controllers.ChangeUserRole(usersService, logg))
			r.With(gate(access.RouteUserActive)).Post("/{userId}/active", controllers.SetUserActive(usersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, usersService, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/dealers", func(r chi.Router) {
			r.With(gate(access.RouteAdminDealersList)).Get("/", controllers.AdminListDealers(dealersService, logg))
			r.With(gate(access.RouteAdminDealersCreate)).Post("/", controllers.AdminCreateDealer(dealersService, logg))
			r.With(gate(access.RouteAdminDealerActive)).Post("/{dealerId}/active", controllers.AdminSetDealerActive(dealersService, logg))
		})
	})

	return r
}
