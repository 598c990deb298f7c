package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rapidusexpress/rapidus-backend/api/controllers"
	"github.com/rapidusexpress/rapidus-backend/api/middleware"
	"github.com/rapidusexpress/rapidus-backend/internal/auth"
	"github.com/rapidusexpress/rapidus-backend/internal/couriers"
	"github.com/rapidusexpress/rapidus-backend/internal/dispatch"
	"github.com/rapidusexpress/rapidus-backend/internal/establishments"
	"github.com/rapidusexpress/rapidus-backend/internal/intake"
	"github.com/rapidusexpress/rapidus-backend/internal/ledger"
	"github.com/rapidusexpress/rapidus-backend/internal/notifications"
	"github.com/rapidusexpress/rapidus-backend/pkg/auth/session"
	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
	"github.com/rapidusexpress/rapidus-backend/pkg/redis"
)

// Services bundles everything the HTTP surface depends on.
type Services struct {
	Auth           auth.Service
	Registrar      auth.Registrar
	Dispatch       dispatch.Service
	Intake         intake.Service
	Ledger         ledger.Service
	Couriers       couriers.Service
	Establishments establishments.Service
	Notifications  notifications.Service
}

// NewRouter assembles the full HTTP surface. Three zones: unauthenticated
// health and auth endpoints, the token-authenticated intake boundary, and the
// JWT-authenticated API split into dispatcher and courier route groups.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.HealthDeps(dbP, redisClient)))
	})

	// Ingestion boundary. Submitters authenticate with the establishment's
	// intake token, not a profile session.
	r.Post("/api/v1/establishments/{establishmentId}/intake", controllers.IntakeIngest(svcs.Intake, logg))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))

		// Account provisioning is dispatcher-only; there is no self-signup.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
			r.Use(middleware.RequireRole(string(enums.ActorRoleDispatcher), logg))
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Registrar, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		// Both roles.
		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		// Couriers decline their own runs; dispatchers force an abandon. The
		// service arbitrates per role, so the route takes both.
		r.Post("/v1/deliveries/{deliveryId}/reject", controllers.RejectDelivery(svcs.Dispatch, logg))

		// Completion is shared too: the assigned courier closes a normal run,
		// a dispatcher closes a self-fulfilled one.
		r.Post("/v1/deliveries/{deliveryId}/complete", controllers.CompleteDelivery(svcs.Dispatch, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleDispatcher), logg))

			r.Get("/v1/candidates", controllers.ListCandidates(svcs.Intake, logg))
			r.Post("/v1/candidates/{intakeRequestId}/dismiss", controllers.DismissCandidate(svcs.Intake, logg))
			r.Post("/v1/dispatch/assign", controllers.DispatchAssign(svcs.Dispatch, logg))

			r.Get("/v1/deliveries", controllers.ListDeliveries(svcs.Dispatch, logg))
			r.Get("/v1/deliveries/{deliveryId}", controllers.GetDelivery(svcs.Dispatch, logg))

			r.Route("/v1/finance", func(r chi.Router) {
				r.Post("/transactions", controllers.RecordTransaction(svcs.Ledger, logg))
				r.Get("/transactions", controllers.ListTransactions(svcs.Ledger, logg))
				r.Get("/establishments/{establishmentId}/balance", controllers.EstablishmentBalance(svcs.Ledger, logg))
				r.Get("/couriers/{courierId}/balance", controllers.CourierBalance(svcs.Ledger, logg))
				r.Get("/summary", controllers.FinanceSummary(svcs.Ledger, logg))
			})

			r.Get("/v1/couriers", controllers.ListCouriers(svcs.Couriers, logg))
			r.Patch("/v1/couriers/{courierId}/commission", controllers.UpdateCourierCommission(svcs.Couriers, logg))
			r.Get("/v1/couriers/{courierId}/position", controllers.GetCourierPosition(svcs.Couriers, logg))

			r.Route("/v1/establishments", func(r chi.Router) {
				r.Post("/", controllers.CreateEstablishment(svcs.Establishments, logg))
				r.Get("/", controllers.ListEstablishments(svcs.Establishments, logg))
				r.Get("/{establishmentId}", controllers.GetEstablishment(svcs.Establishments, logg))
				r.Patch("/{establishmentId}", controllers.UpdateEstablishment(svcs.Establishments, logg))
				r.Post("/{establishmentId}/intake-token", controllers.RotateIntakeToken(svcs.Establishments, logg))
				r.Put("/{establishmentId}/prices", controllers.SetPrice(svcs.Establishments, logg))
				r.Get("/{establishmentId}/prices", controllers.ListPrices(svcs.Establishments, logg))
				r.Get("/{establishmentId}/quote", controllers.QuoteZone(svcs.Establishments, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleCourier), logg))

			r.Get("/v1/deliveries/mine", controllers.MyDeliveries(svcs.Dispatch, logg))
			r.Post("/v1/deliveries/{deliveryId}/accept", controllers.AcceptDelivery(svcs.Dispatch, logg))
			r.Post("/v1/deliveries/{deliveryId}/collect", controllers.CollectDelivery(svcs.Dispatch, logg))

			r.Put("/v1/couriers/me/availability", controllers.SetMyAvailability(svcs.Couriers, logg))
			r.Put("/v1/couriers/me/position", controllers.UpdateMyPosition(svcs.Couriers, logg))
			r.Post("/v1/couriers/me/push-token", controllers.SavePushToken(svcs.Couriers, logg))
		})
	})

	return r
}
