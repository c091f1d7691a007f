package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentmoto/rentmoto-backend/api/controllers"
	webhookcontrollers "github.com/rentmoto/rentmoto-backend/api/controllers/webhooks"
	"github.com/rentmoto/rentmoto-backend/api/middleware"
	"github.com/rentmoto/rentmoto-backend/internal/auth"
	"github.com/rentmoto/rentmoto-backend/internal/contracts"
	"github.com/rentmoto/rentmoto-backend/internal/notifications"
	"github.com/rentmoto/rentmoto-backend/internal/payments"
	"github.com/rentmoto/rentmoto-backend/internal/rentals"
	"github.com/rentmoto/rentmoto-backend/internal/users"
	"github.com/rentmoto/rentmoto-backend/pkg/config"
	"github.com/rentmoto/rentmoto-backend/pkg/db"
	"github.com/rentmoto/rentmoto-backend/pkg/enums"
	"github.com/rentmoto/rentmoto-backend/pkg/logger"
	"github.com/rentmoto/rentmoto-backend/pkg/redis"
)

type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Auth          auth.Service
	Users         users.Service
	Contracts     contracts.Service
	Rentals       rentals.Service
	Payments      payments.Service
	Notifications notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
	})

	// gateway callbacks authenticate by payload, not bearer token
	r.Route("/api/v1/webhooks/payments", func(r chi.Router) {
		r.Post("/momo", webhookcontrollers.MomoCallback(deps.Payments, logg))
		r.Post("/zalopay", webhookcontrollers.ZaloPayCallback(deps.Payments, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/api/v1/users/me", controllers.CurrentUser(deps.Users, logg))

		r.Route("/api/v1/contracts", func(r chi.Router) {
			r.Get("/", controllers.ListContracts(deps.Contracts, logg))
			r.Get("/{contractId}", controllers.GetContract(deps.Contracts, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleLessor), logg))
				r.Post("/", controllers.CreateContract(deps.Contracts, logg))
				r.Patch("/{contractId}/availability", controllers.SetContractAvailability(deps.Contracts, logg))
			})
		})

		r.Route("/api/v1/rentals", func(r chi.Router) {
			r.Get("/", controllers.ListRentals(deps.Rentals, logg))
			r.Get("/{rentalId}", controllers.GetRental(deps.Rentals, logg))
			r.Post("/{rentalId}/cancel", controllers.CancelRental(deps.Rentals, logg))
			r.Post("/{rentalId}/qr", controllers.IssueRentalQR(deps.Rentals, logg))
			r.Post("/{rentalId}/verify-qr", controllers.VerifyRentalQR(deps.Rentals, logg))
			r.Get("/{rentalId}/payments", controllers.ListRentalPayments(deps.Payments, deps.Rentals, logg))

			r.With(middleware.RequireRole(string(enums.UserRoleRenter), logg)).
				Post("/", controllers.CreateRental(deps.Rentals, logg))
			r.With(middleware.RequireRole(string(enums.UserRoleLessor), logg)).
				Post("/{rentalId}/confirm", controllers.ConfirmRental(deps.Rentals, logg))
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	return r
}
