package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/lingua-api/internal/api"
	apiMiddleware "github.com/phrazzld/lingua-api/internal/api/middleware"
	"github.com/phrazzld/lingua-api/internal/api/shared"
)

// setupRouter registers middleware and routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.ledgerService,
		app.logger,
	)
	ledgerHandler := api.NewLedgerHandler(app.ledgerService, app.logger)
	examHandler := api.NewExamHandler(app.assessmentService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/me", ledgerHandler.Me)
			r.Post("/me/learned-words", ledgerHandler.CreditLearnedWord)

			r.Get("/vouchers", ledgerHandler.ListVouchers)
			r.Post("/vouchers/{id}/purchase", ledgerHandler.Purchase)
			r.Get("/purchases", ledgerHandler.PurchaseHistory)

			r.Get("/exam", examHandler.GetExam)
		})

		// Grants the caller trusts itself with: coins earned by exercises
		// and premium. Off when another service owns them.
		if app.config.Ledger.SelfServiceGrants {
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)

				r.Post("/me/coins", ledgerHandler.AwardCoins)
				r.Post("/me/premium", ledgerHandler.GrantPremium)
			})
		}
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
