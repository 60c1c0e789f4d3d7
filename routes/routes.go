package routes

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/tournament-progression/handlers"
	"github.com/Dosada05/tournament-progression/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Groups    *handlers.GroupHandler
	Brackets  *handlers.BracketHandler
	Matches   *handlers.MatchHandler
	Overview  *handlers.OverviewHandler
	WebSocket *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// Limiter throttles mutating routes; nil disables throttling.
	Limiter *middleware.RateLimiter
	Logger  *slog.Logger
}

// SetupRoutes mounts the API on router. Reads are public; every mutation
// needs an organizer or admin token.
func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Get("/ws/contents/{contentID}", h.WebSocket.ServeWs)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/groups/plan", h.Groups.PlanGroups)

		r.Route("/contents/{contentID}", func(r chi.Router) {
			r.Get("/overview", h.Overview.GetContentOverview)
			r.Get("/standings", h.Groups.GetStandings)
			r.Get("/bracket", h.Brackets.GetBracket)

			r.Group(func(r chi.Router) {
				protect(r, opts)
				r.Post("/groups/draw", h.Groups.DrawGroups)
				r.Post("/groups/rank", h.Groups.RankGroup)
				r.Post("/bracket", h.Brackets.BuildKnockout)
				r.Post("/bracket/from-groups", h.Brackets.BuildKnockoutFromGroups)
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.Matches.GetMatch)
			r.Get("/sets", h.Matches.ListSets)
			r.Get("/rating-preview", h.Matches.PreviewRatingChanges)
			r.Get("/rating-history", h.Matches.GetRatingHistory)

			r.Group(func(r chi.Router) {
				protect(r, opts)
				r.Post("/start", h.Matches.StartMatch)
				r.Post("/sets", h.Matches.RecordSet)
				r.Post("/finalize", h.Matches.FinalizeMatch)
				r.Post("/cancel", h.Matches.CancelMatch)
			})
		})

		r.Group(func(r chi.Router) {
			protect(r, opts)
			r.Post("/bracket-nodes/{nodeID}/advance", h.Brackets.AdvanceWinner)
		})
	})
}

func protect(r chi.Router, opts Options) {
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware)
	}
	r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))
	r.Use(middleware.Authorize(middleware.RoleOrganizer, middleware.RoleAdmin))
	r.Use(middleware.AuditMutations(opts.Logger))
}
