package wire

import (
	"net/http"

	"nurse-booking/internal/adaptor"
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/usecase"
	"nurse-booking/internal/worker"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/metrics"
	"nurse-booking/pkg/middleware"
	"nurse-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App holds everything the commands run.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
	Sweeper *worker.Sweeper
}

// Wiring builds services, handlers, routes and the sweeper. reg receives
// both the HTTP and the booking metrics.
func Wiring(
	repo *repository.Repository,
	db adaptor.Pinger,
	deps usecase.Deps,
	reg *prometheus.Registry,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewBookingMetrics(reg)
	}

	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, db, logger)
	limiter := middleware.NewRateLimiter(config.RateLimit.RequestsPerSecond, config.RateLimit.Burst, logger)

	router := setupRouter(handler, repo, limiter, reg, logger)

	sweeper := worker.NewSweeper(worker.Deps{
		Quota:    service.Quota,
		Bookings: service.Booking,
		Finder:   repo.Booking,
		Clock:    deps.Clock,
		Metrics:  deps.Metrics,
		Limiter:  limiter,
	}, config.Booking, logger)

	return &App{
		Router:  router,
		Service: service,
		Sweeper: sweeper,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	limiter *middleware.RateLimiter,
	reg *prometheus.Registry,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS)
	r.Use(metrics.NewHTTPMetrics(reg).Middleware)

	r.Get("/health", handler.Health.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(middleware.AuthSession(repo.Session, logger))

		wireBooking(r, handler.Booking)
		wireProvider(r, handler.Provider, handler.Subscription, logger)
		wireSubscription(r, handler.Subscription, logger)
	})

	return r
}
