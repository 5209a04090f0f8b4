package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/bugsnag/bugsnag-go/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/c2dm"
	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/repository"
	"github.com/hermodapp/hermod-backend/internal/wake"
)

// wakeScheduler and deviceWaker are the slices of the wake package the
// handlers need.
type wakeScheduler interface {
	Schedule(ctx context.Context, owner domain.UserID, device domain.DeviceID) error
}

type deviceWaker interface {
	Wake(ctx context.Context, authToken string, owner domain.UserID, device domain.DeviceID) (string, error)
}

type api struct {
	logger *zap.Logger
	statsd statsd.ClientInterface

	deviceRepo    domain.DeviceRepository
	directiveRepo domain.DirectiveRepository
	configRepo    domain.ConfigRepository

	scheduler wakeScheduler
	waker     deviceWaker
}

func NewAPI(ctx context.Context, logger *zap.Logger, statsd *statsd.Client, redis *redis.Client, pool *pgxpool.Pool) *api {
	push := c2dm.NewClient(os.Getenv("C2DM_ENDPOINT"), statsd, 16)

	deviceRepo := repository.NewPostgresDevice(pool)
	directiveRepo := repository.NewPostgresDirective(pool, logger)
	configRepo := repository.NewPostgresConfig(pool)

	scheduler := wake.NewScheduler(logger, statsd, redis, wake.DefaultDelay)
	waker := wake.NewWaker(logger, statsd, deviceRepo, push)

	return &api{
		logger: logger,
		statsd: statsd,

		deviceRepo:    deviceRepo,
		directiveRepo: directiveRepo,
		configRepo:    configRepo,

		scheduler: scheduler,
		waker:     waker,
	}
}

func (a *api) Server(port int) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: bugsnag.Handler(otelhttp.NewHandler(a.Routes(), "hermod-api")),
	}
}

func (a *api) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/health", a.healthCheckHandler).Methods("GET")

	r.HandleFunc("/v1/batch", a.batchHandler).Methods("POST")

	r.HandleFunc("/v1/tasks/wake", a.wakeTaskHandler).Methods("POST")

	r.Use(a.loggingMiddleware)

	return r
}

type LoggingResponseWriter struct {
	w          http.ResponseWriter
	statusCode int
	bytes      int
}

func (lrw *LoggingResponseWriter) Header() http.Header {
	return lrw.w.Header()
}

func (lrw *LoggingResponseWriter) Write(bb []byte) (int, error) {
	wb, err := lrw.w.Write(bb)
	lrw.bytes += wb
	return wb, err
}

func (lrw *LoggingResponseWriter) WriteHeader(statusCode int) {
	lrw.w.WriteHeader(statusCode)
	lrw.statusCode = statusCode
}

func (a *api) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip logging health checks
		if r.RequestURI == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		lrw := &LoggingResponseWriter{w: w, statusCode: http.StatusOK}

		requestID, _ := uuid.NewV4()

		next.ServeHTTP(lrw, r)

		remoteAddr := r.Header.Get("X-Forwarded-For")
		if remoteAddr == "" {
			if ip, _, err := net.SplitHostPort(r.RemoteAddr); err != nil {
				remoteAddr = "unknown"
			} else {
				remoteAddr = ip
			}
		}

		fields := []zap.Field{
			zap.String("request#id", requestID.String()),
			zap.Int64("duration", time.Since(start).Milliseconds()),
			zap.String("method", r.Method),
			zap.String("remote#addr", remoteAddr),
			zap.Int("response#bytes", lrw.bytes),
			zap.Int("status", lrw.statusCode),
			zap.String("uri", r.RequestURI),
		}

		if lrw.statusCode == http.StatusOK {
			a.logger.Info("", fields...)
		} else {
			err := lrw.Header().Get("X-Hermod-Error")
			a.logger.Error(err, fields...)
		}
	})
}
