package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/prediction-pool/internal/platform/logging"
)

type RouterConfig struct {
	ServiceName        string
	SyncSecret         string
	AdminSecret        string
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(handler *Handler, cfg RouterConfig, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "prediction-pool"
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg)
	registerPublicRoutes(mux, handler)
	registerSyncRoutes(mux, handler, cfg.SyncSecret)
	registerAdminRoutes(mux, handler, cfg.AdminSecret)

	return RequestTracing(cfg.ServiceName, RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
