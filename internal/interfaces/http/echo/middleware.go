package echo

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/mohammadpnp/crm-import/internal/logging"
)

const (
	HeaderUserID = "X-User-ID"
	principalKey = "principal"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_http_requests_total",
		Help: "HTTP requests served, by route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RequestLogger attaches a request scoped logrus entry to the request context
// and logs one line per request.
func RequestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			entry := logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(logging.WithEntry(req.Context(), entry)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)
			httpRequestsTotal.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			fields := logrus.Fields{"status": status, "latency_ms": elapsed.Milliseconds()}
			if principal, ok := c.Get(principalKey).(string); ok {
				fields["principal"] = principal
			}
			logging.FromContext(c.Request().Context()).WithFields(fields).Info("request served")
			return nil
		}
	}
}

// Authenticate accepts the principal forwarded by the upstream auth proxy in
// the X-User-ID header.
func Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := c.Request().Header.Get(HeaderUserID)
			if principal == "" {
				return writeError(c, errUnauthenticated)
			}
			c.Set(principalKey, principal)

			req := c.Request()
			entry := logging.FromContext(req.Context()).WithField("principal", principal)
			c.SetRequest(req.WithContext(logging.WithEntry(req.Context(), entry)))
			return next(c)
		}
	}
}

func principalFrom(c echo.Context) string {
	principal, _ := c.Get(principalKey).(string)
	return principal
}
