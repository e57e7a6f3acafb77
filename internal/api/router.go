package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/acadport/backend/internal/api/handlers"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// Handlers groups every handler the router mounts
type Handlers struct {
	Allocation  *handlers.AllocationHandler
	Classify    *handlers.ClassifyHandler
	Performance *handlers.PerformanceHandler
	Runs        *handlers.AuditHandler
	Events      http.Handler // websocket hub, optional

	// Ready lists dependency checks behind /ready (database, redis)
	Ready map[string]func(ctx context.Context) error
}

// RateLimit bounds mutating requests across all clients
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, limit RateLimit, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/ready", readyHandler(h.Ready)).Methods("GET")

	if h.Events != nil {
		r.Handle("/ws/events", h.Events).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// 쓰기 요청만 rate limit 적용
	limited := rateLimitMiddleware(limit, log)
	write := func(path string, fn http.HandlerFunc) {
		api.Handle(path, limited(fn)).Methods("POST")
	}

	// Allocation endpoints
	write("/allocations", h.Allocation.Allocate)
	write("/allocations/reset", h.Allocation.Reset)
	api.HandleFunc("/allocations/stats", h.Allocation.Stats).Methods("GET")
	if h.Runs != nil {
		api.HandleFunc("/allocations/runs", h.Runs.Runs).Methods("GET")
	}

	// Stateless classification endpoints
	api.HandleFunc("/classify", h.Classify.Classify).Methods("POST")
	api.HandleFunc("/penalty", h.Classify.Penalty).Methods("POST")
	api.HandleFunc("/final-score", h.Classify.FinalScore).Methods("POST")

	// Performance endpoints
	if h.Performance != nil {
		write("/performance/marks", h.Performance.RecordMarks)
		write("/performance/attendance", h.Performance.RecordAttendance)
		write("/performance/refresh", h.Performance.Refresh)
		api.HandleFunc("/performance/subjects/{id:[0-9]+}/summary", h.Performance.Summary).Methods("GET")
		api.HandleFunc("/performance/students/{id:[0-9]+}/overview", h.Performance.StudentOverview).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "acadport-api",
	})
}

// readyHandler runs every check; any failure turns the response into 503
func readyHandler(checks map[string]func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": state,
			"checks": results,
		})
	}
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware tags each request with an ID, stores a request-scoped
// logger in the context and logs the request
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			reqLog := log.WithField("request_id", reqID)
			r = r.WithContext(reqLog.IntoContext(r.Context()))

			// websocket upgrade needs the raw ResponseWriter (http.Hijacker)
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			reqLog.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// rateLimitMiddleware rejects requests above the configured rate with 429
func rateLimitMiddleware(limit RateLimit, log *logger.Logger) mux.MiddlewareFunc {
	if limit.PerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := limit.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(limit.PerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.WithField("path", r.URL.Path).Warn("Rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
