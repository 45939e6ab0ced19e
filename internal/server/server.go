// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	apperrors "lead-capture/internal/common/errors"
	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/observability"
	"lead-capture/internal/common/ratelimit"
	"lead-capture/internal/common/validation"
	"lead-capture/internal/models"
	gdprrequest "lead-capture/internal/workers/compliance/gdpr-request"
	dispatchnotifications "lead-capture/internal/workers/notification/dispatch-notifications"
	calculateprojection "lead-capture/internal/workers/roi/calculate-projection"
	scorelead "lead-capture/internal/workers/roi/score-lead"
	validatesubmission "lead-capture/internal/workers/roi/validate-submission"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxBodyBytes = 64 << 10

// Store is the part of the submission store the HTTP layer needs.
type Store interface {
	Insert(ctx context.Context, rec *models.SubmissionRecord) (string, error)
	Get(ctx context.Context, id string) (*models.SubmissionRecord, error)
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Config struct {
	MaxBodyBytes      int64
	TrustProxyHeaders bool
	CORSOrigins       []string
	ReadyTimeout      time.Duration
}

type Dependencies struct {
	Logger        logger.Logger
	Validator     *validatesubmission.Handler
	Projector     *calculateprojection.Handler
	Scorer        *scorelead.Handler
	Store         Store
	Queue         dispatchnotifications.Queue
	GDPR          *gdprrequest.Handler
	Gate          *ratelimit.Gate
	Observability *observability.Observability
	Checks        []Check
}

// Server owns the HTTP routes of the lead capture API.
type Server struct {
	config  *Config
	deps    Dependencies
	obs     *observability.Observability
	logger  logger.Logger
	errors  *apperrors.ErrorHandler
	schemas requestSchemas
	now     func() time.Time
}

func New(config *Config, deps Dependencies) *Server {
	if config == nil {
		config = &Config{}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = 2 * time.Second
	}
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	log := deps.Logger.WithFields(map[string]interface{}{"component": "http"})
	schemas := requestSchemas{
		calculate: validation.MustValidator(calculateSchema()),
		submit:    validation.MustValidator(submitSchema()),
		gdpr:      validation.MustValidator(gdprSchema()),
	}
	return &Server{
		config:  config,
		deps:    deps,
		obs:     obs,
		logger:  log,
		errors:  apperrors.NewErrorHandler(log),
		schemas: schemas,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Routes builds the router. Rate limits apply per operation and caller IP.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	if s.config.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(s.recoverMiddleware)
	r.Use(s.accessLogMiddleware)
	r.Use(securityHeaders)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(corsMiddleware(s.config.CORSOrigins))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Route("/roi-calculator", func(r chi.Router) {
			r.With(s.gate(ratelimit.OpCalculate)).Post("/calculate", s.calculate)
			r.With(s.gate(ratelimit.OpSubmit)).Post("/submit", s.submit)
			r.With(s.gate(ratelimit.OpStatus)).Get("/status/{submissionID}", s.status)
		})

		r.Route("/gdpr", func(r chi.Router) {
			r.Use(s.gate(ratelimit.OpGDPR))
			r.Post("/export", s.gdprExport)
			r.Post("/delete", s.gdprDelete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperrors.WriteJSON(w, http.StatusNotFound, apperrors.ErrorResponse{
			Error:     "Not found",
			Code:      "NOT_FOUND",
			RequestID: requestIDFrom(r.Context()),
		})
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	apperrors.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

// ready pings every dependency and reports 503 when any of them fails.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.ReadyTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.deps.Checks))
	for _, c := range s.deps.Checks {
		if err := c.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[c.Name] = err.Error()
			s.logger.Warn("Readiness check failed", map[string]interface{}{
				"check": c.Name,
				"error": err.Error(),
			})
			continue
		}
		checks[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	apperrors.WriteJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
