// Package api serves the lead qualification HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/pipeline"
	"github.com/sells-group/lead-qualifier/internal/store"
)

// maxUploadBytes bounds the size of an uploaded lead file.
const maxUploadBytes = 10 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	store store.Store
	orch  *pipeline.Orchestrator
}

// NewServer creates a Server.
func NewServer(st store.Store, orch *pipeline.Orchestrator) *Server {
	return &Server{store: st, orch: orch}
}

// Router builds the route tree. An empty origins list allows any origin.
func (s *Server) Router(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/leads", func(r chi.Router) {
			r.Post("/upload", s.uploadLeads)
			r.Get("/", s.listLeads)
			r.Delete("/", s.deleteLeads)
			r.Get("/scored", s.listScoredLeads)
			r.Get("/unscored", s.listUnscoredLeads)
			r.Delete("/unscored", s.deleteUnscoredLeads)
			r.Get("/stats", s.leadStats)
			r.Get("/export", s.exportLeads)
			r.Get("/export/scored", s.exportScoredLeads)
			r.Get("/intent/{level}", s.listLeadsByIntent)
			r.Get("/{id}", s.getLead)
		})

		r.Get("/offers", s.listOffers)
		r.Route("/offer", func(r chi.Router) {
			r.Post("/", s.createOffer)
			r.Get("/latest", s.latestOffer)
			r.Get("/{id}", s.getOffer)
			r.Put("/{id}", s.updateOffer)
			r.Delete("/{id}", s.deleteOffer)
		})

		r.Post("/score", s.scoreAll)
		r.Post("/score/{leadId}", s.scoreOne)
		r.Post("/rescore", s.rescoreAll)
		r.Post("/rescore/intent/{level}", s.rescoreByIntent)

		r.Route("/results", func(r chi.Router) {
			r.Get("/", s.results)
			r.Get("/all", s.listLeads)
			r.Get("/high", s.resultsByTier(model.IntentHigh))
			r.Get("/medium", s.resultsByTier(model.IntentMedium))
			r.Get("/low", s.resultsByTier(model.IntentLow))
			r.Get("/export", s.exportResults)
			r.Get("/summary", s.resultsSummary)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs each request once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
