package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// GetRouter initialises a new http router and applies all routes
func GetRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	return applyRoutes(r, h)
}

func applyRoutes(r chi.Router, h *Handler) chi.Router {
	r.Get("/healthz", getHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.SetHeader("Access-Control-Allow-Origin", "*"))
		r.Use(middleware.SetHeader("Access-Control-Allow-Methods", "GET,OPTIONS,POST"))
		r.Use(middleware.SetHeader("Access-Control-Allow-Headers", "Accept, Content-Type, X-Requested-With, X-Request-ID"))
		r.Use(preflight)

		r.Get("/codes", h.getCodes)
		r.Get("/scores", h.getScores)
		r.Post("/submit", h.postSubmit)
		r.Get("/iftikad-list", h.getIftikadList)
		r.Get("/iftikad-history", h.getIftikadHistory)
		r.Post("/iftikad-call", h.postIftikadCall)
		r.Post("/attendance", h.postAttendance)
	})

	return r
}

// preflight answers CORS preflight requests before routing.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"id":       id,
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Info("request")
	})
}
