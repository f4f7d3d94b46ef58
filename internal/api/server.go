// Package api exposes the diary service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/christophergentle/mooddiary/internal/config"
	"github.com/christophergentle/mooddiary/internal/diary"
	"github.com/christophergentle/mooddiary/internal/sparkline"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Server serves the diary API
type Server struct {
	service  *diary.Service
	config   config.ServerConfig
	location *time.Location

	sparklines *sparkline.SparklineGenerator
	calendars  *sparkline.CalendarGenerator
	now        func() time.Time
}

// NewServer creates a new API server
func NewServer(service *diary.Service, cfg config.ServerConfig) *Server {
	return &Server{
		service:    service,
		config:     cfg,
		location:   time.Local,
		sparklines: sparkline.NewSparklineGenerator(sparkline.DefaultConfig()),
		calendars:  sparkline.NewCalendarGenerator(sparkline.DefaultCalendarConfig()),
		now:        time.Now,
	}
}

// Handler returns the router wrapped with CORS and, when a secret is set, bearer auth
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	router.HandleFunc("/entries", s.handleCreateEntry).Methods("POST")
	router.HandleFunc("/entries", s.handleListEntries).Methods("GET")
	router.HandleFunc("/entries/today", s.handleToday).Methods("GET")
	router.HandleFunc("/entries/{id}", s.handleGetEntry).Methods("GET")
	router.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods("DELETE")
	router.HandleFunc("/entries/{id}/rescore", s.handleRescore).Methods("POST")

	router.HandleFunc("/stats", s.handleStats).Methods("GET")
	router.HandleFunc("/stats/moods", s.handleMoodCounts).Methods("GET")
	router.HandleFunc("/sparkline.png", s.handleSparkline).Methods("GET")
	router.HandleFunc("/calendar.png", s.handleCalendar).Methods("GET")

	router.HandleFunc("/score", s.handleScore).Methods("POST")
	router.HandleFunc("/recommendation", s.handleRecommendation).Methods("POST")

	router.Use(logRequests)

	var handler http.Handler = router
	if s.config.JWTSecret != "" {
		handler = requireToken([]byte(s.config.JWTSecret))(handler)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(handler)
}

// ListenAndServe runs the server until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting HTTP server on %s", s.config.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
