package web

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ai-diet-planner/internal/session"
)

type ctxKey int

const stateKey ctxKey = iota

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// clientMiddleware resolves the client cookie to its state. New states are
// seeded with the persisted theme.
func (s *Server) clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, err := s.cookies.Ensure(w, r)
		if err != nil {
			log.Error().Err(err).Msg("Failed to identify client")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		st, created := s.sessions.Get(clientID)
		if created {
			theme, err := s.app.Prefs().Theme(r.Context(), clientID)
			if err != nil {
				log.Warn().Err(err).Str("client", clientID).Msg("Failed to load theme")
			}
			st.SetTheme(theme)
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey, st)))
	})
}

func stateFrom(r *http.Request) *session.State {
	return r.Context().Value(stateKey).(*session.State)
}
