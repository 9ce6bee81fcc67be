package api

import (
	"net/http"
	"time"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/internal/log"
)

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Inc()
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug(r.Context(), "Request",
			"method", r.Method, "endpoint", r.URL.Path, "duration", time.Since(start))
	})
}

// corsGuard implements the cross-origin posture. With the guard disabled
// (the container default) any origin is served and preflights succeed.
// With it enabled, only same-origin requests and allow-listed origins pass.
func (s *Server) corsGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !s.cfg.EnableCORS {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+consts.XsrfHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if origin != "" && !s.originAllowed(r, origin) {
			log.Warning(r.Context(), "Rejected cross-origin request", "origin", origin)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+consts.XsrfHeader)
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(r *http.Request, origin string) bool {
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// xsrfGuard checks the session token on mutating requests when XSRF
// protection is enabled. Every response carries the token so browser
// clients can pick it up from any prior request.
func (s *Server) xsrfGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(consts.XsrfHeader, s.xsrfToken)
		if !s.cfg.EnableXsrfProtection || !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get(consts.XsrfHeader) != s.xsrfToken {
			log.Warning(r.Context(), "Rejected request without XSRF token",
				"method", r.Method, "endpoint", r.URL.Path)
			http.Error(w, "missing or invalid XSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
