package server

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/accesscore/accessd/pkg/logger"
)

// loggingMiddleware буферизует ответ, чтобы залогировать статус и тело ошибки.
func loggingMiddleware(logg logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rr := httptest.NewRecorder()

			next.ServeHTTP(rr, r)

			logg.Infof("METHOD %s URI %s	STATUS %d Latency %s Client IP %s User Agent %s",
				r.Method,
				r.URL.RequestURI(),
				rr.Code,
				time.Since(start).String(),
				r.RemoteAddr,
				r.UserAgent(),
			)

			switch {
			case rr.Code == http.StatusUnauthorized:
				logg.Warnf("unauthorized %s %s challenge %q error %s",
					r.Method, r.URL.RequestURI(), rr.Header().Get("WWW-Authenticate"), rr.Body)
			case rr.Code >= 400 && rr.Body.Len() != 0:
				logg.Errorf("error: %s", rr.Body)
			}

			for k, v := range rr.Header() {
				w.Header()[k] = v
			}

			w.WriteHeader(rr.Code)

			if _, err := rr.Body.WriteTo(w); err != nil {
				logg.Errorf("middleware write error: %v", err)
			}
		})
	}
}
