package middleware

import (
	"net/http"
	"time"

	"github.com/2beens/liftlog/pkg"

	log "github.com/sirupsen/logrus"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			begin := time.Now()
			resp := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(resp, r)

			log.WithFields(log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   resp.statusCode,
				"ip":       pkg.ClientIP(r),
				"ua":       r.Header.Get("User-Agent"),
				"duration": time.Since(begin).String(),
			}).Trace("request")
		})
	}
}
